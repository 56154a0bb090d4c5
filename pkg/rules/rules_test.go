package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/drape/drapetest"
	"github.com/vito/drape/pkg/rules"
	"github.com/vito/drape/pkg/sitter"
)

func TestJSONRules(t *testing.T) {
	rs, err := rules.Load("testdata/json.yaml")
	require.NoError(t, err)

	fe, err := sitter.New("json", "")
	require.NoError(t, err)
	defer fe.Close()

	frontend := rules.Frontend{Rules: rs, Parser: fe.ParseTree}

	res, err := drape.FormatSource(frontend, []byte(`{"a":1,"b":2}`), drape.Options{LineWidth: 80})
	require.NoError(t, err)
	require.Equal(t, "{\"a\": 1, \"b\": 2}\n", res.Text)
	require.Empty(t, res.Diagnostics)

	res, err = drape.FormatSource(frontend, []byte(`{"a":1,"b":2}`), drape.Options{LineWidth: 5})
	require.NoError(t, err)
	require.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", res.Text)
}

func TestSelectors(t *testing.T) {
	tree := drapetest.Build(t, drapetest.Branch("list",
		drapetest.Token("item", "a"),
		drapetest.Leaf(","),
		drapetest.Token("item", "b"),
		drapetest.Leaf(","),
		drapetest.Token("item", "c"),
	))
	items := drapetest.Find(tree, "item")
	commas := drapetest.Find(tree, ",")

	for _, tc := range []struct {
		name string
		yaml string
		want []drape.Match
	}{
		{
			name: "kind",
			yaml: `{rules: [{kind: ",", directives: [append_space]}]}`,
			want: []drape.Match{
				drape.Directive("append_space").At(commas[0]),
				drape.Directive("append_space").At(commas[1]),
			},
		},
		{
			name: "first and last",
			yaml: `
rules:
  - {kind: item, first: true, directives: [prepend_hardline]}
  - {kind: item, last: true, directives: [append_hardline]}
`,
			want: []drape.Match{
				drape.Directive("prepend_hardline").At(items[0]),
				drape.Directive("append_hardline").At(items[2]),
			},
		},
		{
			name: "anonymous only",
			yaml: `{rules: [{kind: _, named: false, directives: [prepend_antispace]}]}`,
			want: []drape.Match{
				drape.Directive("prepend_antispace").At(commas[0]),
				drape.Directive("prepend_antispace").At(commas[1]),
			},
		},
		{
			name: "parent",
			yaml: `{rules: [{kind: item, parent: other, directives: [append_space]}]}`,
			want: nil,
		},
		{
			name: "between",
			yaml: `{rules: [{kind: list, between: [{after: item, before: ",", ops: [antispace]}]}]}`,
			want: []drape.Match{
				{Edge: drape.BetweenEdge(tree.Root(), 0), Op: drape.OpAntispace},
				{Edge: drape.BetweenEdge(tree.Root(), 2), Op: drape.OpAntispace},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rs, err := rules.Parse([]byte(tc.yaml))
			require.NoError(t, err)
			require.Equal(t, tc.want, rs.Match(tree))
		})
	}
}

func TestInvalidRules(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		err  string
	}{
		{"unknown field", `{rules: [{kind: x, colour: red}]}`, "field colour not found"},
		{"missing kind", `{rules: [{directives: [append_space]}]}`, "rule 1: kind is required"},
		{"no directives", `{rules: [{kind: x}]}`, "rule 1: x: no directives"},
		{"bad directive", `{rules: [{kind: x, directives: [append_tab]}]}`, "@append_tab is not a valid capture name"},
		{"bad op", `{rules: [{kind: x, between: [{ops: [tab]}]}]}`, `unknown op "tab"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rules.Parse([]byte(tc.yaml))
			require.ErrorContains(t, err, tc.err)
		})
	}

	rs, err := rules.Parse(nil)
	require.NoError(t, err)
	require.Empty(t, rs.Rules)
}
