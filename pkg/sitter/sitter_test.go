package sitter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/sitter"
	"gotest.tools/v3/golden"
)

func jsonFrontend(t *testing.T) *sitter.Frontend {
	t.Helper()
	query, ok := sitter.BuiltinQuery("json")
	require.True(t, ok)
	fe, err := sitter.New("json", query)
	require.NoError(t, err)
	t.Cleanup(fe.Close)
	return fe
}

func TestSamples(t *testing.T) {
	fe := jsonFrontend(t)

	for _, tc := range []struct {
		name  string
		width int
	}{
		{"json/input.json", 80},
		{"json/narrow.input.json", 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			input, err := os.ReadFile(filepath.Join("testdata", tc.name))
			require.NoError(t, err)

			opts := drape.Options{LineWidth: tc.width}
			res, err := drape.FormatSource(fe, input, opts)
			require.NoError(t, err)
			require.Empty(t, res.Diagnostics)

			expected := filepath.Join(filepath.Dir(tc.name), replaceInput(filepath.Base(tc.name)))
			golden.Assert(t, res.Text, expected)

			// the expected output is a fixed point
			again, err := drape.FormatSource(fe, []byte(res.Text), opts)
			require.NoError(t, err)
			require.Equal(t, res.Text, again.Text)
		})
	}
}

func replaceInput(name string) string {
	if name == "input.json" {
		return "expected.json"
	}
	return name[:len(name)-len("input.json")] + "expected.json"
}

func TestUnknownCapture(t *testing.T) {
	_, err := sitter.New("json", `(pair) @append_tab`)
	require.Error(t, err)
	var qerr *sitter.QueryError
	require.ErrorAs(t, err, &qerr)
	require.Contains(t, err.Error(), "@append_tab is not a valid capture name")
}

func TestInvalidQuery(t *testing.T) {
	_, err := sitter.New("json", `(pair`)
	var qerr *sitter.QueryError
	require.ErrorAs(t, err, &qerr)
}

func TestUnknownGrammar(t *testing.T) {
	_, err := sitter.New("cobol", `(x) @leaf`)
	require.ErrorContains(t, err, `unknown grammar "cobol"`)
}

func TestUnderscoreCapturesAreIgnored(t *testing.T) {
	fe, err := sitter.New("json", `(pair key: (_) @_key) @allow_blank_line_before`)
	require.NoError(t, err)
	defer fe.Close()

	tree, matches, err := fe.Parse([]byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		require.Equal(t, drape.OpAllowBlankLine, m.Op)
		require.Equal(t, "pair", tree.Node(m.Edge.Node).Kind)
	}
}

func TestParseErrors(t *testing.T) {
	fe := jsonFrontend(t)

	_, _, err := fe.Parse([]byte(`{"a": }`))
	var perr *sitter.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, uint(0), perr.Row)

	fe.TolerateParseErrors = true
	tree, _, err := fe.Parse([]byte(`{"a": }`))
	require.NoError(t, err)
	require.Equal(t, "document", tree.Node(tree.Root()).Kind)
}

func TestParseTree(t *testing.T) {
	fe := jsonFrontend(t)
	tree, err := fe.ParseTree([]byte(`[1, true]`))
	require.NoError(t, err)
	require.Equal(t, []string{"[", "1", ",", "true", "]"}, tree.Leaves())
}

func TestGrammars(t *testing.T) {
	require.Equal(t, []string{"json"}, sitter.Grammars())
	_, ok := sitter.BuiltinQuery("yaml")
	require.False(t, ok)
}
