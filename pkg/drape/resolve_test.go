package drape_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/drape/drapetest"
)

func pairTree(t *testing.T) (*drape.Tree, drape.NodeID, drape.NodeID) {
	t.Helper()
	tree := drapetest.Build(t, drapetest.Branch("pair",
		drapetest.Token("key", "a"),
		drapetest.Leaf(":").Pre(" "),
		drapetest.Token("value", "1").Pre("\n"),
	))
	return tree, drapetest.Only(t, tree, "key"), drapetest.Only(t, tree, ":")
}

func TestResolveDominance(t *testing.T) {
	tree, key, colon := pairTree(t)
	after := drape.AfterEdge(key)

	for _, tc := range []struct {
		name string
		ops  []drape.Op
		want drape.Spacing
	}{
		{"space alone", []drape.Op{drape.OpSpace}, drape.SpacingSpace},
		{"softline beats space", []drape.Op{drape.OpSpace, drape.OpSpacedSoftline}, drape.SpacingSpacedSoftline},
		{"hardline beats softline", []drape.Op{drape.OpEmptySoftline, drape.OpHardline}, drape.SpacingHardline},
		{"antispace beats hardline", []drape.Op{drape.OpHardline, drape.OpAntispace, drape.OpSpace}, drape.SpacingAntispace},
		{"antispace settles conflicting softlines", []drape.Op{drape.OpEmptySoftline, drape.OpSpacedSoftline, drape.OpAntispace}, drape.SpacingAntispace},
		{"duplicates merge", []drape.Op{drape.OpSpace, drape.OpSpace}, drape.SpacingSpace},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var matches []drape.Match
			for _, op := range tc.ops {
				matches = append(matches, drape.Match{Edge: after, Op: op})
			}
			layout, err := drape.Resolve(tree, matches)
			require.NoError(t, err)
			require.Equal(t, tc.want, layout.At(after).Spacing)
			require.Equal(t, drape.SpacingNone, layout.At(drape.BeforeEdge(colon)).Spacing)
		})
	}
}

func TestResolveConflictingSoftlines(t *testing.T) {
	tree, key, _ := pairTree(t)
	_, err := drape.Resolve(tree, []drape.Match{
		drape.Directive("append_empty_softline").At(key),
		drape.Directive("append_spaced_softline").At(key),
	})
	require.ErrorIs(t, err, drape.ErrConflictingDirectives)

	var fe *drape.FormatError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "key", fe.NodeKind)
	require.Equal(t, 1, fe.Offset)
	require.NotNil(t, fe.Edge)
	require.Equal(t, drape.AfterEdge(key), *fe.Edge)
}

func TestResolveInputSoftline(t *testing.T) {
	tree, key, colon := pairTree(t)
	layout, err := drape.Resolve(tree, []drape.Match{
		drape.Directive("append_input_softline").At(key),
		drape.Directive("append_input_softline").At(colon),
	})
	require.NoError(t, err)
	require.Equal(t, drape.SpacingSpace, layout.At(drape.AfterEdge(key)).Spacing)
	require.Equal(t, drape.SpacingHardline, layout.At(drape.AfterEdge(colon)).Spacing)
}

func TestResolveBlankLineAndIndentCounts(t *testing.T) {
	tree, key, colon := pairTree(t)
	layout, err := drape.Resolve(tree, []drape.Match{
		drape.Directive("append_indent_start").At(key),
		drape.Directive("append_indent_start").At(key),
		drape.Directive("append_indent_end").At(colon),
		drape.Directive("append_indent_end").At(colon),
		drape.DirectiveAllowBlankLineBefore.At(colon),
	})
	require.NoError(t, err)
	require.Equal(t, 2, layout.At(drape.AfterEdge(key)).Indent)
	require.Equal(t, 2, layout.At(drape.AfterEdge(colon)).Dedent)
	require.True(t, layout.At(drape.BeforeEdge(colon)).AllowBlank)
	require.Len(t, layout.Edges(), 3)
}

func TestResolveUnbalancedIndent(t *testing.T) {
	tree, key, colon := pairTree(t)

	t.Run("start without end", func(t *testing.T) {
		_, err := drape.Resolve(tree, []drape.Match{
			drape.Directive("append_indent_start").At(key),
		})
		require.ErrorIs(t, err, drape.ErrUnbalancedIndent)
		var fe *drape.FormatError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, drape.AfterEdge(key), *fe.Edge)
	})

	t.Run("end without start", func(t *testing.T) {
		_, err := drape.Resolve(tree, []drape.Match{
			drape.Directive("prepend_indent_end").At(colon),
		})
		require.ErrorIs(t, err, drape.ErrUnbalancedIndent)
		var fe *drape.FormatError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, drape.BeforeEdge(colon), *fe.Edge)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := drape.Resolve(tree, []drape.Match{
			drape.Directive("prepend_indent_end").At(key),
			drape.Directive("append_indent_start").At(colon),
		})
		require.ErrorIs(t, err, drape.ErrUnbalancedIndent)
	})

	t.Run("start and end on one edge", func(t *testing.T) {
		_, err := drape.Resolve(tree, []drape.Match{
			drape.Directive("append_indent_start").At(key),
			drape.Directive("append_indent_end").At(key),
		})
		require.NoError(t, err)
	})
}

func TestResolveMalformedMatches(t *testing.T) {
	tree, key, _ := pairTree(t)
	for _, tc := range []struct {
		name  string
		match drape.Match
	}{
		{"unknown node", drape.Match{Edge: drape.AfterEdge(42), Op: drape.OpSpace}},
		{"child out of range", drape.Match{Edge: drape.BetweenEdge(0, 2), Op: drape.OpSpace}},
		{"between on a leaf", drape.Match{Edge: drape.BetweenEdge(key, 0), Op: drape.OpSpace}},
		{"leaf on an edge", drape.Match{Edge: drape.BeforeEdge(key), Op: drape.OpLeaf}},
		{"op on a node", drape.Match{Edge: drape.OnNode(key), Op: drape.OpHardline}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := drape.Resolve(tree, []drape.Match{tc.match})
			require.ErrorIs(t, err, drape.ErrMalformedTree)
		})
	}
}

func TestResolveIgnoresDirectivesInsideLeaf(t *testing.T) {
	tree := drapetest.Build(t, drapetest.Branch("doc",
		drapetest.Branch("raw",
			drapetest.Token("word", "x"),
			drapetest.Token("word", "y").Pre(" "),
		),
		drapetest.Token("word", "z").Pre(" "),
	))
	raw := drapetest.Only(t, tree, "raw")
	words := drapetest.Find(tree, "word")

	layout, err := drape.Resolve(tree, []drape.Match{
		drape.DirectiveLeaf.At(raw),
		drape.Directive("append_hardline").At(raw),
		drape.Directive("append_hardline").At(words[0]),
		{Edge: drape.BetweenEdge(raw, 0), Op: drape.OpSpace},
		// unbalanced, but never applied
		drape.Directive("append_indent_start").At(words[1]),
	})
	require.NoError(t, err)
	require.True(t, layout.IsLeaf(raw))
	require.Equal(t, drape.SpacingHardline, layout.At(drape.AfterEdge(raw)).Spacing)
	require.Equal(t, drape.SpacingNone, layout.At(drape.AfterEdge(words[0])).Spacing)

	require.Len(t, layout.Diagnostics, 3)
	for _, d := range layout.Diagnostics {
		require.ErrorIs(t, d, drape.ErrUnsupportedConstruct)
	}
}

func TestParseDirective(t *testing.T) {
	d, err := drape.ParseDirective("prepend_spaced_softline")
	require.NoError(t, err)
	require.True(t, d.IsPrepend())
	require.Equal(t, drape.Match{Edge: drape.BeforeEdge(3), Op: drape.OpSpacedSoftline}, d.At(3))

	d, err = drape.ParseDirective("append_antispace")
	require.NoError(t, err)
	require.False(t, d.IsPrepend())

	_, err = drape.ParseDirective("append_tab")
	require.EqualError(t, err, "@append_tab is not a valid capture name")

	require.Contains(t, drape.Directives(), drape.DirectiveLeaf)
	require.Contains(t, drape.Directives(), drape.Directive("append_input_softline"))
	require.Len(t, drape.Directives(), 18)

	op, err := drape.ParseOp("hardline")
	require.NoError(t, err)
	require.Equal(t, drape.OpHardline, op)
	_, err = drape.ParseOp("leaf")
	require.Error(t, err)
}
