package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/config"
)

func source(name, dir, content string) config.Source {
	return config.Source{Name: name, Dir: dir, Content: []byte(content)}
}

func TestBuiltin(t *testing.T) {
	cfg, err := config.Collate([]config.Source{config.Builtin()}, config.Merge)
	require.NoError(t, err)

	lang, err := cfg.Detect("package.json")
	require.NoError(t, err)
	assert.Equal(t, "json", lang.Name)
	assert.Equal(t, "json", lang.GrammarName())

	_, err = cfg.Detect("main.go")
	assert.ErrorContains(t, err, "no language configured for .go files")

	_, err = cfg.Detect("Makefile")
	assert.ErrorContains(t, err, "no extension")
}

func TestMerge(t *testing.T) {
	cfg, err := config.Collate([]config.Source{
		config.Builtin(),
		source("user", "/home/me", `
[[language]]
name = "json"
extensions = ["json5"]
line_width = 100
`),
		source("project", "/src/app", `
[[language]]
name = "json"
indent = "\t"

[[language]]
name = "manifest"
grammar = "json"
extensions = ["webmanifest"]
query = "queries/manifest.scm"
`),
	}, config.Merge)
	require.NoError(t, err)

	json, err := cfg.Language("json")
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "jsonc", "json5"}, json.Extensions)
	assert.Equal(t, 100, json.LineWidth)
	assert.Equal(t, "\t", json.Indent)

	manifest, err := cfg.Detect("site.webmanifest")
	require.NoError(t, err)
	assert.Equal(t, "manifest", manifest.Name)
	assert.Equal(t, "json", manifest.GrammarName())

	assert.Equal(t, []string{"json", "json5", "jsonc", "webmanifest"}, cfg.Extensions())

	_, err = cfg.Language("yaml")
	assert.ErrorContains(t, err, `unknown language "yaml"`)
}

func TestOverride(t *testing.T) {
	cfg, err := config.Collate([]config.Source{
		config.Builtin(),
		source("explicit", "", `
[[language]]
name = "json"
extensions = ["json5"]
`),
	}, config.Override)
	require.NoError(t, err)

	require.Len(t, cfg.Languages, 1)
	assert.Equal(t, []string{"json5"}, cfg.Languages[0].Extensions)
	assert.Empty(t, cfg.Languages[0].Indent)
}

func TestInvalid(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		err     string
	}{
		{"syntax", `[[language]`, "loading broken"},
		{"unknown key", "[[language]]\nname = \"x\"\ncolour = \"red\"\n", "unknown keys"},
		{"no name", "[[language]]\nextensions = [\"x\"]\n", "language 1 has no name"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Collate([]config.Source{source("broken", "", tc.content)}, config.Merge)
			assert.ErrorContains(t, err, tc.err)
		})
	}

	_, err := config.Collate(nil, config.Merge)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	cfg, err := config.Collate([]config.Source{config.Builtin()}, config.Merge)
	require.NoError(t, err)

	out := cfg.String()
	assert.Contains(t, out, "# Configuration collated from the following sources,\n# in priority order (lowest to highest):\n#\n# 1. built-in\n#\n# Collation mode: merge\n")
	assert.Contains(t, out, `name = "json"`)

	// The annotated output is itself a valid configuration.
	again, err := config.Collate([]config.Source{source("dump", "", out)}, config.Merge)
	require.NoError(t, err)
	assert.Equal(t, cfg.Languages[0].Extensions, again.Languages[0].Extensions)
}

func TestCollation(t *testing.T) {
	var c config.Collation
	require.NoError(t, c.Set("override"))
	assert.Equal(t, config.Override, c)
	assert.Equal(t, "override", c.String())
	assert.Error(t, c.Set("append"))
	assert.Equal(t, "collation", c.Type())
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := config.FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(root, config.ProjectFile), nil, 0o644))
	path, err = config.FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, config.ProjectFile), path)

	// A repository root between the two hides the outer file.
	require.NoError(t, os.Mkdir(filepath.Join(root, "a", ".git"), 0o755))
	path, err = config.FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestEnv(t *testing.T) {
	env, err := config.LoadEnv(func(key string) (string, bool) {
		v, ok := map[string]string{
			"DRAPE_LINE_WIDTH":   "40",
			"DRAPE_LANGUAGE_DIR": "/queries",
		}[key]
		return v, ok
	})
	require.NoError(t, err)
	assert.Equal(t, config.Env{LineWidth: 40, LanguageDir: "/queries"}, env)

	_, err = config.LoadEnv(func(key string) (string, bool) {
		return "wide", key == "DRAPE_LINE_WIDTH"
	})
	assert.Error(t, err)

	lang := &config.Language{Name: "json", Indent: "    ", LineWidth: 100}
	opts := lang.Options(config.Env{})
	assert.Equal(t, 100, opts.LineWidth)
	assert.Equal(t, 4, opts.IndentWidth)
	assert.Equal(t, "    ", opts.Indent)

	opts = lang.Options(env)
	assert.Equal(t, 40, opts.LineWidth)

	opts = lang.Options(config.Env{IndentWidth: 3})
	assert.Equal(t, 3, opts.IndentWidth)
	assert.Empty(t, opts.Indent)

	tabs := &config.Language{Name: "json", Indent: "\t"}
	opts = tabs.Options(config.Env{IndentWidth: 8})
	assert.Equal(t, "\t", opts.Indent)
	assert.Equal(t, 8, opts.IndentWidth)
}

func TestLoad(t *testing.T) {
	lang := &config.Language{Name: "json"}
	f, err := lang.Load(config.Env{}, false)
	require.NoError(t, err)
	defer f.Close()

	res, err := f.Format([]byte(`{"a":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\": [1, 2]}\n", res.Text)

	_, err = f.Format([]byte(`{"a":`))
	assert.ErrorContains(t, err, "parse error")
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	// Only hard lines between pairs; nothing else gets spacing.
	query := `(object "," @append_hardline)`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json.scm"), []byte(query), 0o644))

	lang := &config.Language{Name: "json"}
	_, origin, err := lang.QuerySource(config.Env{LanguageDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "json.scm"), origin)

	_, origin, err = lang.QuerySource(config.Env{LanguageDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "built-in", origin)

	cfg, err := config.Collate([]config.Source{
		source("project", dir, "[[language]]\nname = \"json\"\nquery = \"json.scm\"\n"),
	}, config.Merge)
	require.NoError(t, err)
	content, origin, err := cfg.Languages[0].QuerySource(config.Env{})
	require.NoError(t, err)
	assert.Equal(t, query, content)
	assert.Equal(t, filepath.Join(dir, "json.scm"), origin)

	missing := &config.Language{Name: "json", Query: filepath.Join(dir, "nope.scm")}
	_, _, err = missing.QuerySource(config.Env{})
	assert.Error(t, err)

	rulesLang := &config.Language{Name: "json", Rules: "../rules/testdata/json.yaml"}
	f, err := rulesLang.Load(config.Env{}, false)
	require.NoError(t, err)
	defer f.Close()
	res, err := f.Format([]byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\": 1, \"b\": 2}\n", res.Text)
}
