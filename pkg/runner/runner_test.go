package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/drape"
	"github.com/vito/drape/pkg/ioctx"
	"github.com/vito/drape/pkg/runner"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T, mode runner.Mode) (*runner.Runner, afero.Fs) {
	t.Helper()

	cfg, err := config.Collate([]config.Source{config.Builtin()}, config.Merge)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"src/a.json":         `{"a":1}`,
		"src/nested/b.json":  "[1, 2]\n",
		"src/.hidden/c.json": `{"c":3}`,
		"src/readme.md":      "# hi",
		"broken.json":        `{"a":`,
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	return &runner.Runner{
		Fs:     fs,
		Config: cfg,
		Mode:   mode,
		Jobs:   2,
	}, fs
}

func TestWrite(t *testing.T) {
	r, fs := setup(t, runner.Write)

	sum, err := r.Run(context.Background(), []string{"src"})
	require.NoError(t, err)

	var paths []string
	for _, f := range sum.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"src/a.json", "src/nested/b.json"}, paths)
	assert.Equal(t, []string{"src/a.json"}, sum.Changed())

	content, err := afero.ReadFile(fs, "src/a.json")
	require.NoError(t, err)
	assert.Equal(t, "{\"a\": 1}\n", string(content))

	content, err = afero.ReadFile(fs, "src/.hidden/c.json")
	require.NoError(t, err)
	assert.Equal(t, `{"c":3}`, string(content))

	// A second run finds nothing to do.
	sum, err = r.Run(context.Background(), []string{"src"})
	require.NoError(t, err)
	assert.Empty(t, sum.Changed())
}

func TestCheck(t *testing.T) {
	r, fs := setup(t, runner.Check)

	sum, err := r.Run(context.Background(), []string{"src", "src/a.json"})
	require.ErrorIs(t, err, runner.ErrUnformatted)
	assert.Len(t, sum.Files, 2)
	assert.Equal(t, []string{"src/a.json"}, sum.Changed())

	content, err := afero.ReadFile(fs, "src/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(content))
}

func TestList(t *testing.T) {
	r, _ := setup(t, runner.List)

	var stdout bytes.Buffer
	ctx := ioctx.StdoutToContext(context.Background(), &stdout)
	_, err := r.Run(ctx, []string{"src"})
	require.ErrorIs(t, err, runner.ErrUnformatted)
	assert.Equal(t, "src/a.json\n", stdout.String())
}

func TestPrintStdin(t *testing.T) {
	r, _ := setup(t, runner.Print)
	r.Language = "json"
	r.Override = func(opts *drape.Options) {
		opts.LineWidth = 5
	}

	var stdout bytes.Buffer
	ctx := ioctx.StdoutToContext(context.Background(), &stdout)
	ctx = ioctx.StdinToContext(ctx, strings.NewReader(`{"a":1,"b":2}`))
	sum, err := r.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{runner.Stdin}, sum.Changed())
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", stdout.String())
}

func TestErrors(t *testing.T) {
	r, _ := setup(t, runner.Print)

	_, err := r.Run(context.Background(), nil)
	assert.ErrorContains(t, err, "requires --language")

	_, err = r.Run(context.Background(), []string{"src"})
	assert.ErrorContains(t, err, "cannot print 2 files")

	_, err = r.Run(context.Background(), []string{"missing.json"})
	assert.Error(t, err)

	_, err = r.Run(context.Background(), []string{"src/readme.md"})
	assert.ErrorContains(t, err, "src/readme.md: no language configured for .md files")

	sum, err := r.Run(context.Background(), []string{"broken.json"})
	assert.ErrorContains(t, err, "broken.json: parse error")
	require.Len(t, sum.Files, 1)
	assert.Error(t, sum.Files[0].Err)

	r.Mode = runner.Write
	r.Language = "json"
	_, err = r.Run(context.Background(), []string{runner.Stdin})
	assert.ErrorContains(t, err, "cannot write stdin")
}
