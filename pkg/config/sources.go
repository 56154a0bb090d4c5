package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

//go:embed languages.toml
var builtin []byte

// ProjectFile is the name of a project-level configuration file.
const ProjectFile = ".drape.toml"

// Source is one configuration document.
type Source struct {
	Name    string
	Path    string
	Dir     string
	Content []byte
}

func (s Source) String() string {
	if s.Path == "" {
		return s.Name
	}
	return fmt.Sprintf("%s: %s", s.Name, s.Path)
}

// Builtin is the configuration compiled into the binary.
func Builtin() Source {
	return Source{Name: "built-in", Content: builtin}
}

// Sources returns every configuration document that applies from the
// current directory, lowest priority first: the built-in configuration, the
// user configuration under $XDG_CONFIG_HOME/drape, the nearest .drape.toml,
// and finally explicit, which must exist when non-empty.
func Sources(explicit string) ([]Source, error) {
	sources := []Source{Builtin()}

	user := filepath.Join(xdg.ConfigHome, "drape", "languages.toml")
	if src, ok, err := readSource("user", user); err != nil {
		return nil, err
	} else if ok {
		sources = append(sources, src)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	project, err := FindProjectConfig(cwd)
	if err != nil {
		return nil, err
	}
	if project != "" {
		src, _, err := readSource("project", project)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if explicit != "" {
		src, ok, err := readSource("explicit", explicit)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("configuration file %s does not exist", explicit)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func readSource(name, path string) (Source, bool, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Source{}, false, nil
	}
	if err != nil {
		return Source{}, false, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, false, err
	}
	return Source{
		Name:    name,
		Path:    abs,
		Dir:     filepath.Dir(abs),
		Content: content,
	}, true, nil
}

// FindProjectConfig searches for a .drape.toml file starting from dir and
// walking up to parent directories, stopping at a repository root. Returns ""
// if none is found.
func FindProjectConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
