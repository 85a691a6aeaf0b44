package config

import (
	"bufio"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DetectProjectName infers a project name from the manifests in dir: go.mod,
// package.json, pyproject.toml and Cargo.toml, in that order. Unreadable
// manifests are skipped. The directory name is the fallback.
func DetectProjectName(dir string) string {
	for _, detect := range []func(string) string{fromGoMod, fromPackageJSON, fromPyproject, fromCargo} {
		if name := strings.TrimSpace(detect(dir)); name != "" {
			return name
		}
	}
	return filepath.Base(dir)
}

func fromGoMod(dir string) string {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if mod, ok := strings.CutPrefix(line, "module "); ok {
			return path.Base(strings.Trim(strings.TrimSpace(mod), `"`))
		}
	}
	return ""
}

func fromPackageJSON(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(data, &pkg) != nil {
		return ""
	}
	return pkg.Name
}

func fromPyproject(dir string) string {
	var py struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.DecodeFile(filepath.Join(dir, "pyproject.toml"), &py); err != nil {
		return ""
	}
	if py.Project.Name != "" {
		return py.Project.Name
	}
	return py.Tool.Poetry.Name
}

func fromCargo(dir string) string {
	var cargo struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if _, err := toml.DecodeFile(filepath.Join(dir, "Cargo.toml"), &cargo); err != nil {
		return ""
	}
	return cargo.Package.Name
}
