package commands

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed all:templates
var templateFS embed.FS

// dotfiles are stored without their leading dot so embed picks them up.
var dotfiles = map[string]bool{"gitignore": true}

// scaffoldFile is one file of a project template.
type scaffoldFile struct {
	Name    string // slash path relative to the project root
	Source  bool   // a .tsk configuration source
	Written bool   // false when an existing file was kept
}

// templateFiles lists the files of a template, in walk order, under the
// names they get inside the project.
func templateFiles(name string) ([]scaffoldFile, error) {
	root := path.Join("templates", name)
	var files []scaffoldFile
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := strings.TrimPrefix(p, root+"/")
		dir, base := path.Split(rel)
		if dotfiles[base] {
			rel = dir + "." + base
		}
		files = append(files, scaffoldFile{Name: rel, Source: path.Ext(rel) == ".tsk"})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	return files, nil
}

// scaffold writes a template into dir. Existing files are kept unless
// force is set.
func scaffold(name, dir string, force bool) ([]scaffoldFile, error) {
	files, err := templateFiles(name)
	if err != nil {
		return nil, err
	}
	root := path.Join("templates", name)

	for i, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !force {
			if _, err := os.Stat(target); err == nil {
				continue
			}
		}

		src := path.Join(root, f.Name)
		if d, base := path.Split(f.Name); strings.HasPrefix(base, ".") && dotfiles[base[1:]] {
			src = path.Join(root, d+base[1:])
		}
		content, err := templateFS.ReadFile(src)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec // project files are meant to be shared
			return nil, err
		}
		files[i].Written = true
	}
	return files, nil
}
