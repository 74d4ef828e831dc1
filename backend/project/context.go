package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Context describes the project an agent run operates on. It is embedded
// verbatim into the system prompt.
type Context struct {
	Name      string
	Type      string
	Root      string
	Structure string
	KeyFiles  []string
}

// markerFiles maps well-known files to a project type label.
var markerFiles = []struct {
	file string
	kind string
}{
	{"go.mod", "go"},
	{"Cargo.toml", "rust"},
	{"package.json", "node"},
	{"tsconfig.json", "typescript"},
	{"pyproject.toml", "python"},
	{"requirements.txt", "python"},
	{"pom.xml", "java"},
	{"Gemfile", "ruby"},
	{"Makefile", "make"},
}

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".conjure":     true,
}

const (
	maxTreeDepth   = 3
	maxTreeEntries = 200
)

// Scan builds a Context for the directory at root.
func Scan(fs afero.Fs, root string) (*Context, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	ctx := &Context{
		Name: filepath.Base(abs),
		Type: "unknown",
		Root: abs,
	}

	for _, marker := range markerFiles {
		ok, err := afero.Exists(fs, filepath.Join(abs, marker.file))
		if err != nil {
			continue
		}
		if ok {
			if ctx.Type == "unknown" {
				ctx.Type = marker.kind
			}
			ctx.KeyFiles = append(ctx.KeyFiles, marker.file)
		}
	}
	for _, name := range []string{"README.md", "README", "readme.md"} {
		if ok, _ := afero.Exists(fs, filepath.Join(abs, name)); ok {
			ctx.KeyFiles = append(ctx.KeyFiles, name)
			break
		}
	}

	var sb strings.Builder
	entries := 0
	renderTree(fs, abs, "", 0, &sb, &entries)
	ctx.Structure = sb.String()

	return ctx, nil
}

// renderTree writes an indented directory listing, depth and entry capped
// so huge trees do not flood the prompt.
func renderTree(fs afero.Fs, dir, indent string, depth int, sb *strings.Builder, entries *int) {
	if depth >= maxTreeDepth || *entries >= maxTreeEntries {
		return
	}
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		if *entries >= maxTreeEntries {
			sb.WriteString(indent + "...\n")
			return
		}
		*entries++
		if info.IsDir() {
			sb.WriteString(indent + name + "/\n")
			renderTree(fs, filepath.Join(dir, name), indent+"  ", depth+1, sb, entries)
		} else {
			sb.WriteString(indent + name + "\n")
		}
	}
}
