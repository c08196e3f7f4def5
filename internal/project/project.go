// Package project models the buildable structure of a project: packages
// containing stanzas (library, executable, test-suite) with declared
// source directories and library dependencies. It resolves a source file
// to its owning stanza, its declared module name, and the library names
// relevant to it.
package project

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StanzaKind is the kind of a buildable unit.
type StanzaKind string

const (
	KindLibrary    StanzaKind = "library"
	KindExecutable StanzaKind = "executable"
	KindTestSuite  StanzaKind = "test-suite"
)

// Stanza is one buildable unit within a package.
type Stanza struct {
	Name       string     `yaml:"name"`
	Kind       StanzaKind `yaml:"kind"`
	SourceDirs []string   `yaml:"source_dirs"`
	DependsOn  []string   `yaml:"depends_on,omitempty"` // library names
}

// BuildTarget renders the stanza as a build-tool target string.
func (s Stanza) BuildTarget(pkgName string) string {
	switch s.Kind {
	case KindLibrary:
		return pkgName + ":lib"
	case KindExecutable:
		return fmt.Sprintf("%s:exe:%s", pkgName, s.Name)
	case KindTestSuite:
		return fmt.Sprintf("%s:test:%s", pkgName, s.Name)
	default:
		return pkgName
	}
}

// Package is a named package with a root directory and its stanzas.
type Package struct {
	Name    string   `yaml:"name"`
	Root    string   `yaml:"root"`
	Stanzas []Stanza `yaml:"stanzas"`
}

// Library returns the package's library stanza, if it has one.
func (p *Package) Library() (*Stanza, bool) {
	for i := range p.Stanzas {
		if p.Stanzas[i].Kind == KindLibrary {
			return &p.Stanzas[i], true
		}
	}
	return nil, false
}

// Resolver maps source files to their owning package and stanza.
type Resolver struct {
	root string
	pkgs []Package
}

// NewResolver creates a Resolver for packages rooted at root.
func NewResolver(root string, pkgs []Package) *Resolver {
	return &Resolver{root: root, pkgs: pkgs}
}

// Packages returns the declared packages.
func (r *Resolver) Packages() []Package {
	return r.pkgs
}

// StanzaFor resolves the file to its owning package and stanza by the
// longest matching source directory. The file may be absolute or
// relative to the project root.
func (r *Resolver) StanzaFor(file string) (*Package, *Stanza, bool) {
	rel := r.relative(file)

	var bestPkg *Package
	var bestStanza *Stanza
	bestLen := -1
	for i := range r.pkgs {
		pkg := &r.pkgs[i]
		for j := range pkg.Stanzas {
			st := &pkg.Stanzas[j]
			for _, dir := range st.SourceDirs {
				full := filepath.Join(pkg.Root, dir)
				if !underDir(rel, full) {
					continue
				}
				if len(full) > bestLen {
					bestPkg, bestStanza, bestLen = pkg, st, len(full)
				}
			}
		}
	}
	return bestPkg, bestStanza, bestStanza != nil
}

// ModuleName derives the dotted module name a file declares from its
// path under the stanza's source directory: src/Data/Graph.x becomes
// Data.Graph. Returns "" when the file is outside any stanza.
func (r *Resolver) ModuleName(file string) string {
	pkg, st, ok := r.StanzaFor(file)
	if !ok {
		return ""
	}

	rel := r.relative(file)
	for _, dir := range st.SourceDirs {
		full := filepath.Join(pkg.Root, dir)
		if !underDir(rel, full) {
			continue
		}
		sub, err := filepath.Rel(full, rel)
		if err != nil {
			continue
		}
		sub = strings.TrimSuffix(sub, filepath.Ext(sub))
		return strings.ReplaceAll(filepath.ToSlash(sub), "/", ".")
	}
	return ""
}

// LibraryDependencies returns the library names relevant to the file:
// the libraries its stanza depends on, plus the owning package's own
// library for non-library stanzas.
func (r *Resolver) LibraryDependencies(file string) []string {
	pkg, st, ok := r.StanzaFor(file)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var libs []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			libs = append(libs, name)
		}
	}

	for _, dep := range st.DependsOn {
		add(dep)
	}
	if st.Kind != KindLibrary {
		if lib, ok := pkg.Library(); ok {
			add(lib.Name)
		}
	}
	return libs
}

// LibraryOwning resolves a file to the library stanza whose source tree
// contains it, for mapping file changes to pending rebuilds.
func (r *Resolver) LibraryOwning(file string) (pkgName, libName, target string, ok bool) {
	pkg, st, found := r.StanzaFor(file)
	if !found || st.Kind != KindLibrary {
		return "", "", "", false
	}
	return pkg.Name, st.Name, st.BuildTarget(pkg.Name), true
}

func (r *Resolver) relative(file string) string {
	if !filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	rel, err := filepath.Rel(r.root, file)
	if err != nil {
		return filepath.Clean(file)
	}
	return rel
}

func underDir(path, dir string) bool {
	if dir == "." || dir == "" {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
