// Package buildspec loads the YAML build definition consumed by the
// assetpack build command.
//
// A build definition names the packages to compile, where their staged
// files live, and how they reference each other:
//
//	output: dist
//	packages:
//	  - name: basepack
//	    source: staged/base
//	    compression: zstd
//	  - name: levels
//	    source: staged/levels
//	    source_root: raw/levels
//	    references:
//	      - name: basepack
//	        path: ../basepack
//
// Relative paths resolve against the definition file's directory.
package buildspec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/meridian-engine/assetvfs/arc"
	"github.com/meridian-engine/assetvfs/manifest"
)

// ErrInvalid indicates a build definition that parsed but fails
// validation.
var ErrInvalid = errors.New("buildspec: invalid")

// Package describes one package to build.
type Package struct {
	// Name is the package name written into the manifest.
	Name string `yaml:"name"`

	// Source is the staged directory whose files become the archive.
	Source string `yaml:"source"`

	// SourceRoot optionally names an editable source tree recorded in the
	// manifest for importers. It is referenced, not copied.
	SourceRoot string `yaml:"source_root,omitempty"`

	// Compression selects the archive compression: "zstd", "lz4", or
	// "none". Empty means zstd.
	Compression string `yaml:"compression,omitempty"`

	// References list the packages this one pulls in when mounted.
	References []manifest.Reference `yaml:"references,omitempty"`
}

// Spec is a parsed build definition.
type Spec struct {
	// Output is the directory package directories are written under,
	// one subdirectory per package name. Empty means "dist".
	Output string `yaml:"output"`

	Packages []Package `yaml:"packages"`

	// Dir is the absolute directory the definition was loaded from.
	// Filled by Load; not part of the file format.
	Dir string `yaml:"-"`
}

// Load reads and validates the build definition at path.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	spec.Dir = dir
	return spec, nil
}

// Parse decodes and validates a build definition document.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("buildspec: parse: %w", err)
	}
	if spec.Output == "" {
		spec.Output = "dist"
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) validate() error {
	if len(s.Packages) == 0 {
		return fmt.Errorf("%w: no packages defined", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(s.Packages))
	for i, p := range s.Packages {
		if p.Name == "" {
			return fmt.Errorf("%w: package %d: name is required", ErrInvalid, i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate package %q", ErrInvalid, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Source == "" {
			return fmt.Errorf("%w: package %q: source is required", ErrInvalid, p.Name)
		}
		if _, err := p.Algorithm(); err != nil {
			return err
		}
		for _, ref := range p.References {
			if ref.Name == "" || ref.Path == "" {
				return fmt.Errorf("%w: package %q: references need name and path", ErrInvalid, p.Name)
			}
		}
	}
	return nil
}

// Algorithm maps the package's compression string to the archive
// algorithm.
func (p *Package) Algorithm() (arc.Compression, error) {
	switch p.Compression {
	case "", "zstd":
		return arc.CompressionZstd, nil
	case "lz4":
		return arc.CompressionLZ4, nil
	case "none":
		return arc.CompressionNone, nil
	default:
		return 0, fmt.Errorf("%w: package %q: unknown compression %q", ErrInvalid, p.Name, p.Compression)
	}
}

// OutputDir returns the absolute directory the named package builds into.
func (s *Spec) OutputDir(pkg string) string {
	return filepath.Join(s.Resolve(s.Output), pkg)
}

// SourceDir returns the absolute staged-source directory for p.
func (s *Spec) SourceDir(p *Package) string {
	return s.Resolve(p.Source)
}

// Resolve makes path absolute relative to the definition directory.
// Absolute paths pass through unchanged.
func (s *Spec) Resolve(path string) string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}
