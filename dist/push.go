package dist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"

	"github.com/meridian-engine/assetvfs/manifest"
)

// Push publishes the built package at dir to dst under tag.
//
// The package must be archive-backed: the artifact carries the manifest
// file, the archive index, and the archive data as separate layers. A
// package's references are not pushed with it; each referenced package is
// its own artifact.
//
// dir names the package directory, or the manifest file directly when the
// package uses a non-default manifest name. The returned descriptor
// identifies the artifact manifest in dst.
func Push(ctx context.Context, dst oras.Target, tag, dir string, opts ...PushOption) (ocispec.Descriptor, error) {
	var cfg pushConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if tag == "" {
		return ocispec.Descriptor{}, errors.New("dist: tag is required")
	}

	manifestPath := dir
	info, err := os.Stat(manifestPath)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if info.IsDir() {
		manifestPath = filepath.Join(manifestPath, manifest.DefaultFileName)
	}

	m, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if m.Archive == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %s", ErrNotArchive, m.Name)
	}
	for _, rel := range []string{m.Archive.Index, m.Archive.Data} {
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return ocispec.Descriptor{}, fmt.Errorf("dist: archive path %q escapes the package directory", rel)
		}
	}

	store, err := file.New(m.Dir)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("stage package: %w", err)
	}
	defer store.Close()

	stage := []struct {
		name      string
		mediaType string
	}{
		{filepath.Base(manifestPath), MediaTypeManifest},
		{m.Archive.Index, MediaTypeIndex},
		{m.Archive.Data, MediaTypeData},
	}
	layers := make([]ocispec.Descriptor, 0, len(stage))
	for _, s := range stage {
		desc, err := store.Add(ctx, s.name, s.mediaType, "")
		if err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("stage %s: %w", s.name, err)
		}
		layers = append(layers, desc)
	}

	annotations := map[string]string{AnnotationPackage: m.Name}
	for k, v := range cfg.annotations {
		annotations[k] = v
	}

	root, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              layers,
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("pack manifest: %w", err)
	}
	if err := store.Tag(ctx, root, tag); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("tag staged artifact: %w", err)
	}

	desc, err := oras.Copy(ctx, store, tag, dst, tag, oras.DefaultCopyOptions)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push %s: %w", tag, err)
	}
	cfg.log().Info("pushed package",
		"package", m.Name,
		"tag", tag,
		"digest", desc.Digest.String(),
	)

	for _, t := range cfg.tags {
		if err := dst.Tag(ctx, desc, t); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %s: %w", t, err)
		}
		cfg.log().Debug("applied extra tag", "tag", t)
	}

	return desc, nil
}
