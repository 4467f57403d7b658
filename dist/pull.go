package dist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"

	"github.com/meridian-engine/assetvfs/manifest"
)

// Pull materializes the asset package tagged tag in src into destDir and
// returns its parsed manifest.
//
// Layer digests are verified during the copy. The materialized directory
// is a normal local package: mount it with
// [github.com/meridian-engine/assetvfs.LoadManifest] or
// [github.com/meridian-engine/assetvfs/pack.FromManifest]. References
// listed in the manifest are not pulled; fetch each referenced package
// into the directory its reference path names.
func Pull(ctx context.Context, src oras.ReadOnlyTarget, tag, destDir string, opts ...PullOption) (*manifest.Manifest, error) {
	var cfg pullConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if tag == "" {
		return nil, errors.New("dist: tag is required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	store, err := file.New(destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}
	defer store.Close()

	desc, err := oras.Copy(ctx, src, tag, store, tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", tag, err)
	}

	art, err := fetchArtifactManifest(ctx, store, desc)
	if err != nil {
		return nil, err
	}
	if art.ArtifactType != ArtifactType {
		return nil, fmt.Errorf("%w: artifact type %q", ErrNotAssetPack, art.ArtifactType)
	}

	name, err := manifestLayerName(art)
	if err != nil {
		return nil, err
	}

	m, err := manifest.ParseFile(filepath.Join(destDir, filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("parse pulled manifest: %w", err)
	}
	cfg.log().Info("pulled package",
		"package", m.Name,
		"tag", tag,
		"dir", destDir,
	)
	return m, nil
}

func fetchArtifactManifest(ctx context.Context, fetcher content.Fetcher, desc ocispec.Descriptor) (*ocispec.Manifest, error) {
	raw, err := content.FetchAll(ctx, fetcher, desc)
	if err != nil {
		return nil, fmt.Errorf("read artifact manifest: %w", err)
	}
	var art ocispec.Manifest
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAssetPack, err)
	}
	return &art, nil
}

// manifestLayerName locates the package manifest layer and returns the
// file name it was materialized under. It also checks that the archive
// layers made the trip.
func manifestLayerName(art *ocispec.Manifest) (string, error) {
	var name string
	var haveIndex, haveData bool
	for _, layer := range art.Layers {
		switch layer.MediaType {
		case MediaTypeManifest:
			name = layer.Annotations[ocispec.AnnotationTitle]
		case MediaTypeIndex:
			haveIndex = true
		case MediaTypeData:
			haveData = true
		}
	}
	switch {
	case name == "":
		return "", fmt.Errorf("%w: no %s layer", ErrNotAssetPack, MediaTypeManifest)
	case !haveIndex:
		return "", fmt.Errorf("%w: no %s layer", ErrNotAssetPack, MediaTypeIndex)
	case !haveData:
		return "", fmt.Errorf("%w: no %s layer", ErrNotAssetPack, MediaTypeData)
	}
	return name, nil
}
