package dist

// Media types for asset packages in OCI registries.
const (
	// ArtifactType identifies asset packages as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meridian.assetpack.v1"

	// MediaTypeManifest is the media type for the package manifest layer.
	MediaTypeManifest = "application/vnd.meridian.assetpack.manifest.v1+json"

	// MediaTypeIndex is the media type for the archive index layer.
	MediaTypeIndex = "application/vnd.meridian.assetpack.index.v1"

	// MediaTypeData is the media type for the archive data layer.
	MediaTypeData = "application/vnd.meridian.assetpack.data.v1"
)

// AnnotationPackage carries the package name on the artifact manifest so
// registries can surface it without fetching layers.
const AnnotationPackage = "vnd.meridian.assetpack.package"
