// Package handler maps asset types onto load behavior: how a compiled
// asset decodes into an engine object, and how one is imported from an
// editable source file when no compiled form exists.
package handler

// Type identifies an asset type. Values are engine-assigned and stable;
// compiled blobs carry them in their header.
type Type uint16

// Handler describes one asset type. Concrete handlers add capabilities
// by implementing BinaryCodec, TextCodec, Releaser, or by registering
// importers for source extensions.
type Handler interface {
	// AssetType returns the type this handler serves.
	AssetType() Type
	// TypeName returns a short name for logs and tooling.
	TypeName() string
	// Binary reports whether the compiled form is binary rather than
	// text; requests for the asset carry this mode.
	Binary() bool
}

// BinaryCodec converts between an engine object and its compiled binary
// form.
type BinaryCodec interface {
	EncodeBinary(asset any) ([]byte, error)
	DecodeBinary(blob []byte) (any, error)
}

// TextCodec converts between an engine object and its compiled text
// form.
type TextCodec interface {
	EncodeText(asset any) (string, error)
	DecodeText(text string) (any, error)
}

// Releaser frees engine-side resources held by a loaded asset. Handlers
// without it have nothing beyond garbage-collected memory to free.
type Releaser interface {
	Release(asset any)
}

// ImportParams carries the context of one import.
type ImportParams struct {
	// AssetName is the name the asset was requested under.
	AssetName string
	// SourcePath is the file the source bytes came from.
	SourcePath string
	// SourceExt is the lowercased extension of SourcePath, with dot.
	SourceExt string
	// PackageName is the package that owned the source file.
	PackageName string

	// Persist writes a compiled form back into the owning package, so
	// the next load takes the fast path. Best effort: the owning
	// package may be read-only, and an importer decides whether that
	// failure matters.
	Persist func(payload []byte) error
}

// Importer builds an engine object from raw source file bytes.
type Importer interface {
	Import(src []byte, p ImportParams) (any, error)
}

// ImportFunc adapts a function to the Importer interface.
type ImportFunc func(src []byte, p ImportParams) (any, error)

func (f ImportFunc) Import(src []byte, p ImportParams) (any, error) {
	return f(src, p)
}
