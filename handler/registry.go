package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrRegistered indicates a handler or importer slot is already taken.
var ErrRegistered = errors.New("handler: already registered")

type importerKey struct {
	t   Type
	ext string
}

// Registry holds the handlers and importers for an engine. Registration
// happens during startup; the registry is read-only afterward, and
// lookups take no lock.
type Registry struct {
	logger    *slog.Logger
	handlers  map[Type]Handler
	importers map[importerKey]Importer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers:  make(map[Type]Handler),
		importers: make(map[importerKey]Importer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Register adds a handler. Each type registers at most once.
func (r *Registry) Register(h Handler) error {
	t := h.AssetType()
	if existing, ok := r.handlers[t]; ok {
		return fmt.Errorf("%w: type %d (%s)", ErrRegistered, t, existing.TypeName())
	}
	r.handlers[t] = h
	r.log().Debug("handler registered", "type", uint16(t), "name", h.TypeName())
	return nil
}

// RegisterImporter adds an importer for source files with the given
// extension, producing assets of the given type. The extension is
// case-insensitive; a leading dot is optional.
func (r *Registry) RegisterImporter(t Type, ext string, imp Importer) error {
	key := importerKey{t: t, ext: normalizeExt(ext)}
	if _, ok := r.importers[key]; ok {
		return fmt.Errorf("%w: importer for type %d ext %q", ErrRegistered, t, key.ext)
	}
	r.importers[key] = imp
	r.log().Debug("importer registered", "type", uint16(t), "ext", key.ext)
	return nil
}

// Handler returns the handler for a type.
func (r *Registry) Handler(t Type) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// ImporterFor returns the importer for a (type, source extension) pair.
func (r *Registry) ImporterFor(t Type, ext string) (Importer, bool) {
	imp, ok := r.importers[importerKey{t: t, ext: normalizeExt(ext)}]
	return imp, ok
}

// Release frees engine-side resources of a loaded asset through the
// type's Releaser capability. Nil assets and types without a Releaser
// are no-ops, so callers may release unconditionally.
func (r *Registry) Release(t Type, asset any) {
	if asset == nil {
		return
	}
	h, ok := r.handlers[t]
	if !ok {
		return
	}
	if rel, ok := h.(Releaser); ok {
		rel.Release(asset)
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
