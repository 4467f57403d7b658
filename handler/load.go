package handler

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/meridian-engine/assetvfs"
	"github.com/meridian-engine/assetvfs/job"
)

// Load resolves an asset of type t into an engine object.
//
// The compiled form is requested through the VFS first and decoded with
// the handler's codec capability. When no compiled form exists anywhere
// in scope, Load falls back to importing: it locates an editable source
// file, runs the importer registered for the source extension, and hands
// the importer a write-back hook so the compiled form can be persisted
// for the next load.
//
// The returned Data reports where the bytes came from: the compiled
// payload on the fast path, the raw source bytes (FlagFromSource) after
// an import. The caller owns it; Release when done. On any failure the
// asset is nil and Data.Status says why.
func (r *Registry) Load(v *assetvfs.VFS, t Type, assetName, packageName string) (any, assetvfs.Data) {
	h, ok := r.handlers[t]
	if !ok {
		r.log().Error("no handler for asset type", "type", uint16(t), "asset", assetName)
		return nil, assetvfs.Data{
			Name:    assetName,
			Package: packageName,
			Status:  assetvfs.StatusInternal,
		}
	}

	d := v.Request(assetvfs.Request{Package: packageName, Name: assetName, Binary: h.Binary()})
	switch d.Status {
	case assetvfs.StatusOK:
		asset, err := decode(h, &d)
		if err != nil {
			r.log().Error("compiled asset decode failed",
				"type", h.TypeName(), "asset", assetName, "package", d.Package, "error", err)
			d.Release()
			d.Status = assetvfs.StatusParseError
			return nil, d
		}
		return asset, d

	case assetvfs.StatusNotFound, assetvfs.StatusNotFoundAnywhere:
		// Only a clean miss falls through to source import. Read and
		// routing failures stay terminal.
		return r.importFromSource(v, h, assetName, packageName, d)

	default:
		return nil, d
	}
}

// LoadAsync runs the Load policy on the VFS's scheduler. cb fires
// exactly once with the outcome, failures included, on the goroutine
// that calls the scheduler's Dispatch. The returned error covers
// submission only.
func (r *Registry) LoadAsync(v *assetvfs.VFS, t Type, assetName, packageName string, cb func(any, assetvfs.Data)) error {
	s := v.Scheduler()
	if s == nil {
		return assetvfs.ErrNoScheduler
	}

	var (
		asset  any
		result assetvfs.Data
	)
	return s.Submit(job.Job{
		Name: assetName,
		Run: func(context.Context) error {
			asset, result = r.Load(v, t, assetName, packageName)
			return result.Err()
		},
		OnDone: func(err error) {
			if err != nil {
				if result.OK() {
					// A panicking load never produced a result.
					asset = nil
					result = assetvfs.Data{Name: assetName, Package: packageName, Status: assetvfs.StatusInternal}
				}
				r.log().Warn("async load failed", "asset", assetName, "status", result.Status)
			}
			if cb != nil {
				cb(asset, result)
			}
		},
	})
}

// decode turns the compiled payload into an engine object through the
// handler's codec capability. Handlers without one pass the payload
// through raw: bytes for binary types, a string for text types.
func decode(h Handler, d *assetvfs.Data) (any, error) {
	if h.Binary() {
		if c, ok := h.(BinaryCodec); ok {
			return c.DecodeBinary(d.Payload)
		}
		return d.Payload, nil
	}
	if c, ok := h.(TextCodec); ok {
		return c.DecodeText(d.Text())
	}
	return d.Text(), nil
}

func (r *Registry) importFromSource(v *assetvfs.VFS, h Handler, assetName, packageName string, miss assetvfs.Data) (any, assetvfs.Data) {
	srcPath, owner, ok := findSource(v, assetName, packageName)
	if !ok {
		return nil, miss
	}
	ext := strings.ToLower(filepath.Ext(srcPath))

	imp, ok := r.ImporterFor(h.AssetType(), ext)
	if !ok {
		r.log().Warn("no importer for source",
			"type", h.TypeName(), "asset", assetName, "source", srcPath, "ext", ext)
		miss.Status = assetvfs.StatusImporterNotFound
		return nil, miss
	}

	src := v.RequestFromDisk(srcPath, h.Binary())
	if !src.OK() {
		r.log().Error("source read failed", "asset", assetName, "source", srcPath, "status", src.Status)
		miss.Status = assetvfs.StatusReadError
		return nil, miss
	}

	asset, err := imp.Import(src.Payload, ImportParams{
		AssetName:   assetName,
		SourcePath:  srcPath,
		SourceExt:   ext,
		PackageName: owner,
		Persist: func(payload []byte) error {
			return v.Write(assetName, owner, payload, h.Binary())
		},
	})
	if err != nil {
		r.log().Error("import failed",
			"type", h.TypeName(), "asset", assetName, "source", srcPath, "error", err)
		miss.Status = assetvfs.StatusParseError
		return nil, miss
	}

	r.log().Info("asset imported from source",
		"type", h.TypeName(), "asset", assetName, "source", srcPath, "package", owner)

	d := assetvfs.Data{
		Name:    assetName,
		Package: owner,
		Path:    srcPath,
		Payload: src.Payload,
		Flags:   assetvfs.FlagFromSource,
		Status:  assetvfs.StatusOK,
	}
	if h.Binary() {
		d.Flags |= assetvfs.FlagBinary
	}
	return asset, d
}

// findSource locates an editable source file for the asset and the
// package that owns it. An empty package name searches mount order.
func findSource(v *assetvfs.VFS, assetName, packageName string) (path, owner string, ok bool) {
	if packageName != "" {
		path, ok = v.SourcePathFor(assetName, packageName)
		return path, packageName, ok
	}
	for _, name := range v.Packages() {
		if path, ok = v.SourcePathFor(assetName, name); ok {
			return path, name, true
		}
	}
	return "", "", false
}

// As asserts a loaded asset to a concrete type, accepting both the
// value and pointer form an importer may have returned.
func As[T any](asset any) (*T, bool) {
	switch a := asset.(type) {
	case *T:
		return a, true
	case T:
		return &a, true
	}
	return nil, false
}
