package assetvfs

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-engine/assetvfs/job"
	"github.com/meridian-engine/assetvfs/pack"
)

// VFS is the virtual filesystem for asset content.
//
// Packages are mounted during startup, typically through LoadManifest.
// The mounted set is frozen before concurrent requests begin: Mount is
// not safe to call concurrently with Request, and request paths read the
// package list without locking. Watch registration has its own lock and
// may be used at runtime.
type VFS struct {
	packages []pack.Package
	byName   map[string]pack.Package

	logger    *slog.Logger
	scheduler *job.Scheduler
	notifier  Notifier

	readGroup singleflight.Group

	watches *watchRegistry
}

// New creates an empty VFS.
func New(opts ...Option) *VFS {
	v := &VFS{
		byName:  make(map[string]pack.Package),
		watches: newWatchRegistry(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// log returns the logger, falling back to a discard logger if nil.
func (v *VFS) log() *slog.Logger {
	if v.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return v.logger
}

// Scheduler returns the scheduler configured with WithScheduler, or nil.
func (v *VFS) Scheduler() *job.Scheduler {
	return v.scheduler
}

// Mount appends a package to the search order. Mounting a name twice is
// an error; resolution skips already-mounted names before constructing a
// package, so manifest cycles never reach this.
func (v *VFS) Mount(p pack.Package) error {
	name := p.Name()
	if name == "" {
		return errors.New("assetvfs: package has no name")
	}
	if _, ok := v.byName[name]; ok {
		return ErrDuplicate
	}
	v.packages = append(v.packages, p)
	v.byName[name] = p
	v.log().Debug("mounted package", "package", name)
	return nil
}

// Lookup returns the mounted package with the given name.
func (v *VFS) Lookup(name string) (pack.Package, bool) {
	p, ok := v.byName[name]
	return p, ok
}

// Packages returns the mounted package names in mount order, which is
// the unscoped search priority.
func (v *VFS) Packages() []string {
	names := make([]string, len(v.packages))
	for i, p := range v.packages {
		names[i] = p.Name()
	}
	return names
}

// Request resolves an asset synchronously.
//
// A scoped request (Request.Package set) probes exactly one package and
// reports its miss immediately. An unscoped request searches packages in
// mount order: a package that does not have the asset is skipped, a
// package that fails reading it ends the search with StatusReadError,
// and exhausting the order yields StatusNotFoundAnywhere.
func (v *VFS) Request(req Request) Data {
	d := Data{
		Name:   req.Name,
		Tag:    req.Tag,
		Status: StatusInternal,
	}
	if req.Binary {
		d.Flags |= FlagBinary
	}
	if req.Name == "" {
		v.log().Error("request with empty asset name")
		return d
	}

	if req.Package != "" {
		return v.requestScoped(req, d)
	}
	return v.requestSearch(req, d)
}

func (v *VFS) requestScoped(req Request, d Data) Data {
	p, ok := v.byName[req.Package]
	if !ok {
		v.log().Warn("request for unknown package", "package", req.Package, "asset", req.Name)
		d.Status = StatusPackageNotFound
		return d
	}
	d.Package = req.Package

	payload, err := p.Get(req.Name, req.Binary)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.Status = StatusNotFound
			return d
		}
		v.log().Error("asset read failed", "package", req.Package, "asset", req.Name, "error", err)
		d.Status = StatusReadError
		return d
	}

	if path, ok := p.PathFor(req.Name); ok {
		d.Path = path
	}
	d.Payload = payload
	d.Status = StatusOK
	return d
}

// searchResult is the shared outcome of a deduplicated unscoped search.
type searchResult struct {
	payload []byte
	pkg     string
	path    string
	status  Status
}

func (v *VFS) requestSearch(req Request, d Data) Data {
	// Concurrent requests for the same asset share one search; every
	// caller still gets an owned copy of the payload.
	mode := "t"
	if req.Binary {
		mode = "b"
	}
	res, _, _ := v.readGroup.Do(mode+"\x00"+req.Name, func() (any, error) {
		return v.search(req.Name, req.Binary), nil
	})
	sr := res.(searchResult)

	d.Package = sr.pkg
	d.Path = sr.path
	d.Status = sr.status
	if sr.status == StatusOK {
		d.Payload = append([]byte(nil), sr.payload...)
	}
	return d
}

func (v *VFS) search(name string, binary bool) searchResult {
	for _, p := range v.packages {
		payload, err := p.Get(name, binary)
		if err == nil {
			path, _ := p.PathFor(name)
			return searchResult{payload: payload, pkg: p.Name(), path: path, status: StatusOK}
		}
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		// A real I/O failure is not maskable by later packages: the
		// asset may exist here and silently shadow a stale copy below.
		v.log().Error("asset read failed", "package", p.Name(), "asset", name, "error", err)
		return searchResult{pkg: p.Name(), status: StatusReadError}
	}
	return searchResult{status: StatusNotFoundAnywhere}
}

// RequestFromDisk reads a file directly, bypassing the package set. The
// asset name of the result is the file's base name.
func (v *VFS) RequestFromDisk(path string, binary bool) Data {
	d := Data{
		Name: filepath.Base(path),
		Path: path,
	}
	if binary {
		d.Flags |= FlagBinary
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.Status = StatusNotFound
			return d
		}
		v.log().Error("disk read failed", "path", path, "error", err)
		d.Status = StatusReadError
		return d
	}
	d.Payload = payload
	d.Status = StatusOK
	return d
}

// Write persists an asset into a named package. The package name is
// mandatory; writes never search.
//
// Write is not safe against concurrent reads of the same asset; the
// caller serializes, as with every other mutation of package content.
func (v *VFS) Write(assetName, packageName string, payload []byte, binary bool) error {
	p, ok := v.byName[packageName]
	if !ok {
		return ErrPackageNotFound
	}
	if err := p.Write(assetName, payload, binary); err != nil {
		v.log().Error("asset write failed", "package", packageName, "asset", assetName, "error", err)
		return err
	}
	v.log().Debug("asset written", "package", packageName, "asset", assetName, "bytes", len(payload))
	return nil
}

// PathFor returns the backing path for an asset. An empty package name
// searches mount order and answers for the first package that serves
// the asset, so the path always matches what an unscoped Request would
// return; a hit in an archive package reports not-ok.
func (v *VFS) PathFor(assetName, packageName string) (string, bool) {
	if packageName != "" {
		p, ok := v.byName[packageName]
		if !ok {
			return "", false
		}
		return p.PathFor(assetName)
	}
	for _, p := range v.packages {
		if v.has(p, assetName) {
			return p.PathFor(assetName)
		}
	}
	return "", false
}

// SourcePathFor returns the path of an editable source file the asset
// could be imported from. An empty package name searches mount order.
func (v *VFS) SourcePathFor(assetName, packageName string) (string, bool) {
	if packageName != "" {
		p, ok := v.byName[packageName]
		if !ok {
			return "", false
		}
		return p.SourcePathFor(assetName)
	}
	for _, p := range v.packages {
		if path, ok := p.SourcePathFor(assetName); ok {
			return path, true
		}
	}
	return "", false
}

// has reports whether p currently serves assetName, without reading it.
func (v *VFS) has(p pack.Package, assetName string) bool {
	if a, ok := p.(*pack.Archive); ok {
		return a.Archive().Contains(assetName)
	}
	path, ok := p.PathFor(assetName)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Close releases resources held by the VFS: the change notifier and any
// mounted packages that are closers. The scheduler is owned by the
// caller and left running.
func (v *VFS) Close() error {
	var errs []error
	if v.notifier != nil {
		if err := v.notifier.Close(); err != nil {
			errs = append(errs, err)
		}
		v.notifier = nil
	}
	for _, p := range v.packages {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
