// Package assetvfs virtualizes game asset access behind an ordered set
// of packages.
//
// A package is a named collection of assets served from loose files on
// disk or from a two-blob archive (a FlatBuffers index plus concatenated
// data, see the arc subpackage). Packages are described by JSONC
// manifests that may reference further packages; [VFS.LoadManifest]
// mounts a whole tree depth first. Requests either target one package by
// name or search all mounted packages in mount order.
//
// # Quick Start
//
// Mount a package tree and read an asset:
//
//	v := assetvfs.New(assetvfs.WithLogger(logger))
//	if err := v.LoadManifest("./content/base"); err != nil {
//	    return err
//	}
//	d := v.Request(assetvfs.Request{Name: "models/crate.mesh", Binary: true})
//	if !d.OK() {
//	    return d.Err()
//	}
//	defer d.Release()
//
// # Asynchronous Loading
//
// Attach a scheduler and resolve requests on its worker pool; callbacks
// run when the engine calls Dispatch on its own thread:
//
//	s := job.New(job.WithWorkers(4))
//	v := assetvfs.New(assetvfs.WithScheduler(s))
//	err := v.RequestAsync(assetvfs.Request{
//	    Name:     "models/crate.mesh",
//	    Binary:   true,
//	    Callback: func(d assetvfs.Data) { spawn(d) },
//	})
//	// per frame, on the main thread:
//	s.Dispatch(8)
//
// # Typed Assets
//
// The handler subpackage layers per-type decoding on top: a handler
// registry resolves an asset's compiled form through the VFS, and falls
// back to importing from editable source files when no compiled form
// exists.
//
// # Hot Reload
//
// [VFS.Watch] observes the backing file of a loose asset and delivers
// fresh content after on-disk changes, coalescing write bursts and
// suppressing rewrites that did not change bytes.
package assetvfs
