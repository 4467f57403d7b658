// Package dist moves asset packages through OCI registries.
//
// A package travels as an OCI 1.1 artifact: one layer for the package
// manifest and one each for the archive index and data blobs. Push stages
// a built package directory and tags it in any ORAS target; Pull
// materializes the artifact back into a directory that mounts through the
// normal local path ([github.com/meridian-engine/assetvfs.LoadManifest]).
//
// Both operations accept the ORAS target interfaces, so the same code
// works against a remote repository, a local OCI layout, or an in-memory
// store.
package dist
