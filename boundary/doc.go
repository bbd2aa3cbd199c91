// Package boundary adapts netcdf files for callers on the other side of a
// runtime boundary: a C caller linking the shared library, a WebAssembly
// host, or a remote client of the HTTP service.
//
// It provides three pieces:
//
//   - [Normalize] turns any error into a [NormalizedError], a closed set of
//     variants that can be serialized and compared across the boundary.
//   - [Registry] hands typed element buffers to the caller as [Buffer]
//     descriptors and takes them back exactly once through
//     [Registry.Release].
//   - [Session] is the single lock-guarded open file used by the stateless C
//     ABI, which reports failures as "", 0 or false.
package boundary
