// Package vfile provides a random-access virtual file over pluggable byte
// sources.
//
// A [File] keeps a cursor and turns every Read into exactly one
// [Source.ReadSlice] call. Nothing is cached: callers that want fewer round
// trips wrap the File in a bufio.Reader sized to the bursts they expect.
//
// Two sources are built in:
//
//   - [SliceSource] reads from any io.ReaderAt of known size (a byte slice,
//     an *os.File, a host blob adapter).
//   - [HTTPSource] issues one ranged GET per slice against a remote URL.
//
// The vfile/s3 and vfile/minio packages add object store sources.
//
// # Seeking
//
// Seek resolves the requested position and stores it modulo the file size,
// so seeking past either end wraps around instead of failing:
//
//	f := vfile.New(vfile.NewSliceSource(bytes.NewReader(data), 100))
//	f.Seek(130, io.SeekStart)  // cursor 30
//	f.Seek(-10, io.SeekStart)  // cursor 90
//
// A file of size zero keeps its cursor at zero.
package vfile
