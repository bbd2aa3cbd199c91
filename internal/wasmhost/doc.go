// Package wasmhost runs the ncwasi reactor under wazero and exposes its
// exports as Go methods.
//
// # Calling convention
//
// Arguments are copied into guest memory through the guest's malloc and
// freed after the call. Strings come back as NUL-terminated guest pointers
// and are released with free_string. Range results come back as a pointer
// to a {ptr, len, cap} descriptor of three little-endian u32 words; the
// elements are copied out and the descriptor is handed to drop_bytes exactly
// once, even when decoding fails.
//
// A Module serializes calls; the guest holds a single session.
package wasmhost
