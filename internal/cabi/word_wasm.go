package cabi

// Linear memory is addressed with 32-bit offsets even though uintptr is
// 64 bits wide on GOARCH=wasm.
type word = uint32
