//go:build !wasm

package cabi

type word = uintptr
