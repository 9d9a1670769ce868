//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// The ULA writes whole RGBA pixels through unsafe.Pointer uint32 stores,
// which assume little-endian byte order.
var _ = "Spectrum Engine requires a little-endian architecture" + 1
