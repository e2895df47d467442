// Package wasmcalc is a tiny core WebAssembly module with its WIT
// description, used to exercise the wasm loader without a toolchain.
package wasmcalc

import (
	"os"
	"path/filepath"
)

// WIT describes the exports of Binary.
const WIT = `package calc:wasm;

interface math-utils {
	square: func(n: f64) -> f64;
	negate: func(x: s32) -> s32;
}
`

// Binary exports "math-utils#square" (f64 -> f64) and
// "math-utils#negate" (i32 -> i32).
var Binary = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version

	// type section: (f64) -> f64, (i32) -> i32
	0x01, 0x0b, 0x02,
	0x60, 0x01, 0x7c, 0x01, 0x7c,
	0x60, 0x01, 0x7f, 0x01, 0x7f,

	// function section
	0x03, 0x03, 0x02, 0x00, 0x01,

	// export section
	0x07, 0x29, 0x02,
	0x11, 'm', 'a', 't', 'h', '-', 'u', 't', 'i', 'l', 's', '#', 's', 'q', 'u', 'a', 'r', 'e', 0x00, 0x00,
	0x11, 'm', 'a', 't', 'h', '-', 'u', 't', 'i', 'l', 's', '#', 'n', 'e', 'g', 'a', 't', 'e', 0x00, 0x01,

	// code section
	0x0a, 0x11, 0x02,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa2, 0x0b, // local.get 0; local.get 0; f64.mul
	0x07, 0x00, 0x41, 0x00, 0x20, 0x00, 0x6b, 0x0b, // i32.const 0; local.get 0; i32.sub
}

// WriteFiles writes calc.wasm and calc.wit into dir and returns the path
// of the binary.
func WriteFiles(dir string) (string, error) {
	path := filepath.Join(dir, "calc.wasm")
	if err := os.WriteFile(path, Binary, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "calc.wit"), []byte(WIT), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
