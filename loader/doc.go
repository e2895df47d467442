// Package loader turns module locators into typesys modules.
//
// A Mux dispatches on the locator scheme:
//
//	go:<name>        modules defined in-process through a Catalog
//	wasm:<path>      core WebAssembly modules run by wazero
//	<path>.wasm      same as wasm:<path>
//
// WebAssembly modules carry no type information, so the loader reads a
// WIT sidecar (<path>.wit) next to the binary. Each WIT interface becomes
// a type whose static methods call the matching "<interface>#<func>"
// exports.
package loader
