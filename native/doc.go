// Package native provides the functions the dispatcher calls.
//
// Every native function has a fixed arity of at most eight machine words and
// returns one word. Two implementations exist:
//
//   - Go functions, adapted with Go. The shapes Func0 through Func8 are
//     called directly; other integer and bool signatures go through
//     reflection.
//   - Exports of a core wasm module instantiated with wazero. Parameters
//     must be i32 or i64.
//
// Go natives address strings and buffers through a GoHeap, a handle table
// where 0 is never a valid address. Wasm natives use WasmHeap, which places
// strings in guest memory via the module's malloc and free exports.
//
// Registry groups functions by namespace for installation into an
// interpreter module.
package native
