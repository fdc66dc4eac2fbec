// Package wasmtest holds small hand-assembled wasm modules for tests and
// examples.
package wasmtest

// WordModule is a hand-assembled core module:
//
//	(memory (export "memory") 1)
//	(global $top (mut i32) (i32.const 1024))
//	(func (export "add") (param i32 i32) (result i32) local.get 0 local.get 1 i32.add)
//	(func (export "load8") (param i32) (result i32) local.get 0 i32.load8_u)
//	(func (export "malloc") (param i32) (result i32)
//	  global.get $top global.get $top local.get 0 i32.add global.set $top)
//	(func (export "free") (param i32))
var WordModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x10, 0x03,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	// func
	0x03, 0x05, 0x04, 0x00, 0x01, 0x01, 0x02,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	// export
	0x07, 0x28, 0x05,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x05, 'l', 'o', 'a', 'd', '8', 0x00, 0x01,
	0x06, 'm', 'a', 'l', 'l', 'o', 'c', 0x00, 0x02,
	0x04, 'f', 'r', 'e', 'e', 0x00, 0x03,
	// code
	0x0a, 0x20, 0x04,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	0x07, 0x00, 0x20, 0x00, 0x2d, 0x00, 0x00, 0x0b,
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	0x02, 0x00, 0x0b,
}
