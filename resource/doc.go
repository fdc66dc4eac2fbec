// Package resource provides the handle table behind Go-side native addresses.
//
// Native code implemented in Go has no raw memory to hand out, so strings,
// pinned byte buffers, objects and callback trampolines are stored in a
// Table and addressed by their handle. Handle 0 is never issued, which keeps
// the zero word free to mean a null pointer.
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h, err := table.Insert(resource.TypeString, "hello")
//
//	// Type-checked retrieval
//	v, ok := table.GetTyped(h, resource.TypeString)   // ok
//	v, ok = table.GetTyped(h, resource.TypeBytes)     // !ok
//
//	// Release
//	table.Remove(h)
//
// Values are not garbage collected through the table. Whoever inserted a
// value decides when to Remove it.
package resource
