// Package wasmbind exposes the source accessor table to WebAssembly guests
// through a wazero host module.
//
// Guests name host wrappers by the integer handles of a resource.Table.
// Every registry method becomes one host function, exported under its
// kebab-case name with the "native" prefix removed:
//
//	nativeGetId       -> get-id       (handle, ptr, cap i32) -> i32
//	nativeIsAttached  -> is-attached  (handle i32) -> i32
//
// String functions copy at most cap bytes of the result to ptr in the
// caller's memory and return the full byte length, so a guest can retry
// with a larger buffer. Bool functions return 0 or 1.
//
// Negative results report failures:
//
//	-1  the wrapper holds the sentinel; its peer was torn down
//	-2  the handle is unknown or its wrapper was collected
//	-3  the method call failed
//	-4  the destination buffer lies outside guest memory
package wasmbind
