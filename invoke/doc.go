// Package invoke holds the static table of named operations that foreign
// callers use to reach a peer.
//
// Each Method names one accessor and declares its result as a WIT type so
// bindings know how to lower the value. The table is built once per process
// by Default and torn down by Teardown:
//
//	reg := invoke.Default()
//	v, err := reg.Invoke(h, invoke.NativeGetID)
//
// A call through a host handle whose peer was torn down fails with
// errors.ErrNoPeer instead of touching freed state.
package invoke
