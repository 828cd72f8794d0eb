package wasmbind

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/source-peer/invoke"
	"github.com/wippyai/source-peer/peer"
	"github.com/wippyai/source-peer/resource"
	"github.com/wippyai/source-peer/source"
	"github.com/wippyai/source-peer/style"
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, items ...[]byte) []byte {
	body := uleb(uint32(len(items)))
	for _, it := range items {
		body = append(body, it...)
	}
	out := append([]byte{id}, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// guestModule assembles a guest that imports get-id and is-attached from
// module and re-exports them as "call" and "attached" with one page of
// memory.
func guestModule(module string) []byte {
	const i32 = 0x7f

	types := section(1,
		[]byte{0x60, 3, i32, i32, i32, 1, i32},
		[]byte{0x60, 1, i32, 1, i32},
	)
	imports := section(2,
		concat(wasmName(module), wasmName("get-id"), []byte{0x00, 0}),
		concat(wasmName(module), wasmName("is-attached"), []byte{0x00, 1}),
	)
	funcs := section(3, []byte{0}, []byte{1})
	memory := section(5, []byte{0x00, 1})
	exports := section(7,
		concat(wasmName("memory"), []byte{0x02, 0}),
		concat(wasmName("call"), []byte{0x00, 2}),
		concat(wasmName("attached"), []byte{0x00, 3}),
	)

	callBody := []byte{0x00, 0x20, 0, 0x20, 1, 0x20, 2, 0x10, 0, 0x0b}
	attachedBody := []byte{0x00, 0x20, 0, 0x10, 1, 0x0b}
	code := section(10,
		concat(uleb(uint32(len(callBody))), callBody),
		concat(uleb(uint32(len(attachedBody))), attachedBody),
	)

	return concat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		types, imports, funcs, memory, exports, code,
	)
}

type fixture struct {
	ctx   context.Context
	guest api.Module
	table *resource.Table[peer.Handle]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	table := resource.NewTable[peer.Handle]()
	b, err := Instantiate(ctx, rt, invoke.Default(), table)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if b.Name() != DefaultModuleName {
		t.Errorf("Name = %q", b.Name())
	}

	guest, err := rt.Instantiate(ctx, guestModule(DefaultModuleName))
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	return &fixture{ctx: ctx, guest: guest, table: table}
}

func (f *fixture) call(t *testing.T, fn string, params ...uint64) int32 {
	t.Helper()
	res, err := f.guest.ExportedFunction(fn).Call(f.ctx, params...)
	if err != nil {
		t.Fatalf("%s: %v", fn, err)
	}
	return api.DecodeI32(res[0])
}

func (f *fixture) insert(t *testing.T, h *peer.Handle) uint64 {
	t.Helper()
	id, err := f.table.Insert(h)
	if err != nil {
		t.Fatal(err)
	}
	return uint64(id)
}

func TestExportName(t *testing.T) {
	tests := map[string]string{
		invoke.NativeGetID:          "get-id",
		invoke.NativeGetAttribution: "get-attribution",
		invoke.NativeGetKind:        "get-kind",
		invoke.NativeGetURL:         "get-url",
		invoke.NativeIsAttached:     "is-attached",
		"plain":                     "plain",
	}
	for in, want := range tests {
		if got := ExportName(in); got != want {
			t.Errorf("ExportName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGuestReadsID(t *testing.T) {
	f := newFixture(t)

	src, _ := source.New("r1", source.KindGeoJSON)
	h, _ := peer.NewHandle(src)
	id := f.insert(t, h)

	n := f.call(t, "call", id, 0, 32)
	if n != 2 {
		t.Fatalf("get-id returned %d, want 2", n)
	}
	data, ok := f.guest.Memory().Read(0, uint32(n))
	if !ok || string(data) != "r1" {
		t.Errorf("guest memory = %q, %v", data, ok)
	}
	runtime.KeepAlive(h)
}

func TestGuestTruncatedRead(t *testing.T) {
	f := newFixture(t)

	long := strings.Repeat("x", 40)
	src, _ := source.New(long, source.KindVector)
	h, _ := peer.NewHandle(src)
	id := f.insert(t, h)

	n := f.call(t, "call", id, 100, 16)
	if n != 40 {
		t.Fatalf("get-id returned %d, want full length 40", n)
	}
	data, _ := f.guest.Memory().Read(100, 17)
	if string(data[:16]) != long[:16] || data[16] != 0 {
		t.Errorf("truncated write = %q", data)
	}
	runtime.KeepAlive(h)
}

func TestGuestAttachedAndTeardown(t *testing.T) {
	f := newFixture(t)
	st := style.New()
	defer st.Close()

	src, _ := source.New("r1", source.KindRaster)
	h, _ := peer.NewHandle(src)
	id := f.insert(t, h)

	if got := f.call(t, "attached", id); got != 0 {
		t.Errorf("attached before AddTo = %d, want 0", got)
	}
	if err := h.AddTo(st); err != nil {
		t.Fatal(err)
	}
	if got := f.call(t, "attached", id); got != 1 {
		t.Errorf("attached after AddTo = %d, want 1", got)
	}

	if err := st.Destroy("r1"); err != nil {
		t.Fatal(err)
	}
	if got := f.call(t, "call", id, 0, 32); got != CodeNoPeer {
		t.Errorf("get-id after teardown = %d, want %d", got, CodeNoPeer)
	}
	if got := f.call(t, "attached", id); got != CodeNoPeer {
		t.Errorf("is-attached after teardown = %d, want %d", got, CodeNoPeer)
	}
	runtime.KeepAlive(h)
}

func TestGuestErrorCodes(t *testing.T) {
	f := newFixture(t)

	if got := f.call(t, "call", 999, 0, 32); got != CodeUnknownHandle {
		t.Errorf("unknown handle = %d, want %d", got, CodeUnknownHandle)
	}
	if got := f.call(t, "attached", 0); got != CodeUnknownHandle {
		t.Errorf("handle 0 = %d, want %d", got, CodeUnknownHandle)
	}

	src, _ := source.New("r1", source.KindRaster)
	h, _ := peer.NewHandle(src)
	id := f.insert(t, h)

	if got := f.call(t, "call", id, 65535, 32); got != CodeOutOfRange {
		t.Errorf("out of range write = %d, want %d", got, CodeOutOfRange)
	}
	if got := f.call(t, "call", id, 65535, 0); got != 2 {
		t.Errorf("zero capacity = %d, want length 2", got)
	}

	if !f.table.Remove(resource.Handle(id)) {
		t.Fatal("Remove failed")
	}
	other, _ := source.New("r2", source.KindRaster)
	h2, _ := peer.NewHandle(other)
	f.insert(t, h2)
	if got := f.call(t, "call", id, 0, 32); got != CodeUnknownHandle {
		t.Errorf("stale handle after slot reuse = %d, want %d", got, CodeUnknownHandle)
	}
	runtime.KeepAlive(h2)
	runtime.KeepAlive(h)
}

func TestInstantiate_CustomName(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	table := resource.NewTable[peer.Handle]()
	b, err := Instantiate(ctx, rt, invoke.Default(), table, WithModuleName("test:source"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "test:source" {
		t.Errorf("Name = %q", b.Name())
	}
	want := []string{"get-id", "get-attribution", "get-kind", "get-url", "is-attached"}
	got := b.Exports()
	if len(got) != len(want) {
		t.Fatalf("Exports = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Exports[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := rt.Instantiate(ctx, guestModule("test:source")); err != nil {
		t.Errorf("guest against custom name: %v", err)
	}
	if err := b.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestInstantiate_Errors(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := Instantiate(ctx, rt, nil, resource.NewTable[peer.Handle]()); err == nil {
		t.Error("nil registry should fail")
	}

	reg := invoke.New()
	_ = reg.Register(invoke.Method{
		Name:   "nativeGetZoom",
		Result: wit.F64{},
		Call:   func(*peer.Peer) (any, error) { return 1.0, nil },
	})
	if _, err := Instantiate(ctx, rt, reg, resource.NewTable[peer.Handle]()); err == nil {
		t.Error("unsupported result type should fail")
	}
}
