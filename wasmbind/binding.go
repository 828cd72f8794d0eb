package wasmbind

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/source-peer/errors"
	"github.com/wippyai/source-peer/invoke"
	"github.com/wippyai/source-peer/peer"
	"github.com/wippyai/source-peer/resource"
)

// DefaultModuleName is the import module guests link against.
const DefaultModuleName = "mbgl:style/source"

// Result codes returned to the guest.
const (
	CodeNoPeer        int32 = -1
	CodeUnknownHandle int32 = -2
	CodeCallFailed    int32 = -3
	CodeOutOfRange    int32 = -4
)

var (
	stringParams = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}
	boolParams   = []api.ValueType{api.ValueTypeI32}
	i32Result    = []api.ValueType{api.ValueTypeI32}
)

type config struct {
	moduleName string
}

// Option configures Instantiate.
type Option func(*config)

// WithModuleName overrides the host module name.
func WithModuleName(name string) Option {
	return func(c *config) {
		c.moduleName = name
	}
}

// Binding is an instantiated host module.
type Binding struct {
	module  api.Module
	name    string
	exports []string
}

// Name returns the host module name.
func (b *Binding) Name() string { return b.name }

// Exports returns the exported function names in registry order.
func (b *Binding) Exports() []string {
	out := make([]string, len(b.exports))
	copy(out, b.exports)
	return out
}

// Close closes the host module.
func (b *Binding) Close(ctx context.Context) error {
	return b.module.Close(ctx)
}

// Instantiate builds and instantiates the host module in rt. Guests must be
// instantiated afterwards to resolve their imports against it.
func Instantiate(ctx context.Context, rt wazero.Runtime, reg *invoke.Registry, table *resource.Table[peer.Handle], opts ...Option) (*Binding, error) {
	if rt == nil || reg == nil || table == nil {
		return nil, errors.InvalidInput(errors.PhaseBind, "runtime, registry and table are required")
	}

	cfg := config{moduleName: DefaultModuleName}
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := rt.NewHostModuleBuilder(cfg.moduleName)
	var exports []string

	for _, m := range reg.Methods() {
		name := ExportName(m.Name)
		b := &binder{reg: reg, table: table, method: m.Name}

		switch m.Result.(type) {
		case wit.String:
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(b.callString), stringParams, i32Result).
				WithName(name).
				Export(name)
		case wit.Bool:
			builder.NewFunctionBuilder().
				WithGoModuleFunction(api.GoModuleFunc(b.callBool), boolParams, i32Result).
				WithName(name).
				Export(name)
		default:
			return nil, errors.Registration(errors.PhaseBind, m.Name,
				fmt.Errorf("unsupported result type %T", m.Result))
		}
		exports = append(exports, name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseBind, errors.KindRegistration, err,
			fmt.Sprintf("instantiate host module %q", cfg.moduleName))
	}

	Logger().Debug("host module instantiated",
		zap.String("module", cfg.moduleName),
		zap.Strings("exports", exports))

	return &Binding{module: mod, name: cfg.moduleName, exports: exports}, nil
}

// ExportName converts a registry method name to its guest export name.
func ExportName(method string) string {
	name := strings.TrimPrefix(method, "native")

	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

type binder struct {
	reg    *invoke.Registry
	table  *resource.Table[peer.Handle]
	method string
}

func (b *binder) invoke(stack []uint64) (any, int32) {
	h := resource.Handle(api.DecodeU32(stack[0]))

	hh, ok := b.table.Get(h)
	if !ok {
		return nil, CodeUnknownHandle
	}

	v, err := b.reg.Invoke(hh, b.method)
	switch {
	case stderrors.Is(err, errors.ErrNoPeer):
		return nil, CodeNoPeer
	case err != nil:
		Logger().Debug("guest invocation failed",
			zap.String("method", b.method),
			zap.Uint32("handle", uint32(h)),
			zap.Error(err))
		return nil, CodeCallFailed
	}
	return v, 0
}

func (b *binder) callString(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeI32(b.lowerString(mod, stack))
}

func (b *binder) lowerString(mod api.Module, stack []uint64) int32 {
	v, code := b.invoke(stack)
	if code != 0 {
		return code
	}
	s, ok := v.(string)
	if !ok {
		return CodeCallFailed
	}

	ptr := api.DecodeU32(stack[1])
	capacity := api.DecodeU32(stack[2])

	n := uint32(len(s))
	if n > capacity {
		n = capacity
	}
	if n > 0 {
		mem := mod.Memory()
		if mem == nil || !mem.Write(ptr, []byte(s[:n])) {
			return CodeOutOfRange
		}
	}
	return int32(len(s))
}

func (b *binder) callBool(_ context.Context, _ api.Module, stack []uint64) {
	v, code := b.invoke(stack)
	if code != 0 {
		stack[0] = api.EncodeI32(code)
		return
	}
	if set, _ := v.(bool); set {
		stack[0] = api.EncodeI32(1)
	} else {
		stack[0] = api.EncodeI32(0)
	}
}
