// Package script resolves modules implemented as sandboxed Lua scripts. The
// entry file <id>/<id>.lua returns a table of metadata and hook functions:
//
//	return {
//	  name = "Blog", version = "1.0.0", priority = 10,
//	  routes = true,
//	  register = function(ctx) ctx.bind("title", "My blog") end,
//	  boot = function(ctx) print("booted " .. ctx.id) end,
//	}
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/alexisbeaulieu97/modhost/internal/container"
	"github.com/alexisbeaulieu97/modhost/internal/module"
)

// Extension is the entry file extension handled by this package.
const Extension = "lua"

// Hook names looked up on the returned table.
const (
	hookBeforeRegister = "before_register"
	hookRegister       = "register"
	hookBeforeBoot     = "before_boot"
	hookBoot           = "boot"
	hookInstall        = "on_install"
	hookActivate       = "on_activate"
	hookDeactivate     = "on_deactivate"
	hookUninstall      = "on_uninstall"
)

// maxBindDepth bounds the nesting of tables passed to ctx.bind.
const maxBindDepth = 32

var errBindCycle = errors.New("bind: value refers to itself")

var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"}

// EntryPath returns the entry file path for a module rooted at basePath.
func EntryPath(basePath, id string) string {
	return filepath.Join(basePath, id+"."+Extension)
}

// Check compiles source without running it.
func Check(source []byte, name string) error {
	chunk, err := parse.Parse(bytes.NewReader(source), name)
	if err != nil {
		return err
	}
	_, err = lua.Compile(chunk, name)
	return err
}

// Module is a Descriptor backed by a Lua state. Calls into the state are
// serialized.
type Module struct {
	module.Base

	mu    sync.Mutex
	state *lua.LState
	table *lua.LTable
	// callCtx is the context of the hook currently running, used by print.
	callCtx context.Context
}

// Load evaluates source in a fresh sandbox and builds a Module for env. The
// top-level chunk stops when ctx is done.
func Load(ctx context.Context, env module.Env, source []byte) (*Module, error) {
	m := &Module{state: newSandbox(), callCtx: context.Background()}
	m.state.SetGlobal("print", m.state.NewFunction(m.print))

	fn, err := m.state.Load(bytes.NewReader(source), env.Location.ID+"."+Extension)
	if err != nil {
		m.state.Close()
		return nil, fmt.Errorf("compile %s: %w", env.Location.ID, err)
	}
	m.state.SetContext(ctx)
	m.state.Push(fn)
	err = m.state.PCall(0, 1, nil)
	m.state.RemoveContext()
	if err != nil {
		m.state.Close()
		return nil, fmt.Errorf("evaluate %s: %w", env.Location.ID, err)
	}
	ret := m.state.Get(-1)
	m.state.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		m.state.Close()
		return nil, fmt.Errorf("evaluate %s: entry file must return a table, got %s", env.Location.ID, ret.Type())
	}
	m.table = table

	meta := metadataFrom(table)
	if err := meta.Validate(); err != nil {
		m.state.Close()
		return nil, fmt.Errorf("module %s: %w", env.Location.ID, err)
	}
	m.Base = module.NewBase(env, meta)
	return m, nil
}

func newSandbox() *lua.LState {
	state := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: 128, RegistrySize: 1024 * 16})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		state.Push(state.NewFunction(lib.open))
		state.Push(lua.LString(lib.name))
		state.Call(1, 0)
	}
	for _, name := range removedGlobals {
		state.SetGlobal(name, lua.LNil)
	}
	return state
}

func metadataFrom(t *lua.LTable) module.Metadata {
	return module.Metadata{
		Name:         stringField(t, "name"),
		Description:  stringField(t, "description"),
		Version:      stringField(t, "version"),
		AuthorName:   stringField(t, "author_name"),
		AuthorURL:    stringField(t, "author_url"),
		Priority:     int(lua.LVAsNumber(t.RawGetString("priority"))),
		IsCore:       lua.LVAsBool(t.RawGetString("is_core")),
		Routes:       lua.LVAsBool(t.RawGetString("routes")),
		Translations: lua.LVAsBool(t.RawGetString("translations")),
	}
}

func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// ContainerKey keys script modules by id, since they all share one Go type.
func (m *Module) ContainerKey() string {
	return "script.Module:" + m.ID()
}

var hookOrder = []string{
	hookBeforeRegister, hookRegister, hookBeforeBoot, hookBoot,
	hookInstall, hookActivate, hookDeactivate, hookUninstall,
}

// Hooks lists the hooks the script defines, in the order the host runs them.
func (m *Module) Hooks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hooks []string
	for _, name := range hookOrder {
		if m.hasHook(name) {
			hooks = append(hooks, name)
		}
	}
	return hooks
}

func (m *Module) hasHook(name string) bool {
	_, ok := m.table.RawGetString(name).(*lua.LFunction)
	return ok
}

func (m *Module) BeforeRegister(ctx context.Context) error {
	return m.call(ctx, hookBeforeRegister, nil)
}

// Register runs the script's register hook. ctx.bind(name, value) stores
// value in the container under "<id>.<name>".
func (m *Module) Register(ctx context.Context, c *container.Container) error {
	return m.call(ctx, hookRegister, c)
}

// BeforeBoot runs the loaders requested by the module's flags, then the
// script's before_boot hook.
func (m *Module) BeforeBoot(ctx context.Context) error {
	if err := m.Base.BeforeBoot(ctx); err != nil {
		return err
	}
	return m.call(ctx, hookBeforeBoot, nil)
}

func (m *Module) Boot(ctx context.Context, c *container.Container) error {
	return m.call(ctx, hookBoot, c)
}

func (m *Module) OnInstall(ctx context.Context) error    { return m.call(ctx, hookInstall, nil) }
func (m *Module) OnActivate(ctx context.Context) error   { return m.call(ctx, hookActivate, nil) }
func (m *Module) OnDeactivate(ctx context.Context) error { return m.call(ctx, hookDeactivate, nil) }
func (m *Module) OnUninstall(ctx context.Context) error  { return m.call(ctx, hookUninstall, nil) }

// Close releases the Lua state.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}

func (m *Module) call(ctx context.Context, hook string, c *container.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return fmt.Errorf("module %s: script state closed", m.ID())
	}
	fn, ok := m.table.RawGetString(hook).(*lua.LFunction)
	if !ok {
		return nil
	}

	m.callCtx = ctx
	m.state.SetContext(ctx)
	defer func() {
		m.state.RemoveContext()
		m.callCtx = context.Background()
	}()

	err := m.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, m.hookContext(c))
	if err != nil {
		return fmt.Errorf("module %s: %s hook: %w", m.ID(), hook, err)
	}
	return nil
}

func (m *Module) hookContext(c *container.Container) *lua.LTable {
	L := m.state
	t := L.NewTable()
	t.RawSetString("id", lua.LString(m.ID()))
	t.RawSetString("base_path", lua.LString(m.BasePath()))
	t.RawSetString("namespace", lua.LString(m.Namespace()))
	if c != nil {
		t.RawSetString("bind", L.NewFunction(func(L *lua.LState) int {
			name := L.CheckString(1)
			value, err := toGo(L.CheckAny(2))
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			c.Replace(m.ID()+"."+name, value)
			return 0
		}))
	}
	return t
}

func (m *Module) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	m.Logger().Info(m.callCtx, "script output", "text", strings.Join(parts, "\t"))
	return 0
}

func toGo(v lua.LValue) (any, error) {
	return convert(v, make(map[*lua.LTable]bool), 0)
}

func convert(v lua.LValue, open map[*lua.LTable]bool, depth int) (any, error) {
	switch value := v.(type) {
	case lua.LString:
		return string(value), nil
	case lua.LNumber:
		return float64(value), nil
	case lua.LBool:
		return bool(value), nil
	case *lua.LTable:
		if open[value] {
			return nil, errBindCycle
		}
		if depth >= maxBindDepth {
			return nil, fmt.Errorf("bind: value nested deeper than %d tables", maxBindDepth)
		}
		open[value] = true
		defer delete(open, value)

		out := make(map[string]any)
		var err error
		value.ForEach(func(k, item lua.LValue) {
			if err != nil {
				return
			}
			var converted any
			if converted, err = convert(item, open, depth+1); err == nil {
				out[k.String()] = converted
			}
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, nil
	}
}
