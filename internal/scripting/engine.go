package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for chat hooks.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads path, which may be a single .lua
// file or a directory of them. A missing path yields an engine with no hooks.
func NewEngine(path string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if path == "" {
		return e, nil
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		log.Warn("腳本路徑不存在，略過", zap.String("path", path))
		return e, nil
	case err != nil:
		vm.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case info.IsDir():
		err = e.loadDir(path)
	default:
		err = e.loadFile(path)
	}
	if err != nil {
		vm.Close()
		return nil, err
	}
	return e, nil
}

// NewEngineFromString builds an engine from inline source.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	e, err := NewEngine("", log)
	if err != nil {
		return nil, err
	}
	if err := e.vm.DoString(src); err != nil {
		e.Close()
		return nil, fmt.Errorf("load inline script: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// OnChat runs the Lua on_chat(name, text) hook. A string result replaces the
// text; nil or false suppresses the message. Without a hook, or when the hook
// errors, the text passes through unchanged.
func (e *Engine) OnChat(name, text string) (string, bool) {
	fn := e.vm.GetGlobal("on_chat")
	if fn == lua.LNil {
		return text, true
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(name), lua.LString(text)); err != nil {
		e.log.Error("lua on_chat error", zap.Error(err))
		return text, true
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch v := result.(type) {
	case lua.LString:
		return string(v), true
	case *lua.LNilType, lua.LBool:
		if lua.LVAsBool(v) {
			return text, true
		}
		return "", false
	default:
		return lua.LVAsString(v), true
	}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}
