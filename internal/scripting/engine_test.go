package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const chatScript = `
function on_chat(name, text)
  if text == "secret" then
    return nil
  end
  if text == "keep" then
    return true
  end
  return "[" .. name .. "] " .. text
end
`

func TestOnChatHook(t *testing.T) {
	e, err := NewEngineFromString(chatScript, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	out, ok := e.OnChat("Knight", "hello")
	assert.True(t, ok)
	assert.Equal(t, "[Knight] hello", out)

	_, ok = e.OnChat("Knight", "secret")
	assert.False(t, ok)

	out, ok = e.OnChat("Knight", "keep")
	assert.True(t, ok)
	assert.Equal(t, "keep", out)
}

func TestOnChatWithoutHookPassesThrough(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "missing.lua"), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	out, ok := e.OnChat("a", "b")
	assert.True(t, ok)
	assert.Equal(t, "b", out)
}

func TestOnChatErrorPassesThrough(t *testing.T) {
	e, err := NewEngineFromString(`function on_chat(n, t) error("boom") end`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	out, ok := e.OnChat("a", "b")
	assert.True(t, ok)
	assert.Equal(t, "b", out)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.lua"), []byte(chatScript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	out, _ := e.OnChat("x", "y")
	assert.Equal(t, "[x] y", out)

	_, err = NewEngineFromString("this is not lua", zap.NewNop())
	assert.Error(t, err)
}
