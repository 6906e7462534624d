package view

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/data"
	"github.com/gridwalk/gridwalk/internal/handler"
	"github.com/gridwalk/gridwalk/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSimTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(40, 20)
	return NewTerminal(screen, zap.NewNop()), screen
}

func runeAt(s tcell.SimulationScreen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestPresentDrawsMapAndEntities(t *testing.T) {
	term, screen := newSimTerminal(t)
	m := data.NewGridMap("test", 5, 3, 32, component.GridPosition{X: 2, Y: 1})

	term.Present(system.Frame{
		Tick:     1,
		TileSize: 32,
		Map:      m,
		Entities: []system.EntityView{
			{NetID: 1, Name: "Remote", Grid: component.GridPosition{X: 4, Y: 2}, Pixel: component.Vec2{X: 128, Y: 64}},
			{NetID: 2, Name: "Me", Grid: component.GridPosition{X: 0, Y: 0}, Pixel: component.Vec2{X: 20, Y: 0}, Local: true, Moving: true},
		},
		Chat: []handler.ChatLine{{NetID: 1, Name: "Remote", Text: "hi"}},
	})

	assert.Equal(t, '.', runeAt(screen, 0, 0))
	assert.Equal(t, '#', runeAt(screen, 2, 1))
	assert.Equal(t, 'R', runeAt(screen, 4, 2))
	assert.Equal(t, '@', runeAt(screen, 1, 0), "drawn at the nearest tile while moving")
	assert.Equal(t, 'M', runeAt(screen, 0, 4), "status line below the map")
	assert.Equal(t, 'R', runeAt(screen, 0, 5), "chat below the status line")
}

func TestKeysBecomeDirections(t *testing.T) {
	term, _ := newSimTerminal(t)

	keys := []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, 'h', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone),
	}
	for _, k := range keys {
		assert.True(t, term.HandleEvent(k))
	}

	want := []component.GridDelta{{X: 0, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 0}}
	for _, w := range want {
		select {
		case got := <-term.Input():
			assert.Equal(t, w, got)
		default:
			t.Fatalf("missing direction %v", w)
		}
	}
	assert.Empty(t, term.Input())
}

func TestEscapeQuits(t *testing.T) {
	term, _ := newSimTerminal(t)

	assert.False(t, term.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.False(t, term.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	select {
	case <-term.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestInputDropsWhenFull(t *testing.T) {
	term, _ := newSimTerminal(t)
	for i := 0; i < inputBuffer+3; i++ {
		term.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	}
	assert.Len(t, term.Input(), inputBuffer)
}

func TestChatLineTyping(t *testing.T) {
	term, screen := newSimTerminal(t)

	term.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	for _, r := range "hix" {
		term.HandleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	term.HandleEvent(tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone))
	assert.Empty(t, term.Input(), "letters typed into a chat line are not steps")

	term.Present(system.Frame{Map: data.NewGridMap("tiny", 2, 2, 32)})
	assert.Equal(t, '>', runeAt(screen, 0, 2+2+chatLines))

	assert.True(t, term.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)), "escape cancels the line")
	term.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	term.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'o', tcell.ModNone))
	term.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))

	select {
	case line := <-term.Chat():
		assert.Equal(t, "o", line)
	default:
		t.Fatal("no chat line")
	}
	assert.Empty(t, term.Chat())
}
