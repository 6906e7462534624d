// Package view renders client frames on a terminal and turns key presses
// into step directions.
package view

import (
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/gridwalk/gridwalk/internal/component"
	"github.com/gridwalk/gridwalk/internal/system"
	"go.uber.org/zap"
)

const (
	inputBuffer  = 8
	chatLines    = 5
	maxDraftRune = 200
)

var (
	styleFloor  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
	styleLocal  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleRemote = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleChat   = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleDraft  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Terminal is a system.Presenter backed by a tcell screen. Present runs on
// the game loop; Run reads keys on its own goroutine and hands directions
// over through Input. Enter starts a chat line; the finished line comes out
// of Chat.
type Terminal struct {
	screen tcell.Screen
	log    *zap.Logger

	input    chan component.GridDelta
	lines    chan string
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex // typing, draft
	typing bool
	draft  []rune

	chat []string
}

// Open initializes the real terminal.
func Open(log *zap.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	return NewTerminal(screen, log), nil
}

// NewTerminal wraps an initialized screen.
func NewTerminal(screen tcell.Screen, log *zap.Logger) *Terminal {
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	return &Terminal{
		screen: screen,
		log:    log,
		input:  make(chan component.GridDelta, inputBuffer),
		lines:  make(chan string, inputBuffer),
		done:   make(chan struct{}),
	}
}

// Input delivers one direction per accepted key press.
func (t *Terminal) Input() <-chan component.GridDelta { return t.input }

// Chat delivers finished chat lines.
func (t *Terminal) Chat() <-chan string { return t.lines }

// Done is closed when the user asks to quit.
func (t *Terminal) Done() <-chan struct{} { return t.done }

// Run polls terminal events until the screen is finalized.
func (t *Terminal) Run() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		t.HandleEvent(ev)
	}
}

// HandleEvent processes one terminal event. It returns false once the user
// asked to quit.
func (t *Terminal) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			t.quit()
			return false
		}
		if t.editDraft(ev) {
			return true
		}
		switch ev.Key() {
		case tcell.KeyEscape:
			t.quit()
			return false
		case tcell.KeyEnter:
			t.mu.Lock()
			t.typing = true
			t.mu.Unlock()
			return true
		}
		dir, ok := keyDirection(ev)
		if !ok {
			return true
		}
		select {
		case t.input <- dir:
		default:
			t.log.Debug("輸入緩衝已滿，丟棄按鍵")
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

func (t *Terminal) quit() {
	t.doneOnce.Do(func() { close(t.done) })
}

// editDraft applies ev to the chat line being typed. It reports false when
// no line is being typed.
func (t *Terminal) editDraft(ev *tcell.EventKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.typing {
		return false
	}
	switch ev.Key() {
	case tcell.KeyEscape:
		t.typing, t.draft = false, nil
	case tcell.KeyEnter:
		line := string(t.draft)
		t.typing, t.draft = false, nil
		select {
		case t.lines <- line:
		default:
			t.log.Debug("聊天緩衝已滿，丟棄訊息")
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(t.draft); n > 0 {
			t.draft = t.draft[:n-1]
		}
	case tcell.KeyRune:
		if len(t.draft) < maxDraftRune {
			t.draft = append(t.draft, ev.Rune())
		}
	}
	return true
}

// keyDirection maps arrows, the Home/End/PgUp/PgDn diagonals and the vi
// keys to a step.
func keyDirection(ev *tcell.EventKey) (component.GridDelta, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return component.DirNorth.Delta(), true
	case tcell.KeyDown:
		return component.DirSouth.Delta(), true
	case tcell.KeyLeft:
		return component.DirWest.Delta(), true
	case tcell.KeyRight:
		return component.DirEast.Delta(), true
	case tcell.KeyHome:
		return component.DirNorthWest.Delta(), true
	case tcell.KeyPgUp:
		return component.DirNorthEast.Delta(), true
	case tcell.KeyEnd:
		return component.DirSouthWest.Delta(), true
	case tcell.KeyPgDn:
		return component.DirSouthEast.Delta(), true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k':
			return component.DirNorth.Delta(), true
		case 'j':
			return component.DirSouth.Delta(), true
		case 'h':
			return component.DirWest.Delta(), true
		case 'l':
			return component.DirEast.Delta(), true
		case 'y':
			return component.DirNorthWest.Delta(), true
		case 'u':
			return component.DirNorthEast.Delta(), true
		case 'b':
			return component.DirSouthWest.Delta(), true
		case 'n':
			return component.DirSouthEast.Delta(), true
		}
	}
	return component.GridDelta{}, false
}

// Present draws the map one cell per tile, entities at the tile nearest to
// their pixel position, then a status line and recent chat.
func (t *Terminal) Present(f system.Frame) {
	for _, l := range f.Chat {
		t.chat = append(t.chat, fmt.Sprintf("%s: %s", l.Name, l.Text))
	}
	if len(t.chat) > chatLines {
		t.chat = t.chat[len(t.chat)-chatLines:]
	}

	t.screen.Clear()
	var rows int
	if f.Map != nil {
		rows = int(f.Map.Height())
		for y := int32(0); y < f.Map.Height(); y++ {
			for x := int32(0); x < f.Map.Width(); x++ {
				ch, st := '.', styleFloor
				if !f.Map.IsWalkable(component.GridPosition{X: x, Y: y}) {
					ch, st = '#', styleWall
				}
				t.screen.SetContent(int(x), int(y), ch, nil, st)
			}
		}
	}

	status := "連線中..."
	for _, e := range f.Entities {
		x, y := cellOf(e, f.TileSize)
		ch, st := glyph(e), styleRemote
		if e.Local {
			st = styleLocal
			status = fmt.Sprintf("%s  %s  面向=%s", e.Name, e.Grid, e.Facing)
		}
		t.screen.SetContent(x, y, ch, nil, st)
	}

	t.drawText(0, rows+1, status, styleStatus)
	for i, line := range t.chat {
		t.drawText(0, rows+2+i, line, styleChat)
	}
	t.mu.Lock()
	if t.typing {
		t.drawText(0, rows+2+chatLines, "> "+string(t.draft), styleDraft)
	}
	t.mu.Unlock()
	t.screen.Show()
}

func cellOf(e system.EntityView, tileSize int32) (int, int) {
	if tileSize <= 0 {
		return int(e.Grid.X), int(e.Grid.Y)
	}
	ts := float64(tileSize)
	return int(math.Round(e.Pixel.X / ts)), int(math.Round(e.Pixel.Y / ts))
}

func glyph(e system.EntityView) rune {
	if e.Local {
		return '@'
	}
	if r, _ := utf8.DecodeRuneInString(e.Name); r != utf8.RuneError {
		return r
	}
	return 'o'
}

func (t *Terminal) drawText(x, y int, s string, st tcell.Style) {
	for _, r := range s {
		t.screen.SetContent(x, y, r, nil, st)
		x++
	}
}

// Close restores the terminal. PollEvent returns nil afterwards, ending Run.
func (t *Terminal) Close() {
	t.screen.Fini()
}
