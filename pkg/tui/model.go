// Package tui hosts a graph view in the terminal. The view draws onto an
// offscreen canvas which is shown with half-block cells; mouse and keys are
// translated into view events.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bviewport "github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kgview/internal/datasource"
	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/export"
	"github.com/vanderheijden86/kgview/pkg/loader"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/view"
	"github.com/vanderheijden86/kgview/pkg/viewport"
	"github.com/vanderheijden86/kgview/pkg/watcher"
)

// Layout thresholds in cells.
const (
	MinPanelWidth   = 28
	MaxPanelWidth   = 44
	PanelThreshold  = 80 // hide the side panel below this width
	panStep         = 4  // cells per arrow key
	initialCols     = 80
	initialRows     = 22
	defaultFitInset = 4.0
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"})
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"})
	panelStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}).
			PaddingLeft(1)
)

// Options configures the terminal host.
type Options struct {
	Document *model.Document
	// LoadErr is the startup load failure, drawn in the canvas when Document
	// is nil.
	LoadErr error
	// Source is the graph path or URL, reloaded when the watcher fires.
	Source        string
	MasterySource loader.MasterySource
	Watcher       *watcher.Watcher

	// View carries feature flags and style. Loop, scheduler and overlay
	// settings are owned by the terminal host.
	View        view.Options
	Supersample int

	ExportPath   string
	ExportWidth  int
	ExportHeight int
}

// FileChangedMsg reports watched paths that changed on disk.
type FileChangedMsg struct{ Paths []string }

type frameMsg time.Time

type reloadedMsg struct {
	doc        *model.Document
	err        error
	mastery    model.Mastery
	masteryErr error
}

type exportedMsg struct {
	res export.SnapshotResult
	err error
}

type canvasCache struct {
	frames     uint64
	cols, rows int
	out        string
}

// Model is the bubbletea model.
type Model struct {
	opts  Options
	view  *view.View
	sched *view.ManualScheduler
	keys  keyMap
	help  help.Model
	panel bviewport.Model
	cache *canvasCache

	width, height int
	cols, rows    int
	panelWidth    int
	ready         bool

	panelNodeID string
	status      string
	statusErr   bool
	doc         *model.Document
}

// New builds the model and its view. The view starts on a small canvas and is
// resized by the first WindowSizeMsg.
func New(opts Options) (Model, error) {
	if opts.Supersample <= 0 {
		opts.Supersample = DefaultSupersample
	}
	if opts.ExportPath == "" {
		opts.ExportPath = "graph.png"
	}

	vo := opts.View
	vo.EnableLoop = true
	vo.HideOverlays = true
	vo.Style = terminalStyle(vo.Style)
	if vo.FitPadding == 0 {
		vo.FitPadding = defaultFitInset * float64(opts.Supersample)
	}
	sched := view.NewManualScheduler()
	vo.Scheduler = sched

	w, h := CanvasSize(initialCols, initialRows, opts.Supersample)
	v, err := view.Initialize(gg.NewContext(w, h), opts.Document, vo)
	if err != nil {
		return Model{}, err
	}
	opts.View = vo
	if opts.Document == nil && opts.LoadErr != nil {
		v.SetError(fmt.Sprintf("%s: %v", view.MsgLoadFailed, opts.LoadErr))
	}

	panel := bviewport.New(MinPanelWidth, initialRows)
	// Arrows and the wheel belong to the canvas; the panel only pages.
	panel.KeyMap = bviewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
	}
	panel.MouseWheelEnabled = false

	m := Model{
		opts:  opts,
		view:  v,
		sched: sched,
		keys:  defaultKeys(),
		help:  help.New(),
		panel: panel,
		cache: &canvasCache{},
		cols:  initialCols,
		rows:  initialRows,
		doc:   opts.Document,
	}
	return m, nil
}

// terminalStyle keeps the palette but drops labels, which are unreadable at
// half-block resolution.
func terminalStyle(s render.Style) render.Style {
	if s.BaseRadius == 0 {
		s = render.DefaultStyle()
	}
	s.LabelMinScale = math.Inf(1)
	return s
}

// GraphView returns the underlying graph view.
func (m Model) GraphView() *view.View { return m.view }

func frameTick() tea.Cmd {
	return tea.Tick(view.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return FileChangedMsg{Paths: <-w.Changed()}
	}
}

func reloadCmd(source string, ms loader.MasterySource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loader.DefaultTimeout)
		defer cancel()
		var msg reloadedMsg
		if source != "" {
			msg.doc, _, msg.err = loader.LoadFirst(ctx, []string{source})
		}
		if ms != nil {
			msg.mastery, msg.masteryErr = ms.LoadMastery(ctx)
		}
		return msg
	}
}

func exportCmd(opts export.SnapshotOptions) tea.Cmd {
	return func() tea.Msg {
		res, err := export.SaveSnapshot(opts)
		return exportedMsg{res: res, err: err}
	}
}

// Init starts the frame ticker and the file watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frameTick()}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case frameMsg:
		m.sched.Flush(time.Time(msg))
		cmds = append(cmds, frameTick())

	case tea.KeyMsg:
		if cmd, quit := m.handleKey(msg); quit {
			return m, tea.Quit
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case FileChangedMsg:
		debug.Log("tui: reload for %v", msg.Paths)
		m.setStatus("Reloading…", false)
		cmds = append(cmds, reloadCmd(m.opts.Source, m.opts.MasterySource))
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}

	case reloadedMsg:
		m.applyReload(msg)

	case exportedMsg:
		if msg.err != nil {
			m.setStatus("Export failed: "+msg.err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("Exported %s", msg.res.Path), false)
		}
	}

	m.syncPanel()
	var cmd tea.Cmd
	m.panel, cmd = m.panel.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	m.panelWidth = 0
	if width >= PanelThreshold {
		m.panelWidth = min(max(width/3, MinPanelWidth), MaxPanelWidth)
	}
	m.cols = max(width-m.panelWidth, 1)
	m.rows = max(height-2, 1)

	cw, ch := CanvasSize(m.cols, m.rows, m.opts.Supersample)
	if err := m.view.SetCanvas(gg.NewContext(cw, ch)); err != nil {
		m.setStatus(err.Error(), true)
	}
	if !m.ready {
		m.view.FitNow()
		m.ready = true
	}
	m.panel.Width = max(m.panelWidth-2, 0)
	m.panel.Height = m.rows
	m.panelNodeID = "\x00" // force re-render at the new width
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	ss := float64(m.opts.Supersample)
	cx, cy := float64(m.cols)*ss/2, float64(m.rows)*ss
	switch {
	case key.Matches(msg, m.keys.Quit):
		return nil, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.view.Pan(0, panStep*2*ss)
	case key.Matches(msg, m.keys.Down):
		m.view.Pan(0, -panStep*2*ss)
	case key.Matches(msg, m.keys.Left):
		m.view.Pan(panStep*ss, 0)
	case key.Matches(msg, m.keys.Right):
		m.view.Pan(-panStep*ss, 0)
	case key.Matches(msg, m.keys.ZoomIn):
		m.view.ZoomAt(cx, cy, viewport.ZoomInFactor)
	case key.Matches(msg, m.keys.ZoomOut):
		m.view.ZoomAt(cx, cy, viewport.ZoomOutFactor)
	case key.Matches(msg, m.keys.Fit):
		m.view.Dispatch(view.Event{Type: view.Key, Key: "r"})
	case key.Matches(msg, m.keys.Reset):
		m.view.ResetView()
	case key.Matches(msg, m.keys.Deselect):
		m.view.Dispatch(view.Event{Type: view.Key, Key: "Escape"})
	case key.Matches(msg, m.keys.Next):
		m.cycle(1)
	case key.Matches(msg, m.keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, m.keys.Copy):
		sel := m.view.Selected()
		if sel == nil {
			m.setStatus("Nothing selected", false)
			break
		}
		if err := copyToClipboard(sel.ID); err != nil {
			m.setStatus("Clipboard unavailable: "+err.Error(), true)
		} else {
			m.setStatus("Copied "+sel.ID, false)
		}
	case key.Matches(msg, m.keys.Export):
		if m.doc == nil {
			m.setStatus("Nothing to export", true)
			break
		}
		m.setStatus("Exporting…", false)
		return exportCmd(export.SnapshotOptions{
			Path:        m.opts.ExportPath,
			Width:       m.opts.ExportWidth,
			Height:      m.opts.ExportHeight,
			Document:    m.doc,
			Level:       m.view.Level(),
			Mastery:     m.view.Mastery(),
			ShowMastery: m.opts.View.EnableMasteryOverlay,
			Style:       m.view.Renderer().Style,
		}), false
	}
	return nil, false
}

// cycle selects the next or previous visible node in draw order.
func (m *Model) cycle(dir int) {
	nodes := m.view.Scene().Nodes
	if len(nodes) == 0 {
		return
	}
	i := -1
	if sel := m.view.Selected(); sel != nil {
		for j, n := range nodes {
			if n.ID == sel.ID {
				i = j
				break
			}
		}
	}
	switch {
	case i < 0 && dir < 0:
		i = len(nodes) - 1
	case i < 0:
		i = 0
	default:
		i = (i + dir + len(nodes)) % len(nodes)
	}
	m.view.SelectNode(nodes[i].ID)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.X < 0 || msg.X >= m.cols || msg.Y < 0 || msg.Y >= m.rows {
		m.view.Dispatch(view.Event{Type: view.PointerLeave})
		return
	}
	x, y := CellToPixel(msg.X, msg.Y, m.opts.Supersample)
	ev := view.Event{X: x, Y: y}
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			ev.Type, ev.DeltaY = view.Wheel, -1
		case tea.MouseButtonWheelDown:
			ev.Type, ev.DeltaY = view.Wheel, 1
		case tea.MouseButtonLeft:
			ev.Type = view.PointerDown
		default:
			return
		}
	case tea.MouseActionRelease:
		ev.Type = view.PointerUp
	case tea.MouseActionMotion:
		ev.Type = view.PointerMove
	default:
		return
	}
	m.view.Dispatch(ev)
}

func (m *Model) applyReload(msg reloadedMsg) {
	var parts []string
	failed := false
	if m.opts.Source != "" {
		if msg.err != nil {
			parts = append(parts, "graph reload failed: "+msg.err.Error())
			failed = true
		} else if err := m.view.SetDocument(msg.doc); err != nil {
			parts = append(parts, "graph rejected: "+err.Error())
			failed = true
		} else {
			m.doc = msg.doc
			parts = append(parts, fmt.Sprintf("graph reloaded (%d topics)", len(msg.doc.Graph.Nodes)))
		}
	}
	if m.opts.MasterySource != nil {
		if msg.masteryErr != nil {
			parts = append(parts, "mastery: "+msg.masteryErr.Error())
			failed = true
		} else {
			diff := datasource.CompareMastery(m.view.Mastery(), msg.mastery)
			if diff.HasChanges() {
				m.view.UpdateMastery(msg.mastery)
			}
			parts = append(parts, strings.SplitN(diff.Summary(), "\n", 2)[0])
		}
	}
	m.setStatus(strings.Join(parts, "; "), failed)
	m.panelNodeID = "\x00"
}

// syncPanel re-renders the side panel when the selection changed.
func (m *Model) syncPanel() {
	if m.panelWidth == 0 {
		return
	}
	sel := m.view.Selected()
	id := ""
	if sel != nil {
		id = sel.ID
	}
	if id == m.panelNodeID {
		return
	}
	m.panelNodeID = id
	md := nodeMarkdown(sel, m.view.Mastery(), m.opts.View.EnableMasteryOverlay)
	m.panel.SetContent(renderMarkdown(md, m.panel.Width))
	m.panel.GotoTop()
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

// Status returns the current status line message.
func (m Model) Status() string { return m.status }

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	canvas := m.canvasString()
	body := canvas
	if m.panelWidth > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, canvas, panelStyle.Height(m.rows).Render(m.panel.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusLine(), m.help.View(m.keys))
}

func (m Model) canvasString() string {
	frames := m.view.Frames()
	c := m.cache
	if c.out != "" && c.frames == frames && c.cols == m.cols && c.rows == m.rows {
		return c.out
	}
	img := m.view.Canvas().Image()
	c.out = HalfBlocks(img, m.cols, m.rows, m.opts.Supersample)
	c.frames, c.cols, c.rows = frames, m.cols, m.rows
	return c.out
}

func (m Model) statusLine() string {
	left := m.status
	if left == "" {
		if h := m.view.Hovered(); h != nil {
			left = h.DisplayName()
		} else if e := m.view.Error(); e != "" {
			left = e
		}
	}
	right := fmt.Sprintf("%s · %.2fx · %d topics", m.view.Level(), m.view.Transform().Scale, len(m.view.Scene().Nodes))

	style := statusStyle
	if m.statusErr {
		style = errorStyle
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return style.Render(left) + strings.Repeat(" ", gap) + statusStyle.Render(right)
}

// Run starts the terminal program and blocks until the user quits.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	defer m.view.Destroy()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err = p.Run()
	return err
}
