package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
	"github.com/five82/stockroom/internal/prefs"
	"github.com/five82/stockroom/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewProducts View = iota
	ViewLogs
)

// ProductStore is the cache the UI reads and mutates.
type ProductStore interface {
	List() []catalog.Product
	Snapshot() state.Snapshot
	FetchAll(ctx context.Context) ([]catalog.Product, error)
	Create(ctx context.Context, name string, price int) (catalog.Product, error)
	Update(ctx context.Context, product catalog.Product, position int) (catalog.Product, error)
	Delete(ctx context.Context, id string, position int) error
}

var _ ProductStore = (*state.Store)(nil)

// Modal is an overlay that owns the keyboard while open. Update reports
// true when the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	Store          ProductStore
	BaseURL        string
	LogFile        string
	RequestTimeout time.Duration
	UITick         time.Duration
	ThemeName      string
	ConfirmDelete  bool
	PrefsPath      string
	Logger         *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx           context.Context
	store         ProductStore
	log           *zap.Logger
	prefsPath     string
	baseURL       string
	logFile       string
	opTimeout     time.Duration
	uiTick        time.Duration
	confirmDelete bool
	keys          keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	selectedRow int

	// In-flight store call, nil when idle
	pending *operation
	status  statusMessage

	// Overlays
	modal    Modal
	showHelp bool

	// Log state
	logViewport viewport.Model
	logLines    []string
	logFollow   bool
	logErr      error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	uiTick := opts.UITick
	if uiTick == 0 {
		uiTick = DefaultUIInterval
	}

	opTimeout := opts.RequestTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return Model{
		ctx:           ctx,
		store:         opts.Store,
		log:           log,
		prefsPath:     prefsPath,
		baseURL:       opts.BaseURL,
		logFile:       opts.LogFile,
		opTimeout:     opTimeout,
		uiTick:        uiTick,
		confirmDelete: opts.ConfirmDelete,
		keys:          DefaultKeyMap(),
		theme:         GetTheme(themeName),
		currentView:   ViewProducts,
		logFollow:     true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.uiTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.width, m.contentHeight())
		}
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case formSubmittedMsg:
		return m.submitForm(msg)

	case confirmDeleteMsg:
		return m.startDelete(msg.product, msg.position)

	case opResultMsg:
		return m.handleOpResult(msg)
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	// Modals own the keyboard; only ctrl+c gets past them.
	if m.modal != nil {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		if m.currentView == ViewLogs {
			m.currentView = ViewProducts
			return m, nil
		}
		m.currentView = ViewLogs
		return m, readLogCmd(m.logFile)

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewProducts
		return m, nil
	}

	switch m.currentView {
	case ViewProducts:
		return m.handleProductsKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// handleTick re-reads the store and schedules the next tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if m.currentView == ViewLogs && m.logFollow {
		cmds = append(cmds, readLogCmd(m.logFile))
	}

	if m.status.text != "" && now.Sub(m.status.at) > StatusMessageTTL {
		m.status = statusMessage{}
	}

	cmds = append(cmds, tickCmd(m.uiTick))

	return m, tea.Batch(cmds...)
}

// applySnapshot replaces the cached snapshot, keeping the selection on the
// same product when it moved.
func (m *Model) applySnapshot(snap state.Snapshot) {
	var selectedID string
	if p, ok := m.selectedProduct(); ok {
		selectedID = p.ID
	}

	m.snapshot = snap

	if selectedID != "" {
		if idx := catalog.IndexOf(snap.Products, selectedID); idx >= 0 {
			m.selectedRow = idx
			return
		}
	}
	m.selectedRow = clamp(m.selectedRow, 0, maxInt(len(snap.Products)-1, 0))
}

// selectedProduct returns the highlighted product, if any.
func (m Model) selectedProduct() (catalog.Product, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Products) {
		return catalog.Product{}, false
	}
	return m.snapshot.Products[m.selectedRow], true
}

// cycleTheme switches to the next theme and persists it.
func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.updateLogViewport()
	if m.prefsPath == "" {
		return
	}
	err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, ConfirmDelete: m.confirmDelete})
	if err != nil {
		m.log.Warn("save preferences failed", zap.String("path", m.prefsPath), zap.Error(err))
		m.setStatus(statusError, "Could not save theme: "+err.Error())
		return
	}
	m.setStatus(statusInfo, "Theme: "+m.theme.Name)
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.status = statusMessage{text: text, kind: kind, at: time.Now()}
}

// contentHeight is the number of rows between the header and the status line.
func (m Model) contentHeight() int {
	return maxInt(m.height-3, 1)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())
	b.WriteString("\n")

	b.WriteString(m.renderStatusLine())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewProducts:
		return m.renderProducts()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store ProductStore) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(readStore(store))
	}
}

// readStore captures what one frame draws: connection state from Snapshot
// and the rows from List. Snapshot is read first so the rows are never older
// than the state shown above them.
func readStore(store ProductStore) state.Snapshot {
	snap := store.Snapshot()
	snap.Products = store.List()
	return snap
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
