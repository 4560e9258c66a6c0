package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/stockroom/internal/catalog"
	"github.com/five82/stockroom/internal/state"
)

type opKind int

const (
	opRefresh opKind = iota
	opCreate
	opUpdate
	opDelete
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "refresh"
	}
}

// operation is a store call running in a tea.Cmd.
type operation struct {
	kind    opKind
	label   string
	started time.Time
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

type statusMessage struct {
	text string
	kind statusKind
	at   time.Time
}

// opResultMsg reports the outcome of a store call.
type opResultMsg struct {
	kind    opKind
	product catalog.Product
	err     error
}

// busy reports whether a store call is in flight, setting a status message
// when it is.
func (m *Model) busy() bool {
	if m.pending == nil {
		return false
	}
	m.setStatus(statusError, fmt.Sprintf("Busy: %s in progress", m.pending.label))
	return true
}

func (m Model) startOp(kind opKind, label string, fn func(ctx context.Context) (catalog.Product, error)) (tea.Model, tea.Cmd) {
	m.pending = &operation{kind: kind, label: label, started: time.Now()}
	m.log.Debug("operation started", zap.Stringer("op", kind), zap.String("label", label))
	return m, m.runOp(kind, fn)
}

// runOp wraps a blocking store call in a command bounded by the request timeout.
func (m Model) runOp(kind opKind, fn func(ctx context.Context) (catalog.Product, error)) tea.Cmd {
	parent, timeout := m.ctx, m.opTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		p, err := fn(ctx)
		return opResultMsg{kind: kind, product: p, err: err}
	}
}

func (m Model) startRefresh() (tea.Model, tea.Cmd) {
	store := m.store
	return m.startOp(opRefresh, "refresh", func(ctx context.Context) (catalog.Product, error) {
		_, err := store.FetchAll(ctx)
		return catalog.Product{}, err
	})
}

func (m Model) submitForm(msg formSubmittedMsg) (tea.Model, tea.Cmd) {
	if m.busy() {
		return m, nil
	}
	store := m.store
	switch msg.mode {
	case formEdit:
		product := msg.target.WithDraft(msg.draft)
		position := msg.position
		return m.startOp(opUpdate, "saving "+product.Name, func(ctx context.Context) (catalog.Product, error) {
			return store.Update(ctx, product, position)
		})
	default:
		draft := msg.draft
		return m.startOp(opCreate, "adding "+draft.Name, func(ctx context.Context) (catalog.Product, error) {
			return store.Create(ctx, draft.Name, draft.Price)
		})
	}
}

func (m Model) startDelete(p catalog.Product, position int) (tea.Model, tea.Cmd) {
	if m.busy() {
		return m, nil
	}
	store := m.store
	return m.startOp(opDelete, "deleting "+p.Name, func(ctx context.Context) (catalog.Product, error) {
		return p, store.Delete(ctx, p.ID, position)
	})
}

func (m Model) handleOpResult(msg opResultMsg) (tea.Model, tea.Cmd) {
	elapsed := time.Duration(0)
	if m.pending != nil {
		elapsed = time.Since(m.pending.started)
	}
	m.pending = nil
	if m.store != nil {
		m.applySnapshot(readStore(m.store))
	}

	if msg.err != nil {
		m.log.Warn("operation failed",
			zap.Stringer("op", msg.kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(msg.err),
		)
		if reason, ok := outdatedRow(msg); ok {
			model, cmd := m.startRefresh()
			mm := model.(Model)
			mm.setStatus(statusError, reason+", reloading")
			return mm, cmd
		}
		m.setStatus(statusError, fmt.Sprintf("%s failed: %s", capitalize(msg.kind.String()), describeError(msg.err)))
		return m, nil
	}

	m.log.Info("operation finished",
		zap.Stringer("op", msg.kind),
		zap.String("id", msg.product.ID),
		zap.Duration("elapsed", elapsed),
	)

	switch msg.kind {
	case opCreate:
		if idx := catalog.IndexOf(m.snapshot.Products, msg.product.ID); idx >= 0 {
			m.selectedRow = idx
		}
		m.setStatus(statusSuccess, "Added "+msg.product.Name)
	case opUpdate:
		m.setStatus(statusSuccess, "Saved "+msg.product.Name)
	case opDelete:
		m.setStatus(statusSuccess, "Deleted "+msg.product.Name)
	case opRefresh:
		m.setStatus(statusInfo, fmt.Sprintf("Loaded %d products", len(m.snapshot.Products)))
	}
	return m, nil
}

// outdatedRow reports whether an update or delete failed because the row the
// user picked no longer matches the server, either locally (stale position)
// or remotely (404). Both are fixed by reloading the list.
func outdatedRow(msg opResultMsg) (string, bool) {
	if msg.kind != opUpdate && msg.kind != opDelete {
		return "", false
	}
	var se *catalog.StatusError
	switch {
	case errors.Is(msg.err, state.ErrStaleIndex):
		return "Product changed on the server", true
	case errors.As(msg.err, &se) && se.NotFound():
		return fmt.Sprintf("%s failed: %s", capitalize(msg.kind.String()), describeError(msg.err)), true
	}
	return "", false
}

// describeError turns a store error into a short status line.
func describeError(err error) string {
	var se *catalog.StatusError
	switch {
	case errors.As(err, &se) && se.NotFound():
		return "product no longer exists"
	case errors.Is(err, state.ErrCreateNotVisible):
		return "created product did not appear in the list"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case catalog.IsTransport(err):
		return "cannot reach the server"
	case catalog.IsDecode(err):
		return "server sent an unreadable response"
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
