package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// handleProductsKey processes keyboard input for the product list.
func (m Model) handleProductsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Products)
	page := m.tableRows()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = maxInt(count-1, 0)
	case key.Matches(msg, m.keys.PageUp):
		m.selectedRow = clamp(m.selectedRow-page, 0, maxInt(count-1, 0))
	case key.Matches(msg, m.keys.PageDown):
		m.selectedRow = clamp(m.selectedRow+page, 0, maxInt(count-1, 0))
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow = clamp(m.selectedRow-page/2, 0, maxInt(count-1, 0))
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow = clamp(m.selectedRow+page/2, 0, maxInt(count-1, 0))

	case key.Matches(msg, m.keys.Add):
		if m.busy() {
			return m, nil
		}
		form := newAddForm()
		m.modal = form
		return m, form.Init()

	case key.Matches(msg, m.keys.Edit):
		p, ok := m.selectedProduct()
		if !ok || m.busy() {
			return m, nil
		}
		form := newEditForm(p, m.selectedRow)
		m.modal = form
		return m, form.Init()

	case key.Matches(msg, m.keys.Delete):
		p, ok := m.selectedProduct()
		if !ok || m.busy() {
			return m, nil
		}
		if m.confirmDelete {
			m.modal = newConfirmDialog(p, m.selectedRow)
			return m, nil
		}
		return m.startDelete(p, m.selectedRow)

	case key.Matches(msg, m.keys.Refresh):
		if m.busy() {
			return m, nil
		}
		return m.startRefresh()
	}

	return m, nil
}

// tableRows is the number of product rows that fit below the column header.
func (m Model) tableRows() int {
	return maxInt(m.contentHeight()-1, 1)
}

// renderProducts renders the product table or an empty state.
func (m Model) renderProducts() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	products := m.snapshot.Products

	if len(products) == 0 {
		var msg string
		switch {
		case !m.snapshot.HasData && m.snapshot.LastError == nil:
			msg = styles.MutedText.Render("Loading products...")
		case !m.snapshot.HasData:
			msg = styles.DangerText.Render("Cannot reach " + m.baseURL)
		default:
			msg = styles.MutedText.Render("No products yet. Press a to add one.")
		}
		return placeOverlay(m.width, height, m.theme, msg)
	}

	showID := m.width >= LayoutIDWidth
	nameWidth := m.width - indexColumnWidth - priceColumnWidth - 2
	if showID {
		nameWidth -= idColumnWidth + 2
	}
	nameWidth = maxInt(nameWidth, 8)

	row := func(idx, name, price, id string) string {
		line := padRight(idx, indexColumnWidth) + padRight(name, nameWidth) + "  " + padLeft(price, priceColumnWidth)
		if showID {
			line += "  " + padRight(id, idColumnWidth)
		}
		return line
	}

	lines := make([]string, 0, height)
	lines = append(lines, styles.MutedText.Bold(true).Render(row("#", "NAME", "PRICE", "ID")))

	visible := m.tableRows()
	offset := 0
	if m.selectedRow >= visible {
		offset = m.selectedRow - visible + 1
	}

	for i := offset; i < len(products) && i < offset+visible; i++ {
		p := products[i]
		line := row(strconv.Itoa(i+1), truncate(p.Name, nameWidth), strconv.Itoa(p.Price), p.ID)
		if i == m.selectedRow {
			lines = append(lines, styles.Selected.Width(m.width).Render(line))
		} else {
			lines = append(lines, styles.Text.Render(line))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderHeader renders the logo, backend and connection state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("stockroom", styles.Logo)}
	if m.width >= LayoutCompactWidth && m.baseURL != "" {
		parts = append(parts, bg.Render(m.baseURL, styles.MutedText))
	}

	snap := m.snapshot
	switch {
	case m.pending != nil:
		parts = append(parts, m.theme.Styles().Busy.Render("● "+m.pending.label))
	case snap.IsOffline():
		parts = append(parts, bg.Render("offline", styles.DangerText))
	case snap.LastError != nil:
		parts = append(parts, bg.Render("degraded", styles.WarningText))
	case snap.HasData:
		parts = append(parts, bg.Render("online", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("connecting", styles.MutedText))
	}

	parts = append(parts, bg.Render(fmt.Sprintf("%d products", len(snap.Products)), styles.Text))
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("updated "+humanizeDuration(time.Since(snap.LastUpdated)), styles.FaintText))
	}

	return bg.FillLine(bg.Join(parts, " │ "), m.width)
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()

	bindings := m.keys.ShortHelp()
	if m.currentView == ViewLogs {
		bindings = []key.Binding{m.keys.ToggleFollow, m.keys.Escape, m.keys.Help, m.keys.Quit}
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, styles.WarningText.Render(h.Key)+" "+styles.MutedText.Render(h.Desc))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(hints, "  "))
}

// renderStatusLine renders the transient status message, or the last store
// error when there is none.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()

	if m.status.text != "" {
		text := truncate(m.status.text, m.width)
		switch m.status.kind {
		case statusError:
			return styles.DangerText.Render(text)
		case statusSuccess:
			return styles.SuccessText.Render(text)
		default:
			return styles.InfoText.Render(text)
		}
	}

	if err := m.snapshot.LastError; err != nil {
		line := "Last error: " + describeError(err)
		if n := m.snapshot.ConsecutiveFailures; n > 1 {
			line += fmt.Sprintf(" (%d failed refreshes)", n)
		}
		return styles.WarningText.Render(truncate(line, m.width))
	}

	return styles.FaintText.Render("? for help")
}
