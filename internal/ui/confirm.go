package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/stockroom/internal/catalog"
)

type confirmDeleteMsg struct {
	product  catalog.Product
	position int
}

type confirmDialog struct {
	product  catalog.Product
	position int
}

func newConfirmDialog(p catalog.Product, position int) *confirmDialog {
	return &confirmDialog{product: p, position: position}
}

func (c *confirmDialog) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Yes):
		confirmed := confirmDeleteMsg{product: c.product, position: c.position}
		return c, func() tea.Msg { return confirmed }, true
	case key.Matches(km, keys.No):
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmDialog) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Delete product"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(fmt.Sprintf("%s (price %d)", truncate(c.product.Name, 30), c.product.Price)))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("y delete · n cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Danger)).
		Padding(1, 2).
		Width(44)

	return placeOverlay(width, height, theme, box.Render(b.String()))
}
