package ui

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/stockroom/internal/catalog"
)

type formMode int

const (
	formAdd formMode = iota
	formEdit
)

const (
	fieldName = iota
	fieldPrice
	fieldCount
)

// formSubmittedMsg carries a draft that passed validation.
type formSubmittedMsg struct {
	mode     formMode
	draft    catalog.Draft
	target   catalog.Product // edit only
	position int             // edit only
}

// productForm collects a name and a price for a new or existing product.
type productForm struct {
	mode     formMode
	target   catalog.Product
	position int
	inputs   [fieldCount]textinput.Model
	focus    int
	errors   []string
}

func newAddForm() *productForm {
	f := &productForm{mode: formAdd}
	f.initInputs()
	return f
}

func newEditForm(p catalog.Product, position int) *productForm {
	f := &productForm{mode: formEdit, target: p, position: position}
	f.initInputs()
	d := p.Draft()
	f.inputs[fieldName].SetValue(d.Name)
	f.inputs[fieldPrice].SetValue(strconv.Itoa(d.Price))
	return f
}

func (f *productForm) initInputs() {
	name := textinput.New()
	name.Placeholder = "Product name"
	name.CharLimit = 100
	name.Width = 30
	name.Prompt = ""

	price := textinput.New()
	price.Placeholder = "Whole number"
	price.CharLimit = 12
	price.Width = 12
	price.Prompt = ""

	f.inputs = [fieldCount]textinput.Model{name, price}
	f.inputs[fieldName].Focus()
}

// Init returns the cursor blink command for the focused field.
func (f *productForm) Init() tea.Cmd {
	return textinput.Blink
}

func (f *productForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Escape):
			return f, nil, true
		case key.Matches(km, keys.Confirm):
			if f.focus < fieldCount-1 {
				return f, f.setFocus(f.focus + 1), false
			}
			return f.submit()
		case key.Matches(km, keys.NextField):
			return f, f.setFocus((f.focus + 1) % fieldCount), false
		case key.Matches(km, keys.PrevField):
			return f, f.setFocus((f.focus + fieldCount - 1) % fieldCount), false
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f *productForm) submit() (Modal, tea.Cmd, bool) {
	draft, err := catalog.ParseDraft(f.inputs[fieldName].Value(), f.inputs[fieldPrice].Value())
	if err != nil {
		f.errors = validationLines(err)
		return f, nil, false
	}
	f.errors = nil
	submitted := formSubmittedMsg{mode: f.mode, draft: draft, target: f.target, position: f.position}
	return f, func() tea.Msg { return submitted }, true
}

func (f *productForm) setFocus(idx int) tea.Cmd {
	f.focus = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == idx {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *productForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	title := "Add product"
	if f.mode == formEdit {
		title = "Edit " + truncate(f.target.Name, 24)
	}

	label := styles.MutedText.Width(8)
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")
	b.WriteString(label.Render("Name"))
	b.WriteString(f.inputs[fieldName].View())
	b.WriteString("\n")
	b.WriteString(label.Render("Price"))
	b.WriteString(f.inputs[fieldPrice].View())
	b.WriteString("\n")

	if len(f.errors) > 0 {
		b.WriteString("\n")
		for _, line := range f.errors {
			b.WriteString(styles.DangerText.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter save · tab next field · esc cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.BorderFocus)).
		Padding(1, 2).
		Width(50)

	return placeOverlay(width, height, theme, box.Render(b.String()))
}

// validationLines renders a draft error as one line per rejected field.
func validationLines(err error) []string {
	var ve *catalog.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	lines := make([]string, 0, len(ve.Fields))
	for field, problem := range ve.Fields {
		lines = append(lines, field+" "+problem)
	}
	sort.Strings(lines)
	return lines
}
