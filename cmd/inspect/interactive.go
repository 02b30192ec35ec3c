package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/layout"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectType modelState = iota
	stateShowLayout
	stateInputFailAt
	stateShowTrace
)

type inspectModel struct {
	err      error
	desc     *layout.Struct
	failAt   textinput.Model
	trace    []string
	traceErr error
	selected int
	state    modelState
}

func newInspectModel() *inspectModel {
	ti := textinput.New()
	ti.Placeholder = "step index to fail, empty for none"
	ti.CharLimit = 3
	ti.Width = 32
	return &inspectModel{failAt: ti, state: stateSelectType}
}

func runInteractive() error {
	p := tea.NewProgram(newInspectModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *inspectModel) Init() tea.Cmd {
	return nil
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateSelectType {
				return m, tea.Quit
			}
			m.state = stateSelectType
			return m, nil

		case "up", "k":
			if m.state == stateSelectType && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectType && m.selected < len(catalog)-1 {
				m.selected++
			}

		case "enter":
			return m.advance()

		case "esc":
			m.state = stateSelectType
			return m, nil
		}
	}

	if m.state == stateInputFailAt {
		var cmd tea.Cmd
		m.failAt, cmd = m.failAt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *inspectModel) advance() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateSelectType:
		entry := catalog[m.selected]
		desc, err := layout.Compile(entry.typ)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.desc = desc
		m.err = nil
		m.state = stateShowLayout

	case stateShowLayout:
		m.failAt.SetValue("")
		m.failAt.Focus()
		m.state = stateInputFailAt
		return m, textinput.Blink

	case stateInputFailAt:
		failAt := -1
		if v := strings.TrimSpace(m.failAt.Value()); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				m.err = fmt.Errorf("not a step index: %q", v)
				return m, nil
			}
			failAt = n
		}
		m.err = nil
		m.trace, m.traceErr = catalog[m.selected].runTrace(failAt)
		m.state = stateShowTrace

	case stateShowTrace:
		m.state = stateSelectType
	}
	return m, nil
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("emplace inspect"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectType:
		for i, e := range catalog {
			line := fmt.Sprintf("%-12s %s", e.name, e.describe)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
		b.WriteString(helpStyle.Render("\n↑/↓ select · enter inspect · q quit"))

	case stateShowLayout:
		b.WriteString(typeStyle.Render(m.desc.Type.String()))
		fmt.Fprintf(&b, "  size=%d align=%d zero-valid=%v\n\n",
			m.desc.Size, m.desc.Align, emplace.CanZero(m.desc.Type))
		for _, f := range m.desc.Fields {
			name := fieldStyle.Render(fmt.Sprintf("%-16s", f.Name))
			b.WriteString(fmt.Sprintf("  %s offset=%-4d %s", name, f.Offset, typeStyle.Render(f.Type.String())))
			if f.Pin {
				b.WriteString(" " + pinStyle.Render("pin"))
			}
			b.WriteByte('\n')
		}
		b.WriteString(helpStyle.Render("\nenter trace construction · esc back"))

	case stateInputFailAt:
		b.WriteString("Trace " + typeStyle.Render(catalog[m.selected].name) + "\n\n")
		b.WriteString(m.failAt.View())
		b.WriteString(helpStyle.Render("\n\nenter run · esc back"))

	case stateShowTrace:
		for _, ev := range m.trace {
			prefix := "  "
			switch {
			case strings.HasPrefix(ev, "fail"):
				ev = errorStyle.Render(ev)
			case strings.HasPrefix(ev, "destroy"):
				ev = pinStyle.Render(ev)
			default:
				ev = resultStyle.Render(ev)
			}
			b.WriteString(prefix + ev + "\n")
		}
		b.WriteByte('\n')
		if m.traceErr != nil {
			b.WriteString(errorStyle.Render("result: " + m.traceErr.Error()))
		} else {
			b.WriteString(resultStyle.Render("result: ok"))
		}
		b.WriteString(helpStyle.Render("\n\nenter back to types"))
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}
	return b.String()
}
