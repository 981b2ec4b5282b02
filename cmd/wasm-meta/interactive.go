package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const previewLimit = 4096

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	payloadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserState int

const (
	stateList browserState = iota
	stateFilter
	statePayload
)

type browserModel struct {
	info     *moduleInfo
	filter   textinput.Model
	visible  []int // indexes into info.Customs
	selected int
	state    browserState
}

func newBrowserModel(info *moduleInfo) *browserModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "section name"
	ti.Width = 40

	m := &browserModel{info: info, filter: ti}
	m.applyFilter()
	return m
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, cs := range m.info.Customs {
		if strings.Contains(strings.ToLower(cs.Name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browserModel) current() (sectionInfo, bool) {
	if len(m.visible) == 0 {
		return sectionInfo{}, false
	}
	return m.info.Customs[m.visible[m.selected]], true
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateFilter {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter", "esc":
			m.filter.Blur()
			m.state = stateList
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateList && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateList && m.selected < len(m.visible)-1 {
			m.selected++
		}

	case "/":
		if m.state == stateList {
			m.state = stateFilter
			return m, m.filter.Focus()
		}

	case "enter":
		switch m.state {
		case stateList:
			if _, ok := m.current(); ok {
				m.state = statePayload
			}
		case statePayload:
			m.state = stateList
		}

	case "esc":
		m.state = stateList
	}

	return m, nil
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("WASM Metadata"))
	b.WriteString(" ")
	b.WriteString(m.info.Path)
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		if len(m.visible) == 0 {
			b.WriteString("No custom sections.\n")
		}
		for i, idx := range m.visible {
			line := formatSection(m.info.Customs[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter view • / filter • q quit"))

	case statePayload:
		cs, _ := m.current()
		b.WriteString(fmt.Sprintf("%s %s\n\n", nameStyle.Render(cs.Name), sizeStyle.Render(fmt.Sprintf("(%d bytes)", cs.Size))))
		b.WriteString(payloadStyle.Render(preview(cs)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func formatSection(cs sectionInfo) string {
	kind := "binary"
	if cs.Text {
		kind = "text"
	}
	return nameStyle.Render(cs.Name) + " " + sizeStyle.Render(fmt.Sprintf("%d bytes, %s", cs.Size, kind))
}

// preview renders a payload as text when it is UTF-8 and as a hex dump
// otherwise, truncated to previewLimit bytes.
func preview(cs sectionInfo) string {
	data := cs.Data
	truncated := len(data) > previewLimit
	if truncated {
		data = data[:previewLimit]
	}

	var out string
	if cs.Text {
		out = string(data)
	} else {
		out = strings.TrimRight(hex.Dump(data), "\n")
	}
	if truncated {
		out += fmt.Sprintf("\n... %d more bytes", len(cs.Data)-previewLimit)
	}
	return out
}

func runInteractive(info *moduleInfo) error {
	p := tea.NewProgram(newBrowserModel(info), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
