package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
)

var styles = struct {
	title    lipgloss.Style
	accent   lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
	errText  lipgloss.Style
	code     lipgloss.Style
	detail   lipgloss.Style
	label    lipgloss.Style
}{
	title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("24")).Padding(0, 1),
	accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
	errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	code:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Width(12),
	detail:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(1, 2),
	label:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(10),
}

// View implements tea.Model.
func (m Model) View() string {
	if card, open := m.cursor.Selected(); open {
		return m.viewDetail(card)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Card Catalog"))
	b.WriteString("\n")

	rows := m.rows()
	end := m.offset + rows
	if end > len(m.items) {
		end = len(m.items)
	}
	for i := m.offset; i < end; i++ {
		line := renderRow(m.items[i])
		if i == m.selected {
			line = styles.selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	// Sentinel row
	if end-m.offset < rows {
		b.WriteString(m.sentinelRow())
		b.WriteString("\n")
		for i := end - m.offset + 1; i < rows; i++ {
			b.WriteString("\n")
		}
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(m.help.View(keyMap{}))
	}
	return b.String()
}

func (m Model) sentinelRow() string {
	switch {
	case m.state.Busy():
		return m.spinner.View() + styles.muted.Render(" loading…")
	case m.state.NoResults:
		return styles.muted.Render("No cards match this search.")
	case m.state.Phase == pagination.PhaseExhausted:
		return styles.muted.Render("end of catalog")
	default:
		return ""
	}
}

func (m Model) statusLine() string {
	status := styles.muted.Render(statusText(m.state, len(m.items)))
	if m.err != nil {
		status += "  " + styles.errText.Render(m.err.Error())
	}
	return status
}

func renderRow(c catalog.Card) string {
	parts := []string{styles.code.Render(c.Code), c.Name}
	if c.Rarity != "" {
		parts = append(parts, styles.muted.Render(c.Rarity))
	}
	if c.Color != "" {
		parts = append(parts, styles.muted.Render(c.Color))
	}
	return strings.Join(parts, " ")
}

func (m Model) viewDetail(c catalog.Card) string {
	field := func(label, value string) string {
		if value == "" {
			return ""
		}
		return styles.label.Render(label) + value + "\n"
	}
	number := func(label string, n *int) string {
		if n == nil {
			return ""
		}
		return field(label, fmt.Sprint(*n))
	}

	var b strings.Builder
	b.WriteString(styles.accent.Render(c.Code) + "  " + lipgloss.NewStyle().Bold(true).Render(c.Name) + "\n\n")
	b.WriteString(field("Set", c.SetName))
	b.WriteString(field("Rarity", c.Rarity))
	b.WriteString(field("Type", c.Type))
	b.WriteString(field("Color", c.Color))
	b.WriteString(field("Attribute", c.Attribute))
	b.WriteString(field("Family", c.Family))
	b.WriteString(number("Cost", c.Cost))
	b.WriteString(number("Power", c.Power))
	b.WriteString(number("Counter", c.Counter))
	if c.Effect != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(60).Render(c.Effect) + "\n")
	}

	box := styles.detail.Render(strings.TrimRight(b.String(), "\n"))
	footer := m.help.View(keyMap{detail: true})

	if m.width == 0 || m.height == 0 {
		return box + "\n" + footer
	}
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, box) + "\n" + footer
}
