package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/visstudy/pkg/study"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tableHeaderStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// ExperimentListModel - Interactive experiment selection
// =============================================================================

// ExperimentListModel is the bubbletea model for picking the experiments of a
// plan to generate.
type ExperimentListModel struct {
	Requests []study.Request
	Cursor   int
	Checked  []bool
	Height   int
	Offset   int

	// Confirmed is set when the user accepts the selection with enter.
	Confirmed bool
}

// NewExperimentListModel creates a list with every experiment checked.
func NewExperimentListModel(reqs []study.Request) ExperimentListModel {
	checked := make([]bool, len(reqs))
	for i := range checked {
		checked[i] = true
	}
	return ExperimentListModel{
		Requests: reqs,
		Checked:  checked,
		Height:   15,
	}
}

func (m ExperimentListModel) Init() tea.Cmd {
	return nil
}

func (m ExperimentListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Requests)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ", "x":
			if len(m.Checked) > 0 {
				m.Checked[m.Cursor] = !m.Checked[m.Cursor]
			}
		case "a":
			all := !m.allChecked()
			for i := range m.Checked {
				m.Checked[i] = all
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ExperimentListModel) allChecked() bool {
	for _, c := range m.Checked {
		if !c {
			return false
		}
	}
	return true
}

// Selected returns the checked requests in plan order, or nil if the user
// quit without confirming.
func (m ExperimentListModel) Selected() []study.Request {
	if !m.Confirmed {
		return nil
	}
	var out []study.Request
	for i, r := range m.Requests {
		if m.Checked[i] {
			out = append(out, r)
		}
	}
	return out
}

func (m ExperimentListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Experiments"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ generate  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Requests))
	for i := m.Offset; i < end; i++ {
		r := m.Requests[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		box := "[ ]"
		if m.Checked[i] {
			box = "[x]"
		}

		line := fmt.Sprintf("%s%s %-28s %s", cursor, box, r.ExperimentName,
			listDimStyle.Render(fmt.Sprintf("%d pts · %s · %s", r.NumPoints, r.DataFormat, r.Renderer)))
		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case m.Checked[i]:
			b.WriteString(listNormalStyle.Render(line))
		default:
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d selected", m.Cursor+1, len(m.Requests), len(m.selectedIdx()))))

	return b.String()
}

func (m ExperimentListModel) selectedIdx() []int {
	var idx []int
	for i, c := range m.Checked {
		if c {
			idx = append(idx, i)
		}
	}
	return idx
}

// =============================================================================
// Plan Table
// =============================================================================

// planTable renders requests as a bordered table.
func planTable(reqs []study.Request) string {
	rows := make([][]string, len(reqs))
	for i, r := range reqs {
		seed := "random"
		if r.Seed != 0 {
			seed = strconv.FormatUint(r.Seed, 10)
		}
		rows[i] = []string{
			r.ExperimentName,
			strconv.Itoa(r.NumPoints),
			strconv.Itoa(r.NumCategories),
			strconv.Itoa(r.NumAttributes),
			fmt.Sprintf("%d×%d", r.Width, r.Height),
			r.DataFormat.String(),
			r.Renderer.String(),
			seed,
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Experiment", "Points", "Categories", "Attributes", "Size", "Format", "Renderer", "Seed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return tableHeaderStyle
			case col >= 1 && col <= 3:
				return StyleNumber
			case col == 7:
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}
