package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ThemePickerModel - Interactive theme selection
// =============================================================================

// ThemePickerModel is the bubbletea model for interactive theme selection.
type ThemePickerModel struct {
	Themes   []theme.Info
	Cursor   int
	Selected *theme.Info
	Height   int
	Offset   int
}

// NewThemePickerModel creates a picker with the cursor on the default theme.
func NewThemePickerModel(themes []theme.Info) ThemePickerModel {
	m := ThemePickerModel{Themes: themes, Height: 15}
	for i, t := range themes {
		if t.Name == theme.DefaultName {
			m.Cursor = i
		}
	}
	m.scroll()
	return m
}

func (m ThemePickerModel) Init() tea.Cmd {
	return nil
}

func (m ThemePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Themes)-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = len(m.Themes) - 1
		case "enter":
			if len(m.Themes) == 0 {
				return m, tea.Quit
			}
			t := m.Themes[m.Cursor]
			m.Selected = &t
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	m.scroll()
	return m, nil
}

// scroll keeps the cursor inside the visible window.
func (m *ThemePickerModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m ThemePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Theme"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Themes) {
		end = len(m.Themes)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		t := m.Themes[i]
		rows = append(rows, []string{cursor, t.Name, t.Description})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Theme", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(tbl.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Themes))))

	return b.String()
}

// pickTheme runs the picker and returns the chosen theme name, or "" if
// the user quit without choosing.
func pickTheme(themes *theme.Resolver) (string, error) {
	infos, err := themes.List()
	if err != nil {
		return "", errors.ThemeLoad(err, "could not list themes")
	}

	final, err := tea.NewProgram(NewThemePickerModel(infos)).Run()
	if err != nil {
		return "", fmt.Errorf("theme picker: %w", err)
	}
	if m, ok := final.(ThemePickerModel); ok && m.Selected != nil {
		return m.Selected.Name, nil
	}
	return "", nil
}
