package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// themesCommand lists the available themes.
func (c *CLI) themesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if err := printThemeTable(theme.NewResolver(cfg.Paths.Themes)); err != nil {
				return err
			}
			printNewline()
			printNextStep("Render with a theme", appName+" render -c <city> -C <country> -t <name>")
			return nil
		},
	}
}

func printThemeTable(themes *theme.Resolver) error {
	infos, err := themes.List()
	if err != nil {
		return errors.ThemeLoad(err, "could not list themes")
	}
	fmt.Println(themeTable(infos))
	return nil
}

// themeTable renders theme infos as a bordered table.
func themeTable(infos []theme.Info) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if name == theme.DefaultName {
			name += " *"
		}
		rows = append(rows, []string{name, info.DisplayName, info.Description})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "Display name", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 2:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}
