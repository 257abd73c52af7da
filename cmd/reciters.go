package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/quran"
)

var recitersCmd = &cobra.Command{
	Use:   "reciters",
	Short: "List the supported reciters",
	Run: func(cmd *cobra.Command, args []string) {
		bold := lipgloss.NewStyle().Bold(true)
		gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
		green := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
		fmt.Println()
		for _, r := range quran.Reciters {
			mark := " "
			if r.Key == quran.DefaultReciter {
				mark = green.Render("★")
			}
			fmt.Printf("  %s %-28s %s\n", mark, bold.Render(r.Name), gray.Render(r.Key))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(recitersCmd)
}
