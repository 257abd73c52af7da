package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/pipeline"
	"github.com/ByLCY/versereel/quran"
)

var metadataFlags struct {
	surah, ayah int
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Generate title, description and hashtags for a verse",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		reciter := a.cfg.Quran.Reciter
		var v quran.Verse
		if metadataFlags.surah > 0 {
			v, err = a.quran().Ayah(cmd.Context(), metadataFlags.surah, metadataFlags.ayah, reciter)
		} else {
			v, err = a.quran().Random(cmd.Context(), reciter)
		}
		if err != nil {
			return err
		}
		meta, err := a.generator().Generate(cmd.Context(), pipeline.MetadataInput(v))
		if err != nil {
			return fmt.Errorf("生成文案失败: %w", err)
		}

		bold := lipgloss.NewStyle().Bold(true)
		cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("#00BCD4"))
		gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
		fmt.Println()
		fmt.Printf("%s %s\n\n", gray.Render(v.SurahName+" "+v.Ref()), v.TextLatin)
		fmt.Println(bold.Render(meta.Title))
		fmt.Println(meta.Description)
		fmt.Println(cyan.Render(strings.Join(meta.Hashtags, " ")))
		fmt.Println()
		return nil
	},
}

func init() {
	metadataCmd.Flags().IntVar(&metadataFlags.surah, "surah", 0, "章号（默认随机）")
	metadataCmd.Flags().IntVar(&metadataFlags.ayah, "ayah", 1, "节号")
	rootCmd.AddCommand(metadataCmd)
}
