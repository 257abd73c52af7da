package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/pipeline"
	"github.com/ByLCY/versereel/quran"
)

var renderFlags struct {
	surah, ayah                   int
	reciter                       string
	audio, textRTL, textLatin     string
	surahName                     string
	background, template, output  string
	upload, withMetadata, publish bool
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one verse video",
	Long: `按经文引用渲染（--surah/--ayah），或直接提供文本与音频（--audio/--text-rtl）。
未指定经文时随机选择一节。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := renderFlags
		req := pipeline.Request{
			Surah:      f.surah,
			Ayah:       f.ayah,
			Reciter:    f.reciter,
			Background: f.background,
			Template:   f.template,
			Output:     f.output,
			Upload:     f.upload,
			Metadata:   f.withMetadata,
			Publish:    f.publish,
		}
		if f.audio != "" || f.textRTL != "" {
			req.Verse = &quran.Verse{
				SurahName:   f.surahName,
				SurahNumber: f.surah,
				AyahNumber:  f.ayah,
				Reciter:     f.reciter,
				AudioURL:    f.audio,
				TextRTL:     f.textRTL,
				TextLatin:   f.textLatin,
			}
		}
		return runRender(cmd, req)
	},
}

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Render a random verse",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := renderFlags
		return runRender(cmd, pipeline.Request{
			Reciter:    f.reciter,
			Background: f.background,
			Template:   f.template,
			Output:     f.output,
			Upload:     f.upload,
			Metadata:   f.withMetadata,
			Publish:    f.publish,
		})
	},
}

func runRender(cmd *cobra.Command, req pipeline.Request) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := a.service(ctx, needs{upload: req.Upload, publish: req.Publish})
	defer cleanup()
	if err != nil {
		return err
	}
	res, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}

	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
	fmt.Printf("%s %s\n", green.Render("✓"), bold.Render("已生成视频："+res.Video.Path))
	fmt.Printf("  %s %s %s (%s)\n", gray.Render("经文"), res.Verse.SurahName, res.Verse.Ref(), res.Verse.Reciter)
	fmt.Printf("  %s %.2fs\n", gray.Render("时长"), res.Video.Duration)
	if res.Video.Background == "" {
		fmt.Printf("  %s 纯色\n", gray.Render("背景"))
	}
	if res.Object != nil {
		fmt.Printf("  %s s3://%s/%s\n", gray.Render("存储"), res.Object.Bucket, res.Object.Key)
	}
	if res.Metadata != nil {
		fmt.Printf("  %s %s\n", gray.Render("标题"), res.Metadata.Title)
	}
	if res.Published != nil {
		fmt.Printf("  %s %s\n", gray.Render("发布"), res.Published.URL)
	}
	return nil
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVar(&renderFlags.reciter, "reciter", "", "诵读者，见 reciters 命令")
	c.Flags().StringVar(&renderFlags.background, "background", "", "背景视频文件或目录（默认使用配置）")
	c.Flags().StringVar(&renderFlags.template, "template", "", ".reel 模板（默认使用内置模板）")
	c.Flags().StringVarP(&renderFlags.output, "out", "o", "", "输出 mp4 路径")
	c.Flags().BoolVar(&renderFlags.upload, "upload", false, "上传到 S3")
	c.Flags().BoolVar(&renderFlags.withMetadata, "metadata", false, "生成发布文案")
	c.Flags().BoolVar(&renderFlags.publish, "publish", false, "发布到 YouTube")
}

func init() {
	renderCmd.Flags().IntVar(&renderFlags.surah, "surah", 0, "章号 1-114")
	renderCmd.Flags().IntVar(&renderFlags.ayah, "ayah", 0, "节号")
	renderCmd.Flags().StringVar(&renderFlags.audio, "audio", "", "音频 URL 或本地文件（与 --text-rtl 一起使用）")
	renderCmd.Flags().StringVar(&renderFlags.textRTL, "text-rtl", "", "阿拉伯文经文")
	renderCmd.Flags().StringVar(&renderFlags.textLatin, "text-latin", "", "译文")
	renderCmd.Flags().StringVar(&renderFlags.surahName, "surah-name", "", "章名")
	addOutputFlags(renderCmd)
	addOutputFlags(randomCmd)

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(randomCmd)
}
