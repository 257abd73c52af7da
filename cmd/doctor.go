package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/layout"
)

// check 是 doctor 的一项检查结果。
type check struct {
	name     string
	detail   string
	ok       bool
	required bool
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external programs, fonts and service configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		var checks []check
		for _, bin := range []string{"ffmpeg", "ffprobe"} {
			path, err := exec.LookPath(bin)
			c := check{name: bin, ok: err == nil, required: true, detail: path}
			if err != nil {
				c.detail = "未找到，请安装 ffmpeg"
			}
			checks = append(checks, c)
		}

		r := a.raster()
		// 用对应文字的样例测量，缺字形的字体同样报告为不可用
		for _, f := range []struct{ name, src, sample string }{
			{"arabic font", a.cfg.Render.Arabic.Font, "قل هو الله أحد"},
			{"latin font", a.cfg.Render.Latin.Font, "Say He is Allah"},
		} {
			name, src := f.name, f.src
			_, err := r.Measure(layout.FontResource{Name: name, Src: src}, 32, []string{f.sample})
			c := check{name: name, ok: err == nil, detail: src}
			if err != nil {
				c.detail = fmt.Sprintf("%s（将使用默认字体）: %v", src, err)
			}
			checks = append(checks, c)
		}

		if bg := a.cfg.Assets.Backgrounds; bg != "" {
			_, err := os.Stat(bg)
			checks = append(checks, check{name: "backgrounds", ok: err == nil, detail: bg})
		} else {
			checks = append(checks, check{name: "backgrounds", detail: "未配置，使用纯色背景"})
		}
		checks = append(checks,
			check{name: "cohere", ok: a.cfg.Metadata.APIKey != "", detail: "COHERE_API_KEY"},
			check{name: "s3", ok: a.cfg.Storage.Bucket != "", detail: "VERSEREEL_S3_BUCKET"},
			check{name: "redis", ok: a.cfg.Redis.Addr != "", detail: "REDIS_ADDR"},
			check{name: "kafka", ok: len(a.cfg.Kafka.Brokers) > 0, detail: "KAFKA_BROKERS"},
			check{name: "youtube", ok: a.cfg.YouTube.ServiceAccount != "", detail: "YOUTUBE_SERVICE_ACCOUNT"},
		)

		green := lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
		red := lipgloss.NewStyle().Foreground(lipgloss.Color("#E95420"))
		gray := lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9EA0"))
		bold := lipgloss.NewStyle().Bold(true)

		fmt.Println()
		allRequiredOk := true
		for _, c := range checks {
			var status string
			switch {
			case c.ok:
				status = green.Render("✓")
			case c.required:
				status = red.Render("✗")
				allRequiredOk = false
			default:
				status = gray.Render("○")
			}
			fmt.Printf("  %s %-12s %s\n", status, bold.Render(c.name), gray.Render(c.detail))
		}
		fmt.Println()
		if !allRequiredOk {
			return fmt.Errorf("缺少必需的外部程序")
		}
		fmt.Println(green.Render("可以开始渲染。"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
