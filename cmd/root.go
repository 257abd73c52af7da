package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	cfgPath   string
	envFiles  []string
	debugMode bool
)

// SetVersion sets the application version (called from main)
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "versereel",
	Short: "Vertical Quran verse video generator",
	Long: `versereel 生成竖屏经文短视频：

  - 从 alquran.cloud 获取经文文本、译文与诵读音频
  - 阿拉伯文整形与右到左排版，字幕自动适配字号
  - 背景循环裁剪、遮罩与字幕叠加，使用 ffmpeg 编码
  - 可选上传 S3、生成发布文案并发布到 YouTube Shorts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML 配置文件路径")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "加载的 .env 文件")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "输出调试日志")
}
