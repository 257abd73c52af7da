package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/layout"
	"github.com/ByLCY/versereel/quran"
	"github.com/ByLCY/versereel/renderer"
	canvasrenderer "github.com/ByLCY/versereel/renderer/canvas"
	"github.com/ByLCY/versereel/renderer/raster"
	"github.com/ByLCY/versereel/scene"
	"github.com/ByLCY/versereel/template"
)

// sampleVerse 用于离线校样。
var sampleVerse = quran.Verse{
	SurahName:   "Al-Asr",
	SurahNumber: 103,
	AyahNumber:  2,
	Reciter:     quran.DefaultReciter,
	TextRTL:     "إِنَّ ٱلْإِنسَـٰنَ لَفِى خُسْرٍ",
	TextLatin:   "L'homme est certes, en perdition,",
	TextEnglish: "Indeed, mankind is in loss,",
	Theme:       "The Declining Day",
}

var proofFlags struct {
	template    string
	data        string
	surah, ayah int
	pdf         string
	png         string
	thumb       string
	thumbWidth  uint
	debug       string
	annotate    bool
}

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Lay out a verse and write PDF/PNG proofs without encoding video",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		f := proofFlags
		var data any
		switch {
		case f.data != "":
			if err := json.Unmarshal([]byte(f.data), &data); err != nil {
				return fmt.Errorf("解析 data JSON 失败: %w", err)
			}
		case f.surah > 0:
			v, err := a.quran().Ayah(cmd.Context(), f.surah, f.ayah, a.cfg.Quran.Reciter)
			if err != nil {
				return err
			}
			data = v.Data()
		default:
			data = sampleVerse.Data()
		}

		tpl := f.template
		if tpl == "" {
			tpl = a.cfg.Assets.Template
		}
		pdf := canvasrenderer.Options{
			BaseDir:  a.cfg.Assets.BaseDir,
			Annotate: f.annotate,
			Meta:     canvasrenderer.Meta{Creator: "versereel " + version},
		}
		out := proofOutputs{pdf: f.pdf, png: f.png, thumb: f.thumb, thumbWidth: f.thumbWidth, debug: f.debug}
		if err := runProof(tpl, data, a.composer(), a.raster(), pdf, out); err != nil {
			return fmt.Errorf("生成校样失败: %w", err)
		}
		for _, p := range []string{f.pdf, f.png, f.thumb, f.debug} {
			if p != "" {
				fmt.Printf("已生成：%s\n", p)
			}
		}
		return nil
	},
}

type proofOutputs struct {
	pdf, png, thumb, debug string
	thumbWidth             uint
}

// runProof 串联模板解析、排版与校样渲染。
func runProof(tplPath string, data any, c *scene.Composer, png *raster.Renderer, pdfOpts canvasrenderer.Options, out proofOutputs) error {
	if c == nil || png == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	doc, err := template.Load(tplPath)
	if err != nil {
		return err
	}
	sc, err := template.Compile(doc, data, c.Config())
	if err != nil {
		return fmt.Errorf("编译模板失败: %w", err)
	}
	frame, err := c.Layout(sc, nil)
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if out.debug != "" {
		if err := writeDebug(frame, out.debug); err != nil {
			return err
		}
	}
	if out.pdf != "" {
		pdfOpts.Meta.Title, pdfOpts.Meta.Subject, pdfOpts.Meta.Keywords = sc.Meta.Title, sc.Meta.Subject, sc.Meta.Keywords
		if err := writeRendered(canvasrenderer.NewRendererWithOptions(pdfOpts), frame, out.pdf); err != nil {
			return err
		}
	}
	if out.png != "" || out.thumb != "" {
		data, err := png.Render(frame)
		if err != nil {
			return fmt.Errorf("渲染 PNG 失败: %w", err)
		}
		if out.png != "" {
			if err := writeFile(out.png, data); err != nil {
				return err
			}
		}
		if out.thumb != "" {
			thumb, err := raster.Thumbnail(data, out.thumbWidth)
			if err != nil {
				return fmt.Errorf("生成缩略图失败: %w", err)
			}
			if err := writeFile(out.thumb, thumb); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRendered(r renderer.Renderer, frame *layout.Frame, path string) error {
	data, err := r.Render(frame)
	if err != nil {
		return fmt.Errorf("渲染 %s 失败: %w", filepath.Ext(path), err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}

func writeDebug(frame *layout.Frame, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(frame, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func init() {
	proofCmd.Flags().StringVar(&proofFlags.template, "template", "", ".reel 模板（默认使用内置模板）")
	proofCmd.Flags().StringVar(&proofFlags.data, "data", "", `绑定到模板的 JSON 数据，例如 {"verse":{"text_rtl":"..."}}`)
	proofCmd.Flags().IntVar(&proofFlags.surah, "surah", 0, "从 API 获取经文的章号")
	proofCmd.Flags().IntVar(&proofFlags.ayah, "ayah", 1, "从 API 获取经文的节号")
	proofCmd.Flags().StringVar(&proofFlags.pdf, "pdf", "output/proof.pdf", "PDF 校样输出路径")
	proofCmd.Flags().StringVar(&proofFlags.png, "png", "output/proof.png", "PNG 预览输出路径")
	proofCmd.Flags().StringVar(&proofFlags.thumb, "thumb", "", "缩略图输出路径")
	proofCmd.Flags().UintVar(&proofFlags.thumbWidth, "thumb-width", 270, "缩略图宽度（px）")
	proofCmd.Flags().StringVar(&proofFlags.debug, "debug-json", "", "布局调试 JSON 输出路径")
	proofCmd.Flags().BoolVar(&proofFlags.annotate, "annotate", true, "在 PDF 中标注字号与降级状态")
	rootCmd.AddCommand(proofCmd)
}
