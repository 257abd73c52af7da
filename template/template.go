// Package template compiles .reel scene templates into caption blocks.
//
// A template only needs to declare what differs from the configured defaults:
// every caption starts from the block defaults of its script (rtl or latin)
// and the frame starts from the render configuration.
package template

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ByLCY/versereel/binding"
	"github.com/ByLCY/versereel/config"
	"github.com/ByLCY/versereel/dsl"
	"github.com/ByLCY/versereel/layout"
)

// DefaultSource 复刻原始设计：上方阿拉伯文经文，下方译文。
const DefaultSource = `scene Verse v1 {
  meta {
    title: "${verse.surah_name} ${verse.surah}:${verse.ayah}"
    subject: "${verse.theme}"
  }

  caption arabic rtl {
    text: "${verse.text_rtl}"
  }

  caption translation latin {
    text: "${verse.text_latin}"
  }
}
`

// Meta 是模板中的文档信息，用于校样 PDF 与发布元数据。
type Meta struct {
	Title    string
	Subject  string
	Keywords []string
}

// Scene 是编译后的画面描述。
type Scene struct {
	Name        string
	Meta        Meta
	Width       int
	Height      int
	Background  layout.Color
	Dim         float64
	FPS         int
	TrailingPad float64 // 秒
	Blocks      []layout.TextBlock
}

// Load 读取模板文件；path 为空时解析内置模板。
func Load(path string) (*dsl.Document, error) {
	if path == "" {
		return dsl.ParseString(DefaultSource)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开模板文件 %s: %w", path, err)
	}
	defer file.Close()
	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析模板 %s 失败: %w", path, err)
	}
	return doc, nil
}

// Base 根据渲染配置构造未经模板覆盖的画面。
func Base(cfg config.RenderConfig) (Scene, error) {
	bg, err := layout.ParseColor(cfg.FallbackColor)
	if err != nil {
		return Scene{}, fmt.Errorf("fallback_color: %w", err)
	}
	return Scene{
		Name:        "Verse",
		Width:       cfg.Width,
		Height:      cfg.Height,
		Background:  bg,
		Dim:         cfg.Dim,
		FPS:         cfg.FPS,
		TrailingPad: cfg.TrailingPad,
	}, nil
}

// Compile 将模板与绑定数据编译为 Scene。所有 ${} 绑定必须能够解析。
func Compile(doc *dsl.Document, data any, cfg config.RenderConfig) (Scene, error) {
	if doc == nil {
		return Scene{}, fmt.Errorf("模板为空")
	}
	scene, err := Base(cfg)
	if err != nil {
		return Scene{}, err
	}
	scene.Name = doc.Name

	c := &compiler{data: data, cfg: cfg}
	for _, section := range doc.Sections {
		switch section.Kind() {
		case "meta":
			if err := c.meta(section.Meta, &scene.Meta); err != nil {
				return Scene{}, err
			}
		case "frame":
			if err := c.frame(section.Frame, &scene); err != nil {
				return Scene{}, err
			}
		}
	}

	seen := map[string]bool{}
	for _, caption := range doc.Captions() {
		if seen[caption.Name] {
			return Scene{}, fmt.Errorf("字幕块 %s 重复定义", caption.Name)
		}
		seen[caption.Name] = true
		block, err := c.caption(caption, scene)
		if err != nil {
			return Scene{}, err
		}
		scene.Blocks = append(scene.Blocks, block)
	}
	if len(scene.Blocks) == 0 {
		return Scene{}, fmt.Errorf("模板 %s 未定义任何字幕块", doc.Name)
	}
	return scene, nil
}

type compiler struct {
	data any
	cfg  config.RenderConfig
}

func (c *compiler) meta(block *dsl.Block, meta *Meta) error {
	return eachProperty(block, "meta", func(a *dsl.Property) error {
		switch a.Key {
		case "title":
			v, err := c.text(a.Value)
			meta.Title = v
			return err
		case "subject":
			v, err := c.text(a.Value)
			meta.Subject = v
			return err
		case "keywords":
			if a.Value.List == nil {
				return fmt.Errorf("keywords 必须为数组")
			}
			for _, item := range a.Value.List.Items {
				v, err := c.text(item)
				if err != nil {
					return err
				}
				meta.Keywords = append(meta.Keywords, v)
			}
			return nil
		default:
			return fmt.Errorf("未知的 meta 属性 %s", a.Key)
		}
	})
}

func (c *compiler) frame(block *dsl.Block, scene *Scene) error {
	return eachProperty(block, "frame", func(a *dsl.Property) error {
		raw, err := c.text(a.Value)
		if err != nil {
			return err
		}
		switch a.Key {
		case "width", "height":
			l, err := layout.ParseLength(raw)
			if err != nil {
				return err
			}
			if l.Value <= 0 || l.Unit == layout.UnitPercent {
				return fmt.Errorf("%s 必须为正的像素值", a.Key)
			}
			if a.Key == "width" {
				scene.Width = int(l.Value)
			} else {
				scene.Height = int(l.Value)
			}
		case "background":
			col, err := layout.ParseColor(raw)
			if err != nil {
				return err
			}
			scene.Background = col
		case "dim":
			l, err := layout.ParseLength(raw)
			if err != nil {
				return err
			}
			dim := l.Value
			if l.Unit == layout.UnitPercent {
				dim = l.Value / 100
			}
			if dim < 0 || dim > 1 {
				return fmt.Errorf("dim 必须位于 [0,1]，当前 %s", raw)
			}
			scene.Dim = dim
		case "fps":
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return fmt.Errorf("fps 无效: %s", raw)
			}
			scene.FPS = n
		case "pad":
			l, err := layout.ParseLength(raw)
			if err != nil {
				return err
			}
			if l.Value < 0 {
				return fmt.Errorf("pad 不能为负")
			}
			scene.TrailingPad = l.Value
		default:
			return fmt.Errorf("未知的 frame 属性 %s", a.Key)
		}
		return nil
	})
}

func (c *compiler) caption(cs *dsl.CaptionSection, scene Scene) (layout.TextBlock, error) {
	script, defaults, err := c.script(cs.Script)
	if err != nil {
		return layout.TextBlock{}, fmt.Errorf("字幕块 %s: %w", cs.Name, err)
	}
	block := layout.TextBlock{
		Name:      cs.Name,
		Script:    script,
		Font:      layout.FontResource{Name: cs.Name, Src: defaults.Font},
		AnchorY:   defaults.AnchorY,
		MaxWidth:  defaults.MaxWidth,
		StartSize: defaults.Size,
		MinSize:   defaults.MinSize,
		MaxChars:  defaults.MaxChars,
	}
	if block.Color, err = layout.ParseColor(defaults.Color); err != nil {
		return layout.TextBlock{}, fmt.Errorf("字幕块 %s: %w", cs.Name, err)
	}

	where := "caption " + cs.Name
	err = eachStatement(cs.Block, where, func(a *dsl.Property) error {
		raw, err := c.text(a.Value)
		if err != nil {
			return err
		}
		switch a.Key {
		case "text":
			block.Text = raw
		case "font":
			block.Font.Src = raw
		case "color":
			col, err := layout.ParseColor(raw)
			if err != nil {
				return err
			}
			block.Color = col
		case "size", "min-size", "anchor", "width":
			l, err := layout.ParseLength(raw)
			if err != nil {
				return err
			}
			switch a.Key {
			case "size":
				block.StartSize = l.Px(float64(scene.Height))
			case "min-size":
				block.MinSize = l.Px(float64(scene.Height))
			case "anchor":
				block.AnchorY = l.Px(float64(scene.Height))
			case "width":
				block.MaxWidth = l.Px(float64(scene.Width))
			}
		case "wrap":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("wrap 必须为整数: %s", raw)
			}
			block.MaxChars = n
		default:
			return fmt.Errorf("未知的字幕属性 %s", a.Key)
		}
		return nil
	}, func(sw *dsl.Switch) error {
		return applySwitch(sw, &block.Style)
	})
	if err != nil {
		return layout.TextBlock{}, err
	}
	if strings.TrimSpace(block.Text) == "" {
		return layout.TextBlock{}, fmt.Errorf("字幕块 %s 缺少 text", cs.Name)
	}
	if block.MinSize <= 0 || block.StartSize < block.MinSize {
		return layout.TextBlock{}, fmt.Errorf("字幕块 %s 字号范围无效: size=%g min=%g", cs.Name, block.StartSize, block.MinSize)
	}
	return block, nil
}

func (c *compiler) script(name string) (layout.ScriptKind, config.BlockConfig, error) {
	switch strings.ToLower(name) {
	case "rtl", "arabic":
		return layout.ScriptRTL, c.cfg.Arabic, nil
	case "", "latin", "ltr":
		return layout.ScriptLatin, c.cfg.Latin, nil
	default:
		return 0, config.BlockConfig{}, fmt.Errorf("未知的文字类型 %s", name)
	}
}

// applySwitch 处理字幕块开关：shadow off|on|<px>，box off|on|<alpha 0-255 或百分比>。
func applySwitch(sw *dsl.Switch, style *layout.Style) error {
	arg := "on"
	if sw.Arg != nil {
		arg = *sw.Arg
	}
	switch sw.Name {
	case "shadow":
		switch arg {
		case "off":
			style.NoShadow = true
		case "on":
			style.NoShadow = false
		default:
			l, err := layout.ParseLength(arg)
			if err != nil || (l.Unit != layout.UnitPX && l.Unit != layout.UnitNone) || l.Value <= 0 {
				return fmt.Errorf("shadow 需为 on、off 或正的像素偏移，当前 %s", arg)
			}
			style.NoShadow, style.ShadowOffset = false, l.Value
		}
	case "box":
		switch arg {
		case "off":
			style.NoBox = true
		case "on":
			style.NoBox = false
		default:
			l, err := layout.ParseLength(arg)
			if err != nil || (l.Unit != layout.UnitNone && l.Unit != layout.UnitPercent) {
				return fmt.Errorf("box 需为 on、off、0-255 或百分比，当前 %s", arg)
			}
			alpha := l.Value
			if l.Unit == layout.UnitPercent {
				alpha = l.Value / 100 * 255
			}
			if alpha <= 0 || alpha > 255 {
				return fmt.Errorf("box 透明度超出范围: %s", arg)
			}
			style.NoBox, style.BoxAlpha = false, int(math.Round(alpha))
		}
	default:
		return fmt.Errorf("不支持的指令 %s", sw.Name)
	}
	return nil
}

// text 将属性值求值为字符串，字符串字面量中的 ${} 绑定会被解析。
func (c *compiler) text(v *dsl.Value) (string, error) {
	if v != nil && v.String != nil {
		return binding.Resolve(string(*v.String), c.data)
	}
	raw, ok := v.Raw()
	if !ok {
		return "", fmt.Errorf("需要单个属性值")
	}
	return raw, nil
}

// eachProperty 遍历只允许属性的块（meta、frame）。
func eachProperty(block *dsl.Block, where string, fn func(p *dsl.Property) error) error {
	return eachStatement(block, where, fn, func(sw *dsl.Switch) error {
		return fmt.Errorf("不支持的指令 %s", sw.Name)
	})
}

func eachStatement(block *dsl.Block, where string, prop func(p *dsl.Property) error, toggle func(sw *dsl.Switch) error) error {
	if block == nil {
		return nil
	}
	for _, st := range block.Statements {
		switch {
		case st.Property != nil:
			if err := prop(st.Property); err != nil {
				return fmt.Errorf("%s.%s (第 %d 行): %w", where, st.Property.Key, st.Property.Pos.Line, err)
			}
		case st.Switch != nil:
			if err := toggle(st.Switch); err != nil {
				return fmt.Errorf("%s (第 %d 行): %w", where, st.Switch.Pos.Line, err)
			}
		}
	}
	return nil
}
