package scene

import (
	"fmt"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// LayerKind 区分叠加层的来源。
type LayerKind int

const (
	LayerBackground LayerKind = iota // 循环并裁剪的视频
	LayerSolid                       // lavfi 纯色背景
	LayerDim                         // 半透明黑色遮罩
	LayerCaption                     // 字幕 PNG
)

// Layer 是叠加顺序中的一层。
type Layer struct {
	Kind   LayerKind
	Source string // 文件路径或 lavfi 源描述
}

// Plan 描述一次编码需要的全部输入与参数，不涉及文件系统。
type Plan struct {
	Width, Height int
	FPS           int
	Duration      float64 // 秒，音频时长加尾部留白
	Background    string  // 为空时使用纯色
	Fill          string  // 纯色背景，ffmpeg 颜色语法，例如 0x000000
	Dim           float64
	Captions      []string // 字幕 PNG，按绘制顺序
	Audio         string
	Output        string
	VideoCodec    string
	AudioCodec    string
	Preset        string
}

func (p Plan) size() string { return fmt.Sprintf("%dx%d", p.Width, p.Height) }

func (p Plan) seconds() string { return fmt.Sprintf("%.3f", p.Duration) }

// Layers 返回自底向上的叠加顺序：背景、遮罩、字幕。
func (p Plan) Layers() []Layer {
	layers := make([]Layer, 0, len(p.Captions)+2)
	if p.Background != "" {
		layers = append(layers, Layer{Kind: LayerBackground, Source: p.Background})
	} else {
		fill := p.Fill
		if fill == "" {
			fill = "black"
		}
		layers = append(layers, Layer{Kind: LayerSolid, Source: fmt.Sprintf("color=c=%s:s=%s:r=%d:d=%s", fill, p.size(), p.FPS, p.seconds())})
	}
	if p.Dim > 0 {
		layers = append(layers, Layer{Kind: LayerDim, Source: fmt.Sprintf("color=c=black@%.2f:s=%s:r=%d:d=%s", p.Dim, p.size(), p.FPS, p.seconds())})
	}
	for _, c := range p.Captions {
		layers = append(layers, Layer{Kind: LayerCaption, Source: c})
	}
	return layers
}

// Build 使用 ffmpeg-go 构建滤镜图，按 Layers 的顺序依次 overlay，最后绑定音频。
func (p Plan) Build() (*ffmpeg.Stream, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, fmt.Errorf("画面参数无效: %s@%d", p.size(), p.FPS)
	}
	if p.Duration <= 0 {
		return nil, fmt.Errorf("时长无效: %g", p.Duration)
	}
	if p.Audio == "" || p.Output == "" {
		return nil, fmt.Errorf("缺少音频或输出路径")
	}

	dims := fmt.Sprintf("%d:%d", p.Width, p.Height)
	var video *ffmpeg.Stream
	for _, layer := range p.Layers() {
		var s *ffmpeg.Stream
		switch layer.Kind {
		case LayerBackground:
			s = ffmpeg.Input(layer.Source, ffmpeg.KwArgs{"stream_loop": -1}).Video().
				Filter("scale", ffmpeg.Args{dims}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
				Filter("crop", ffmpeg.Args{dims}).
				Filter("setsar", ffmpeg.Args{"1"}).
				Filter("fps", ffmpeg.Args{fmt.Sprint(p.FPS)})
		case LayerSolid:
			s = ffmpeg.Input(layer.Source, ffmpeg.KwArgs{"f": "lavfi"})
		case LayerDim:
			s = ffmpeg.Input(layer.Source, ffmpeg.KwArgs{"f": "lavfi"}).Filter("format", ffmpeg.Args{"rgba"})
		case LayerCaption:
			s = ffmpeg.Input(layer.Source, ffmpeg.KwArgs{"loop": 1, "t": p.seconds(), "framerate": p.FPS})
		}
		if video == nil {
			video = s
			continue
		}
		video = ffmpeg.Filter([]*ffmpeg.Stream{video, s}, "overlay", ffmpeg.Args{"0:0"})
	}
	video = video.Filter("format", ffmpeg.Args{"yuv420p"})
	audio := ffmpeg.Input(p.Audio).Audio()

	out := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, p.Output, ffmpeg.KwArgs{
		"c:v":      orDefault(p.VideoCodec, "libx264"),
		"c:a":      orDefault(p.AudioCodec, "aac"),
		"preset":   orDefault(p.Preset, "ultrafast"),
		"pix_fmt":  "yuv420p",
		"r":        p.FPS,
		"t":        p.seconds(),
		"movflags": "+faststart",
	}).OverWriteOutput()
	return out, nil
}

// Args 返回完整的 ffmpeg 参数（不含可执行文件名）。
func (p Plan) Args() ([]string, error) {
	s, err := p.Build()
	if err != nil {
		return nil, err
	}
	return s.GetArgs(), nil
}

// ColorSource 将 #RRGGBB 转换为 ffmpeg 颜色语法。
func ColorSource(hex string) string {
	return "0x" + strings.ToUpper(strings.TrimPrefix(hex, "#"))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
