// Package scene composes the final video: it renders caption layers, resolves
// the audio and background assets, and drives ffmpeg through a filter graph
// that stacks background, dim layer and captions.
package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/versereel/config"
	"github.com/ByLCY/versereel/layout"
	"github.com/ByLCY/versereel/renderer/raster"
	"github.com/ByLCY/versereel/shaping"
	"github.com/ByLCY/versereel/template"
)

// CaptionRenderer 同时提供测量与绘制，保证两者使用相同的字体度量。
type CaptionRenderer interface {
	layout.Measurer
	RenderLayer(res layout.Result, frameW, frameH int) (*image.RGBA, error)
}

var _ CaptionRenderer = (*raster.Renderer)(nil)

// Request 是一次合成请求。
type Request struct {
	ID         string
	Scene      template.Scene
	Audio      string // URL 或本地路径
	Background string // 视频文件或目录，可为空
	Output     string
}

// Output 汇总合成结果。
type Output struct {
	Path          string        `json:"path"`
	Duration      float64       `json:"duration"`
	AudioDuration float64       `json:"audio_duration"`
	Background    string        `json:"background,omitempty"` // 为空表示使用了纯色背景
	Frame         *layout.Frame `json:"frame"`
}

// Options configures a Composer.
type Options struct {
	Render     config.RenderConfig
	TempDir    string
	Renderer   CaptionRenderer
	Runner     Runner
	Prober     Prober
	HTTPClient *http.Client
	Log        *zap.Logger
	Rand       func(n int) int
}

// Composer 将经文、背景与字幕合成为竖屏视频。
type Composer struct {
	cfg          config.RenderConfig
	tempDir      string
	renderer     CaptionRenderer
	runner       Runner
	prober       Prober
	httpClient   *http.Client
	audioTimeout time.Duration
	log          *zap.Logger
	rnd          func(n int) int
}

// NewComposer 创建合成器，未提供的依赖使用默认实现。
func NewComposer(opts Options) *Composer {
	c := &Composer{
		cfg:          opts.Render,
		tempDir:      opts.TempDir,
		renderer:     opts.Renderer,
		runner:       opts.Runner,
		prober:       opts.Prober,
		httpClient:   opts.HTTPClient,
		audioTimeout: opts.Render.AudioTimeout,
		log:          opts.Log,
		rnd:          opts.Rand,
	}
	if c.renderer == nil {
		c.renderer = raster.NewRendererWithOptions(raster.Options{
			BoxAlpha:     uint8(opts.Render.BoxAlpha),
			BoxPadding:   opts.Render.BoxPadding,
			ShadowOffset: opts.Render.ShadowOffset,
			Shaper:       shaping.New(shaping.Options{KeepHarakat: opts.Render.KeepHarakat}),
			Log:          opts.Log,
		})
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.prober == nil {
		c.prober = FFProbe{}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.audioTimeout <= 0 {
		c.audioTimeout = 30 * time.Second
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.rnd == nil {
		c.rnd = rand.IntN
	}
	return c
}

// Config returns the render configuration the composer lays captions out with.
func (c *Composer) Config() config.RenderConfig { return c.cfg }

// Compose 执行完整流程：音频、背景、字幕层、编码。
// 编码写入 <name>.part.mp4，成功后重命名；失败或取消时不留下任何输出文件。
func (c *Composer) Compose(ctx context.Context, req Request) (Output, error) {
	log := c.log.With(zap.String("request", req.ID), zap.String("output", req.Output))
	sc := req.Scene
	if req.Output == "" {
		return Output{}, fmt.Errorf("未指定输出路径")
	}
	if len(sc.Blocks) == 0 {
		return Output{}, stageErr(StageTextRender, fmt.Errorf("没有字幕块"))
	}

	dir, err := os.MkdirTemp(c.tempDir, "versereel-*")
	if err != nil {
		return Output{}, fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(dir)

	// 1. 音频
	audio, err := c.fetchAudio(ctx, req.Audio, dir)
	if err != nil {
		return Output{}, stageErr(StageAudioFetch, err)
	}
	audioDur, err := c.prober.Duration(ctx, audio)
	if err != nil || audioDur <= 0 {
		return Output{}, stageErr(StageAudioFetch, fmt.Errorf("无法获取音频时长: %v: %w", err, ErrDataUnavailable))
	}
	duration := audioDur + sc.TrailingPad
	log.Info("audio ready", zap.String("stage", string(StageAudioFetch)),
		zap.Float64("audio", audioDur), zap.Float64("duration", duration))

	// 2. 背景：缺失或不可用时退回纯色，不中断流程
	background := c.resolveBackground(ctx, req.Background, log)

	// 3. 字幕层
	frame, captions, err := c.renderCaptions(sc, dir, log)
	if err != nil {
		return Output{}, stageErr(StageTextRender, err)
	}

	// 4. 编码
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return Output{}, stageErr(StageEncode, fmt.Errorf("创建输出目录失败: %v: %w", err, ErrEncodeFailure))
	}
	part := PartPath(req.Output)
	plan := Plan{
		Width:      sc.Width,
		Height:     sc.Height,
		FPS:        sc.FPS,
		Duration:   duration,
		Background: background,
		Fill:       ColorSource(sc.Background.Hex()),
		Dim:        sc.Dim,
		Captions:   captions,
		Audio:      audio,
		Output:     part,
		VideoCodec: c.cfg.VideoCodec,
		AudioCodec: c.cfg.AudioCodec,
		Preset:     c.cfg.Preset,
	}
	args, err := plan.Args()
	if err != nil {
		return Output{}, stageErr(StageEncode, fmt.Errorf("%w: %w", ErrEncodeFailure, err))
	}
	log.Debug("ffmpeg args", zap.Strings("args", args))

	progress := func(sec float64) {
		log.Debug("encode progress", zap.Float64("seconds", sec), zap.Float64("total", duration))
	}
	if err := c.runner.Run(ctx, args, progress); err != nil {
		os.Remove(part)
		return Output{}, stageErr(StageEncode, fmt.Errorf("%w: %w", ErrEncodeFailure, err))
	}
	if err := os.Rename(part, req.Output); err != nil {
		os.Remove(part)
		return Output{}, stageErr(StageEncode, fmt.Errorf("%w: %w", ErrEncodeFailure, err))
	}
	log.Info("video ready", zap.String("stage", string(StageEncode)), zap.Float64("duration", duration))

	return Output{
		Path:          req.Output,
		Duration:      duration,
		AudioDuration: audioDur,
		Background:    background,
		Frame:         frame,
	}, nil
}

func (c *Composer) resolveBackground(ctx context.Context, src string, log *zap.Logger) string {
	bg, err := c.pickBackground(src)
	if err == nil {
		if _, perr := c.prober.Duration(ctx, bg); perr != nil {
			err = fmt.Errorf("背景 %s 不可用: %v: %w", bg, perr, ErrAssetMissing)
		}
	}
	if err != nil {
		log.Warn("background unavailable, using solid color",
			zap.String("stage", string(StageBackgroundLoad)), zap.Error(err))
		return ""
	}
	return bg
}

// Layout 排版画面中的每个字幕块，测量与绘制共用同一个渲染器。
func (c *Composer) Layout(sc template.Scene, log *zap.Logger) (*layout.Frame, error) {
	if log == nil {
		log = c.log
	}
	env := layout.Env{
		Measurer:     c.renderer,
		FrameWidth:   float64(sc.Width),
		SafetyMargin: c.cfg.SafetyMargin,
		SizeStep:     c.cfg.SizeStep,
		FallbackSize: c.cfg.FallbackSize,
		LineSpacing:  c.cfg.LineSpacing,
		Log:          log,
	}
	frame := &layout.Frame{Width: sc.Width, Height: sc.Height, Background: sc.Background, Dim: sc.Dim}
	for _, block := range sc.Blocks {
		res, err := layout.Layout(block, env)
		if err != nil {
			return nil, err
		}
		frame.Captions = append(frame.Captions, res)
		log.Info("caption laid out", zap.String("block", block.Name), zap.Float64("size", res.FontSize),
			zap.Int("lines", len(res.Lines)), zap.Bool("overflow", res.Overflow), zap.Bool("degraded", res.Degraded))
	}
	return frame, nil
}

// renderCaptions 绘制每个字幕块为透明 PNG，返回排版结果与图层路径。
func (c *Composer) renderCaptions(sc template.Scene, dir string, log *zap.Logger) (*layout.Frame, []string, error) {
	frame, err := c.Layout(sc, log)
	if err != nil {
		return nil, nil, err
	}
	paths := make([]string, 0, len(frame.Captions))
	for i, res := range frame.Captions {
		img, err := c.renderer.RenderLayer(res, sc.Width, sc.Height)
		if err != nil {
			return nil, nil, fmt.Errorf("绘制字幕 %s 失败: %w", res.Block, err)
		}
		data, err := raster.EncodePNG(img)
		if err != nil {
			return nil, nil, fmt.Errorf("编码字幕 %s 失败: %w", res.Block, err)
		}
		p := filepath.Join(dir, fmt.Sprintf("caption_%02d_%s.png", i, safeName(res.Block)))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("写入字幕层失败: %w", err)
		}
		paths = append(paths, p)
	}
	return frame, paths, nil
}

// PartPath returns the temporary encode target next to out, eg: a/b.mp4 -> a/b.part.mp4.
func PartPath(out string) string {
	ext := filepath.Ext(out)
	if ext == "" {
		ext = ".mp4"
	}
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".part" + ext
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}

// IsDataUnavailable reports whether err is a missing-data failure.
func IsDataUnavailable(err error) bool { return errors.Is(err, ErrDataUnavailable) }
