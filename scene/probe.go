package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Prober 返回媒体文件时长（秒）。
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFProbe 通过 ffmpeg-go 调用 ffprobe。
type FFProbe struct {
	Timeout time.Duration
}

var _ Prober = FFProbe{}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration implements Prober.
func (p FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s 失败: %w", path, err)
	}
	return parseDuration(raw)
}

// parseDuration 优先读取 format.duration，缺失时使用最长的流时长。
func parseDuration(raw string) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("解析 ffprobe 输出失败: %w", err)
	}
	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil && d > 0 {
		return d, nil
	}
	longest := 0.0
	for _, s := range out.Streams {
		if d, err := strconv.ParseFloat(strings.TrimSpace(s.Duration), 64); err == nil && d > longest {
			longest = d
		}
	}
	if longest <= 0 {
		return 0, fmt.Errorf("ffprobe 未返回有效时长")
	}
	return longest, nil
}
