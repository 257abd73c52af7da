package scene

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Runner 执行一次 ffmpeg 调用；ctx 取消时必须终止子进程。
// progress 以已编码的秒数回调，可以为 nil。
type Runner interface {
	Run(ctx context.Context, args []string, progress func(seconds float64)) error
}

// ExecRunner 通过 exec.CommandContext 运行 ffmpeg，并解析 -progress 输出。
type ExecRunner struct {
	Binary string
}

var _ Runner = ExecRunner{}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, args []string, progress func(seconds float64)) error {
	bin := r.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	full := append([]string{"-hide_banner", "-nostats", "-progress", "pipe:1"}, args...)
	cmd := exec.CommandContext(ctx, bin, full...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("创建 ffmpeg 输出管道失败: %w", err)
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动 ffmpeg 失败: %w", err)
	}
	scanProgress(stdout, progress)
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg 已取消: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg 执行失败: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func scanProgress(r io.Reader, progress func(float64)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if progress == nil {
			continue
		}
		if sec, ok := parseProgress(sc.Text()); ok {
			progress(sec)
		}
	}
}

// parseProgress 解析 -progress 的 out_time_us / out_time_ms 行（两者单位均为微秒）。
func parseProgress(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || (key != "out_time_us" && key != "out_time_ms") {
		return 0, false
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

// tailBuffer 只保留最后 limit 字节的 stderr。
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
