package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/versereel/jobs"
)

// ErrUnsafeRequest 表示远程请求引用了允许范围之外的文件或音频地址。
var ErrUnsafeRequest = errors.New("unsafe request")

// CheckRemote checks the file references of a request received over HTTP or Kafka.
// Output, template and background must be relative names without "..", and
// explicit audio must be an http(s) URL.
func (r Request) CheckRemote() error {
	for _, f := range []struct{ name, value string }{
		{"output", r.Output},
		{"template", r.Template},
		{"background", r.Background},
	} {
		if f.value != "" && !filepath.IsLocal(f.value) {
			return fmt.Errorf("%s 必须是相对路径且不能跳出目录: %q: %w", f.name, f.value, ErrUnsafeRequest)
		}
	}
	if r.Output != "" && !strings.EqualFold(filepath.Ext(r.Output), ".mp4") {
		return fmt.Errorf("output 必须是 .mp4 文件: %q: %w", r.Output, ErrUnsafeRequest)
	}
	if r.Verse != nil {
		u, err := url.Parse(r.Verse.AudioURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("音频必须是 http(s) 地址: %q: %w", r.Verse.AudioURL, ErrUnsafeRequest)
		}
	}
	return nil
}

// Confine validates a remote request and rewrites its file references into the
// configured directories: output under assets.output_dir, template under
// assets.templates and background under assets.backgrounds.
func (s *Service) Confine(req Request) (Request, error) {
	if err := req.Validate(); err != nil {
		return req, err
	}
	if err := req.CheckRemote(); err != nil {
		return req, err
	}
	a := s.cfg.Assets
	if req.Output != "" {
		req.Output = filepath.Join(orDefault(a.OutputDir, "output"), req.Output)
	}
	if req.Template != "" {
		if a.Templates == "" {
			return req, fmt.Errorf("未配置 assets.templates，不接受远程模板: %w", ErrUnsafeRequest)
		}
		req.Template = filepath.Join(a.Templates, req.Template)
	}
	if req.Background != "" {
		root := a.Backgrounds
		if root == "" {
			return req, fmt.Errorf("未配置 assets.backgrounds，不接受远程背景: %w", ErrUnsafeRequest)
		}
		// 背景配置为单个文件时，以其所在目录为根
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		req.Background = filepath.Join(root, req.Background)
	}
	return req, nil
}

// Admit confines a remote request and registers its job.
func (s *Service) Admit(ctx context.Context, req Request) (Request, jobs.Job, error) {
	req, err := s.Confine(req)
	if err != nil {
		return req, jobs.Job{}, err
	}
	return s.Enqueue(ctx, req)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
