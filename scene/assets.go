package scene

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".m4v": true}

// fetchAudio 将远程音频下载到 dir，本地路径只检查是否存在。
func (c *Composer) fetchAudio(ctx context.Context, src, dir string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("未指定音频: %w", ErrDataUnavailable)
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("读取音频 %s 失败: %v: %w", src, err, ErrDataUnavailable)
		}
		return src, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.audioTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("创建音频请求失败: %v: %w", err, ErrDataUnavailable)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("下载音频失败: %v: %w", err, ErrDataUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("下载音频返回 %d: %w", resp.StatusCode, ErrDataUnavailable)
	}

	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 {
		ext = ".mp3"
	}
	dst := filepath.Join(dir, "audio"+ext)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("创建音频文件失败: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return "", fmt.Errorf("写入音频失败: %v: %w", err, ErrDataUnavailable)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("写入音频失败: %w", err)
	}
	return dst, nil
}

// pickBackground 解析背景素材：文件直接使用，目录中随机选择一个视频。
func (c *Composer) pickBackground(src string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("未配置背景: %w", ErrAssetMissing)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("背景 %s 不存在: %w", src, ErrAssetMissing)
	}
	if !info.IsDir() {
		return src, nil
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", fmt.Errorf("读取背景目录 %s 失败: %v: %w", src, err, ErrAssetMissing)
	}
	var clips []string
	for _, e := range entries {
		if e.IsDir() || !videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		clips = append(clips, filepath.Join(src, e.Name()))
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("背景目录 %s 中没有视频: %w", src, ErrAssetMissing)
	}
	sort.Strings(clips)
	return clips[c.rnd(len(clips))], nil
}
