package renderer

import (
	"path/filepath"

	"github.com/ByLCY/versereel/layout"
)

// Renderer 将一个画面的字幕排版结果输出为最终文件，例如 PNG 预览或 PDF 校样。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(frame *layout.Frame) ([]byte, error)
}

// ResolvePath 解析字体等资源路径：相对路径在设置了 baseDir 时相对 baseDir，否则相对工作目录。
func ResolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
