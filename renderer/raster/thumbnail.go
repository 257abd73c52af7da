package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// Thumbnail decodes a PNG preview and scales it to the given width, keeping the aspect ratio.
func Thumbnail(data []byte, width uint) ([]byte, error) {
	if width == 0 {
		return nil, fmt.Errorf("缩略图宽度必须大于 0")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码预览图失败: %w", err)
	}
	small := resize.Resize(width, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, small); err != nil {
		return nil, fmt.Errorf("编码缩略图失败: %w", err)
	}
	return buf.Bytes(), nil
}
