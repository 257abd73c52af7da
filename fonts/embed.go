package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/dejavu/dejavusans"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体：Go 字体家族只覆盖拉丁文字，DejaVu Sans 覆盖阿拉伯文字及其连写形式。
var builtin = map[string][]byte{
	"go-regular":  goregular.TTF,
	"go-bold":     gobold.TTF,
	"go-mono":     gomono.TTF,
	"dejavu-sans": dejavusans.TTF,
}

const (
	// Default 是拉丁文字块字体加载失败时使用的内置字体。
	Default = "go-regular"
	// DefaultRTL 是右到左文字块字体加载失败时使用的内置字体。
	DefaultRTL = "dejavu-sans"
)

// Load 返回内置字体的字节数据，name 可写为 "embed:go-regular" 或直接 "go-regular"。
func Load(name string) ([]byte, error) {
	clean := strings.TrimSuffix(strings.TrimPrefix(name, "embed:"), ".ttf")
	data, ok := builtin[clean]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体 %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names lists the built-in font names.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
