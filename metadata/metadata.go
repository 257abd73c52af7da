// Package metadata 生成发布用的标题、描述与标签，只在发布阶段使用，不参与渲染。
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrEmptyResponse 表示生成器没有返回任何可用内容。
var ErrEmptyResponse = errors.New("metadata response is empty")

// Input 是生成元数据所需的经文信息。
type Input struct {
	SurahName string
	Ayah      string // 例如 "112:1"
	Text      string // 译文
	Theme     string
}

// Metadata 是解析后的发布元数据。
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Hashtags    []string `json:"hashtags"`
	Raw         string   `json:"-"`
}

// Tags returns the hashtags without their leading '#'.
func (m Metadata) Tags() []string {
	tags := make([]string, 0, len(m.Hashtags))
	for _, h := range m.Hashtags {
		if t := strings.TrimPrefix(h, "#"); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Body joins the description and the hashtags, the layout used for the upload description.
func (m Metadata) Body() string {
	if len(m.Hashtags) == 0 {
		return m.Description
	}
	return strings.TrimSpace(m.Description + "\n\n" + strings.Join(m.Hashtags, " "))
}

// Generator produces publication metadata for a verse.
type Generator interface {
	Generate(ctx context.Context, in Input) (Metadata, error)
}

// Prompt 构造发送给模型的提示词，要求固定的三段格式。
func Prompt(in Input) string {
	return fmt.Sprintf(`Rôle : Expert Community Manager Musulman pour TikTok.
Tâche : Rédiger les métadonnées pour une vidéo de ce verset :
- Sourate : %s (%s)
- Thème : %s
- Texte : "%s"

Format de réponse OBLIGATOIRE :

[TITRE]
(Court, accrocheur, max 1 emoji)

[DESCRIPTION]
(2 phrases inspirantes et bienveillantes. Pas de texte générique.)

[HASHTAGS]
(5 hashtags pertinents mixant FR/EN)
`, in.SurahName, in.Ayah, in.Theme, in.Text)
}

const (
	sectionTitle       = "TITRE"
	sectionDescription = "DESCRIPTION"
	sectionHashtags    = "HASHTAGS"
)

// Parse 将 [TITRE] / [DESCRIPTION] / [HASHTAGS] 三段文本拆分为 Metadata。
// 段落标题大小写不敏感，允许出现 markdown 粗体；缺少标题段时返回错误。
func Parse(text string) (Metadata, error) {
	if strings.TrimSpace(text) == "" {
		return Metadata{}, ErrEmptyResponse
	}
	sections := map[string][]string{}
	current := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if name, ok := sectionHeader(line); ok {
			current = name
			continue
		}
		if current == "" || line == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}

	m := Metadata{
		Title:       strings.Join(sections[sectionTitle], " "),
		Description: strings.Join(sections[sectionDescription], " "),
		Hashtags:    parseHashtags(strings.Join(sections[sectionHashtags], " ")),
		Raw:         text,
	}
	if m.Title == "" {
		return m, fmt.Errorf("缺少 [%s] 段落: %w", sectionTitle, ErrEmptyResponse)
	}
	return m, nil
}

func sectionHeader(line string) (string, bool) {
	line = strings.Trim(line, "*# ")
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", false
	}
	name := strings.ToUpper(strings.TrimSpace(line[1 : len(line)-1]))
	switch name {
	case sectionTitle, "TITLE":
		return sectionTitle, true
	case sectionDescription:
		return sectionDescription, true
	case sectionHashtags, "TAGS":
		return sectionHashtags, true
	}
	return "", false
}

// parseHashtags 提取 #标签，去重并保留出现顺序；没有 # 的词也会被补全。
func parseHashtags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == ',' })
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		tag := strings.TrimRight(strings.TrimLeft(f, "#"), ".;")
		if tag == "" {
			continue
		}
		tag = "#" + tag
		if key := strings.ToLower(tag); !seen[key] {
			seen[key] = true
			out = append(out, tag)
		}
	}
	return out
}

// Static 在未配置模型时根据经文直接拼出元数据。
type Static struct{}

var _ Generator = Static{}

// Generate implements Generator.
func (Static) Generate(_ context.Context, in Input) (Metadata, error) {
	title := strings.TrimSpace(fmt.Sprintf("%s %s", in.SurahName, in.Ayah))
	if title == "" {
		return Metadata{}, fmt.Errorf("缺少经文信息: %w", ErrEmptyResponse)
	}
	tags := []string{"#quran", "#islam", "#coran"}
	if in.Theme != "" {
		tags = append(tags, "#"+strings.ToLower(strings.Join(strings.Fields(in.Theme), "")))
	}
	return Metadata{Title: title, Description: in.Text, Hashtags: tags}, nil
}
