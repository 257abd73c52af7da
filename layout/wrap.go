package layout

import (
	"strings"
	"unicode/utf8"
)

// Wrap 按字符预算对文本做贪心折行。
// 行长度 = 各词的字符数 + 词间一个分隔符；超出预算时换行，新行以溢出的词开头。
// 长度超过预算的单个词独占一行，不在词内拆分。maxChars <= 0 时只按空白规整为一行。
// 右到左文本必须在整形之前对逻辑字符串调用 Wrap。
func Wrap(text string, maxChars int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(tokens, " ")}
	}

	var lines []string
	var builder strings.Builder
	count := 0
	for _, token := range tokens {
		n := utf8.RuneCountInString(token)
		if count > 0 && count+1+n > maxChars {
			lines = append(lines, builder.String())
			builder.Reset()
			count = 0
		}
		if count > 0 {
			builder.WriteByte(' ')
			count++
		}
		builder.WriteString(token)
		count += n
	}
	if builder.Len() > 0 {
		lines = append(lines, builder.String())
	}
	return lines
}
