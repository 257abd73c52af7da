package quran

// Verse 汇总一节经文的音频与文本。
type Verse struct {
	SurahName   string `json:"surah_name"`
	SurahNumber int    `json:"surah"`
	AyahNumber  int    `json:"ayah"`
	Reciter     string `json:"reciter"`
	AudioURL    string `json:"audio_url"`
	TextRTL     string `json:"text_rtl"`
	TextLatin   string `json:"text_latin"`
	TextEnglish string `json:"text_en"`
	Theme       string `json:"theme"` // 章名英译，用于背景检索与元数据
}

// Ref returns the "surah:ayah" reference.
func (v Verse) Ref() string {
	return itoa(v.SurahNumber) + ":" + itoa(v.AyahNumber)
}

// Data 返回模板绑定使用的数据，键名与 JSON 字段一致，例如 ${verse.text_rtl}。
func (v Verse) Data() map[string]any {
	return map[string]any{
		"verse": map[string]any{
			"surah_name": v.SurahName,
			"surah":      v.SurahNumber,
			"ayah":       v.AyahNumber,
			"ref":        v.Ref(),
			"reciter":    v.Reciter,
			"audio_url":  v.AudioURL,
			"text_rtl":   v.TextRTL,
			"text_latin": v.TextLatin,
			"text_en":    v.TextEnglish,
			"theme":      v.Theme,
		},
	}
}

// Surah 是章节目录中的一项。
type Surah struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"englishName"`
	EnglishNameTranslation string `json:"englishNameTranslation"`
	NumberOfAyahs          int    `json:"numberOfAyahs"`
}
