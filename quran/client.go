package quran

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "http://api.alquran.cloud"
	DefaultTranslation = "fr.hamidullah"

	arabicEdition  = "quran-simple"
	englishEdition = "en.sahih"
	surahCount     = 114
)

// ErrNotFound 表示经文数据不可用（状态码非 200 或文本为空）。
var ErrNotFound = errors.New("verse data unavailable")

// Client 访问 alquran.cloud，不做重试也不做缓存。
type Client struct {
	baseURL     string
	translation string
	httpClient  *http.Client
	log         *zap.Logger
	rnd         func(n int) int
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithTranslation selects the Latin-script translation edition.
func WithTranslation(edition string) Option {
	return func(c *Client) {
		if edition != "" {
			c.translation = edition
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

// WithRand replaces the random source; rnd(n) must return a value in [0, n).
func WithRand(rnd func(n int) int) Option { return func(c *Client) { c.rnd = rnd } }

// NewClient 创建客户端；timeout 作用于每个请求。
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		translation: DefaultTranslation,
		httpClient:  &http.Client{Timeout: timeout},
		log:         zap.NewNop(),
		rnd:         rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope[T any] struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   T      `json:"data"`
}

type edition struct {
	Number int    `json:"numberInSurah"`
	Text   string `json:"text"`
	Audio  string `json:"audio"`
	Surah  Surah  `json:"surah"`
}

// Surahs 返回全部 114 章的目录。
func (c *Client) Surahs(ctx context.Context) ([]Surah, error) {
	var out envelope[[]Surah]
	if err := c.getJSON(ctx, "/v1/surah", &out); err != nil {
		return nil, fmt.Errorf("获取章节目录失败: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("章节目录为空: %w", ErrNotFound)
	}
	return out.Data, nil
}

// Ayah 一次请求四个版本：音频、阿拉伯文、译文、英文。
func (c *Client) Ayah(ctx context.Context, surah, ayah int, reciter string) (Verse, error) {
	if surah < 1 || surah > surahCount || ayah < 1 {
		return Verse{}, fmt.Errorf("经文编号无效 %d:%d: %w", surah, ayah, ErrNotFound)
	}
	if reciter == "" {
		reciter = DefaultReciter
	}
	path := fmt.Sprintf("/v1/ayah/%d:%d/editions/%s,%s,%s,%s", surah, ayah, reciter, arabicEdition, c.translation, englishEdition)

	var out envelope[[]edition]
	if err := c.getJSON(ctx, path, &out); err != nil {
		return Verse{}, fmt.Errorf("获取经文 %d:%d 失败: %w", surah, ayah, err)
	}
	if len(out.Data) < 4 {
		return Verse{}, fmt.Errorf("经文 %d:%d 版本数量不足 (%d): %w", surah, ayah, len(out.Data), ErrNotFound)
	}
	audio, arabic, latin, english := out.Data[0], out.Data[1], out.Data[2], out.Data[3]
	v := Verse{
		SurahName:   audio.Surah.EnglishName,
		SurahNumber: surah,
		AyahNumber:  ayah,
		Reciter:     reciter,
		AudioURL:    audio.Audio,
		TextRTL:     strings.TrimSpace(arabic.Text),
		TextLatin:   strings.TrimSpace(latin.Text),
		TextEnglish: strings.TrimSpace(english.Text),
		Theme:       audio.Surah.EnglishNameTranslation,
	}
	if v.TextRTL == "" || v.TextLatin == "" || v.AudioURL == "" {
		return Verse{}, fmt.Errorf("经文 %d:%d 缺少文本或音频: %w", surah, ayah, ErrNotFound)
	}
	return v, nil
}

// Random 随机选择一章，再在该章的节数范围内随机选择一节。
func (c *Client) Random(ctx context.Context, reciter string) (Verse, error) {
	surahs, err := c.Surahs(ctx)
	if err != nil {
		return Verse{}, err
	}
	s := surahs[c.rnd(len(surahs))]
	if s.NumberOfAyahs <= 0 {
		return Verse{}, fmt.Errorf("第 %d 章节数未知: %w", s.Number, ErrNotFound)
	}
	ayah := c.rnd(s.NumberOfAyahs) + 1
	c.log.Info("random verse selected", zap.Int("surah", s.Number), zap.Int("ayah", ayah))
	return c.Ayah(ctx, s.Number, ayah, reciter)
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), ErrNotFound)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
