package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 是 versereel 的全部配置，默认值见 Default。
type Config struct {
	Debug    bool           `yaml:"debug"`
	Render   RenderConfig   `yaml:"render"`
	Assets   AssetsConfig   `yaml:"assets"`
	Quran    QuranConfig    `yaml:"quran"`
	Server   ServerConfig   `yaml:"server"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Metadata MetadataConfig `yaml:"metadata"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// RenderConfig 汇总排版、合成与编码参数。
type RenderConfig struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	FPS           int           `yaml:"fps"`
	TrailingPad   float64       `yaml:"trailing_pad"` // 秒，追加在音频时长之后
	Dim           float64       `yaml:"dim"`
	FallbackColor string        `yaml:"fallback_color"`
	VideoCodec    string        `yaml:"video_codec"`
	AudioCodec    string        `yaml:"audio_codec"`
	Preset        string        `yaml:"preset"`
	SafetyMargin  float64       `yaml:"safety_margin"`
	SizeStep      float64       `yaml:"size_step"`
	FallbackSize  float64       `yaml:"fallback_size"`
	LineSpacing   float64       `yaml:"line_spacing"`
	BoxAlpha      int           `yaml:"box_alpha"`
	BoxPadding    int           `yaml:"box_padding"`
	ShadowOffset  int           `yaml:"shadow_offset"`
	KeepHarakat   bool          `yaml:"keep_harakat"`
	Workers       int           `yaml:"workers"`
	AudioTimeout  time.Duration `yaml:"audio_timeout"`
	Arabic        BlockConfig   `yaml:"arabic"`
	Latin         BlockConfig   `yaml:"latin"`
}

// BlockConfig 是一种文字的字幕块默认值。
type BlockConfig struct {
	Font     string  `yaml:"font"`
	Size     float64 `yaml:"size"`
	MinSize  float64 `yaml:"min_size"`
	AnchorY  float64 `yaml:"anchor_y"`
	MaxWidth float64 `yaml:"max_width"`
	MaxChars int     `yaml:"max_chars"`
	Color    string  `yaml:"color"`
}

type AssetsConfig struct {
	BaseDir     string `yaml:"base_dir"`
	Backgrounds string `yaml:"backgrounds"` // 视频文件或目录，目录时随机选取
	Template    string `yaml:"template"`    // .reel 模板，空则使用内置模板
	Templates   string `yaml:"templates"`   // 远程请求可引用的模板目录
	OutputDir   string `yaml:"output_dir"`
	TempDir     string `yaml:"temp_dir"`
}

type QuranConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Reciter     string        `yaml:"reciter"`
	Translation string        `yaml:"translation"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
}

type RedisConfig struct {
	Addr   string        `yaml:"addr"`
	DB     int           `yaml:"db"`
	JobTTL time.Duration `yaml:"job_ttl"`
}

type StorageConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type MetadataConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type YouTubeConfig struct {
	ServiceAccount string `yaml:"service_account"`
	Privacy        string `yaml:"privacy"`
	CategoryID     string `yaml:"category_id"`
}

type ScheduleConfig struct {
	Cron    string `yaml:"cron"`
	Reciter string `yaml:"reciter"`
	Publish bool   `yaml:"publish"`
}

// Default 返回与原始设计一致的默认配置。
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Width:         1080,
			Height:        1920,
			FPS:           24,
			TrailingPad:   2.0,
			Dim:           0.5,
			FallbackColor: "black",
			VideoCodec:    "libx264",
			AudioCodec:    "aac",
			Preset:        "ultrafast",
			SafetyMargin:  20,
			SizeStep:      2,
			FallbackSize:  40,
			LineSpacing:   1.25,
			BoxAlpha:      150,
			BoxPadding:    20,
			ShadowOffset:  3,
			KeepHarakat:   true,
			Workers:       2,
			AudioTimeout:  30 * time.Second,
			Arabic: BlockConfig{
				Font:     "embed:dejavu-sans",
				Size:     80,
				MinSize:  36,
				AnchorY:  450,
				MaxWidth: 900,
				MaxChars: 30,
				Color:    "white",
			},
			Latin: BlockConfig{
				Font:     "assets/fonts/latin.ttf",
				Size:     40,
				MinSize:  24,
				AnchorY:  1100,
				MaxWidth: 900,
				MaxChars: 30,
				Color:    "yellow",
			},
		},
		Assets: AssetsConfig{
			BaseDir:     ".",
			Backgrounds: "assets/backgrounds",
			Templates:   "assets/templates",
			OutputDir:   "output",
		},
		Quran: QuranConfig{
			BaseURL:     "http://api.alquran.cloud",
			Reciter:     "ar.alafasy",
			Translation: "fr.hamidullah",
			Timeout:     15 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080"},
		Kafka:  KafkaConfig{Topic: "render-requests", Group: "versereel"},
		Redis:  RedisConfig{JobTTL: 24 * time.Hour},
		Storage: StorageConfig{
			Region: "us-east-1",
			Prefix: "renders",
		},
		Metadata: MetadataConfig{Model: "command-r"},
		YouTube:  YouTubeConfig{Privacy: "private", CategoryID: "27"},
		Schedule: ScheduleConfig{Cron: "0 9 * * *"},
	}
}

// Load 读取 YAML 配置并覆盖默认值；path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv 加载 .env 文件；文件不存在时忽略。
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("加载环境文件 %s 失败: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv 使用环境变量覆盖密钥与外部服务地址。
func (c *Config) ApplyEnv() {
	setString(&c.Metadata.APIKey, "COHERE_API_KEY")
	setString(&c.Storage.Bucket, "VERSEREEL_S3_BUCKET")
	setString(&c.Storage.Region, "AWS_REGION")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.Group, "KAFKA_GROUP")
	setString(&c.YouTube.ServiceAccount, "YOUTUBE_SERVICE_ACCOUNT")
	setString(&c.Quran.BaseURL, "QURAN_API_BASE")
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate 检查数值范围。
func (c *Config) Validate() error {
	r := c.Render
	var problems []string
	if r.Width <= 0 || r.Height <= 0 {
		problems = append(problems, fmt.Sprintf("画面尺寸无效 %dx%d", r.Width, r.Height))
	}
	if r.FPS <= 0 {
		problems = append(problems, "fps 必须大于 0")
	}
	if r.Dim < 0 || r.Dim > 1 {
		problems = append(problems, fmt.Sprintf("dim 必须位于 [0,1]，当前 %g", r.Dim))
	}
	if r.TrailingPad < 0 {
		problems = append(problems, "trailing_pad 不能为负")
	}
	if r.Workers < 1 {
		problems = append(problems, "workers 至少为 1")
	}
	if r.BoxAlpha < 0 || r.BoxAlpha > 255 {
		problems = append(problems, "box_alpha 必须位于 [0,255]")
	}
	for _, blk := range []struct {
		name string
		b    BlockConfig
	}{{"arabic", r.Arabic}, {"latin", r.Latin}} {
		name, b := blk.name, blk.b
		if b.MinSize <= 0 || b.Size < b.MinSize {
			problems = append(problems, fmt.Sprintf("%s: 字号范围无效 size=%g min=%g", name, b.Size, b.MinSize))
		}
		if b.MaxWidth <= 0 || b.MaxWidth > float64(r.Width) {
			problems = append(problems, fmt.Sprintf("%s: max_width 必须位于 (0,%d]", name, r.Width))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("配置无效: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TrailingPadDuration returns the trailing pad as a time.Duration.
func (r RenderConfig) TrailingPadDuration() time.Duration {
	return time.Duration(r.TrailingPad * float64(time.Second))
}
