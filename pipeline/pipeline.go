// Package pipeline runs one render request end to end: verse lookup, template
// compilation, composition and the optional upload, metadata and publish steps.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ByLCY/versereel/config"
	"github.com/ByLCY/versereel/jobs"
	"github.com/ByLCY/versereel/metadata"
	"github.com/ByLCY/versereel/publish"
	"github.com/ByLCY/versereel/quran"
	"github.com/ByLCY/versereel/scene"
	"github.com/ByLCY/versereel/storage"
	"github.com/ByLCY/versereel/template"
)

// 编排阶段，合成内部的阶段见 scene.Stage。
const (
	StageVerse    = "verse"
	StageTemplate = "template"
	StageUpload   = "upload"
	StageMetadata = "metadata"
	StagePublish  = "publish"
)

// VerseSource 提供经文数据，quran.Client 是默认实现。
type VerseSource interface {
	Ayah(ctx context.Context, surah, ayah int, reciter string) (quran.Verse, error)
	Random(ctx context.Context, reciter string) (quran.Verse, error)
}

// Composer 渲染并编码视频，scene.Composer 是默认实现。
type Composer interface {
	Compose(ctx context.Context, req scene.Request) (scene.Output, error)
}

var (
	_ VerseSource = (*quran.Client)(nil)
	_ Composer    = (*scene.Composer)(nil)
)

// Request 是一次渲染请求，也是 HTTP 与 Kafka 的消息体。
// 经文来源按优先级：Verse > Surah/Ayah > 随机。
type Request struct {
	ID         string       `json:"id,omitempty"`
	Verse      *quran.Verse `json:"verse,omitempty"`
	Surah      int          `json:"surah,omitempty"`
	Ayah       int          `json:"ayah,omitempty"`
	Reciter    string       `json:"reciter,omitempty"`
	Background string       `json:"background,omitempty"`
	Template   string       `json:"template,omitempty"`
	Output     string       `json:"output,omitempty"`
	Upload     bool         `json:"upload,omitempty"`
	Metadata   bool         `json:"metadata,omitempty"`
	Publish    bool         `json:"publish,omitempty"`
}

// Validate checks the parts of a request that can be checked without I/O.
func (r Request) Validate() error {
	if r.Verse != nil {
		if r.Verse.TextRTL == "" || r.Verse.AudioURL == "" {
			return fmt.Errorf("显式经文缺少文本或音频: %w", scene.ErrDataUnavailable)
		}
		return nil
	}
	if (r.Surah == 0) != (r.Ayah == 0) {
		return fmt.Errorf("surah 与 ayah 必须同时指定")
	}
	if r.Surah < 0 || r.Surah > 114 || r.Ayah < 0 {
		return fmt.Errorf("经文引用无效: %d:%d", r.Surah, r.Ayah)
	}
	if r.Reciter != "" {
		if _, err := quran.ReciterByKey(r.Reciter); err != nil {
			return err
		}
	}
	return nil
}

// Result 汇总一次请求的产出。
type Result struct {
	ID        string             `json:"id"`
	Verse     quran.Verse        `json:"verse"`
	Video     scene.Output       `json:"video"`
	Object    *storage.Object    `json:"object,omitempty"`
	Metadata  *metadata.Metadata `json:"metadata,omitempty"`
	Published *publish.Result    `json:"published,omitempty"`
}

// Options wires the collaborators of a Service; nil optional steps are skipped or rejected.
type Options struct {
	Config    *config.Config
	Verses    VerseSource
	Composer  Composer
	Jobs      jobs.Store
	Uploader  storage.Uploader
	Generator metadata.Generator
	Publisher publish.Publisher
	Log       *zap.Logger
}

type Service struct {
	cfg       *config.Config
	verses    VerseSource
	composer  Composer
	jobs      jobs.Store
	uploader  storage.Uploader
	generator metadata.Generator
	publisher publish.Publisher
	log       *zap.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Verses == nil || opts.Composer == nil {
		return nil, errors.New("pipeline 需要经文来源与合成器")
	}
	s := &Service{
		cfg:       opts.Config,
		verses:    opts.Verses,
		composer:  opts.Composer,
		jobs:      opts.Jobs,
		uploader:  opts.Uploader,
		generator: opts.Generator,
		publisher: opts.Publisher,
		log:       opts.Log,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.jobs == nil {
		s.jobs = jobs.NewMemoryStore()
	}
	if s.generator == nil {
		s.generator = metadata.Static{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

// Jobs exposes the job store used by the service.
func (s *Service) Jobs() jobs.Store { return s.jobs }

// Enqueue registers a queued job for req and returns the request with its id set.
func (s *Service) Enqueue(ctx context.Context, req Request) (Request, jobs.Job, error) {
	if err := req.Validate(); err != nil {
		return req, jobs.Job{}, err
	}
	job, err := s.jobs.Create(ctx, jobs.New(req.ID, toMap(req)))
	if err != nil {
		return req, jobs.Job{}, err
	}
	req.ID = job.ID
	return req, job, nil
}

// Run executes req synchronously and records every state transition in the job store.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		var err error
		if req, _, err = s.Enqueue(ctx, req); err != nil {
			return Result{}, err
		}
	} else if _, err := s.jobs.Get(ctx, req.ID); errors.Is(err, jobs.ErrNotFound) {
		if req, _, err = s.Enqueue(ctx, req); err != nil {
			return Result{}, err
		}
	}
	log := s.log.With(zap.String("job", req.ID))
	s.update(ctx, req.ID, jobs.Start, log)

	res, stage, err := s.run(ctx, req, log)
	if err != nil {
		log.Error("render failed", zap.String("stage", stage), zap.Error(err))
		s.update(context.WithoutCancel(ctx), req.ID, jobs.Fail(stage, err), log)
		return res, err
	}
	s.update(ctx, req.ID, jobs.Finish(toMap(res)), log)
	log.Info("render finished", zap.String("path", res.Video.Path))
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, log *zap.Logger) (Result, string, error) {
	res := Result{ID: req.ID}

	verse, err := s.resolveVerse(ctx, req)
	if err != nil {
		return res, StageVerse, err
	}
	res.Verse = verse
	log = log.With(zap.String("verse", verse.Ref()))

	tplPath := req.Template
	if tplPath == "" {
		tplPath = s.cfg.Assets.Template
	}
	doc, err := template.Load(tplPath)
	if err != nil {
		return res, StageTemplate, err
	}
	sc, err := template.Compile(doc, verse.Data(), s.cfg.Render)
	if err != nil {
		return res, StageTemplate, err
	}

	background := req.Background
	if background == "" {
		background = s.cfg.Assets.Backgrounds
	}
	out, err := s.composer.Compose(ctx, scene.Request{
		ID:         req.ID,
		Scene:      sc,
		Audio:      verse.AudioURL,
		Background: background,
		Output:     s.outputPath(req, verse),
	})
	if err != nil {
		return res, string(scene.StageOf(err)), err
	}
	res.Video = out

	if req.Upload {
		if s.uploader == nil {
			return res, StageUpload, errors.New("未配置对象存储")
		}
		obj, err := s.uploader.Upload(ctx, req.ID, out.Path)
		if err != nil {
			return res, StageUpload, err
		}
		res.Object = &obj
	}

	if req.Metadata || req.Publish {
		meta, err := s.generator.Generate(ctx, MetadataInput(verse))
		if err != nil {
			// 模型不可用时退回静态元数据
			log.Warn("metadata generation failed, using static metadata", zap.Error(err))
			if meta, err = (metadata.Static{}).Generate(ctx, MetadataInput(verse)); err != nil {
				return res, StageMetadata, err
			}
		}
		res.Metadata = &meta
	}

	if req.Publish {
		if s.publisher == nil {
			return res, StagePublish, errors.New("未配置发布渠道")
		}
		pub, err := s.publisher.Publish(ctx, out.Path, *res.Metadata)
		if err != nil {
			return res, StagePublish, err
		}
		res.Published = &pub
	}
	return res, "", nil
}

func (s *Service) resolveVerse(ctx context.Context, req Request) (quran.Verse, error) {
	if req.Verse != nil {
		return *req.Verse, nil
	}
	reciter := req.Reciter
	if reciter == "" {
		reciter = s.cfg.Quran.Reciter
	}
	if reciter == "" {
		reciter = quran.DefaultReciter
	}
	var (
		v   quran.Verse
		err error
	)
	if req.Surah > 0 {
		v, err = s.verses.Ayah(ctx, req.Surah, req.Ayah, reciter)
	} else {
		v, err = s.verses.Random(ctx, reciter)
	}
	if err != nil {
		return v, fmt.Errorf("%w: %w", scene.ErrDataUnavailable, err)
	}
	return v, nil
}

func (s *Service) outputPath(req Request, v quran.Verse) string {
	if req.Output != "" {
		return req.Output
	}
	dir := s.cfg.Assets.OutputDir
	if dir == "" {
		dir = "output"
	}
	return filepath.Join(dir, fmt.Sprintf("%03d_%03d_%s.mp4", v.SurahNumber, v.AyahNumber, shortID(req.ID)))
}

func (s *Service) update(ctx context.Context, id string, fn func(*jobs.Job), log *zap.Logger) {
	if _, err := s.jobs.Update(ctx, id, fn); err != nil {
		log.Warn("job update failed", zap.Error(err))
	}
}

// MetadataInput maps a verse to the metadata generator input.
func MetadataInput(v quran.Verse) metadata.Input {
	text := v.TextLatin
	if text == "" {
		text = v.TextEnglish
	}
	return metadata.Input{SurahName: v.SurahName, Ayah: v.Ref(), Text: text, Theme: v.Theme}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
