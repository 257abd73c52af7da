package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ByLCY/versereel/config"
	"github.com/ByLCY/versereel/jobs"
	"github.com/ByLCY/versereel/logging"
	"github.com/ByLCY/versereel/metadata"
	"github.com/ByLCY/versereel/pipeline"
	"github.com/ByLCY/versereel/publish"
	"github.com/ByLCY/versereel/quran"
	"github.com/ByLCY/versereel/renderer/raster"
	"github.com/ByLCY/versereel/scene"
	"github.com/ByLCY/versereel/shaping"
	"github.com/ByLCY/versereel/storage"
)

// app 汇总各子命令共享的配置与日志。
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func loadApp() (*app, error) {
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Debug = true
	}
	log, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() { _ = a.log.Sync() }

func (a *app) quran() *quran.Client {
	return quran.NewClient(a.cfg.Quran.BaseURL, a.cfg.Quran.Timeout,
		quran.WithTranslation(a.cfg.Quran.Translation),
		quran.WithLogger(a.log.Named("quran")))
}

func (a *app) raster() *raster.Renderer {
	r := a.cfg.Render
	return raster.NewRendererWithOptions(raster.Options{
		BaseDir:      a.cfg.Assets.BaseDir,
		BoxAlpha:     uint8(r.BoxAlpha),
		BoxPadding:   r.BoxPadding,
		ShadowOffset: r.ShadowOffset,
		Shaper:       shaping.New(shaping.Options{KeepHarakat: r.KeepHarakat}),
		Log:          a.log.Named("raster"),
	})
}

func (a *app) composer() *scene.Composer {
	return scene.NewComposer(scene.Options{
		Render:   a.cfg.Render,
		TempDir:  a.cfg.Assets.TempDir,
		Renderer: a.raster(),
		Log:      a.log.Named("scene"),
	})
}

func (a *app) generator() metadata.Generator {
	if a.cfg.Metadata.APIKey == "" {
		return metadata.Static{}
	}
	g, err := metadata.NewCohereGenerator(a.cfg.Metadata.APIKey, a.cfg.Metadata.Model, a.log.Named("metadata"))
	if err != nil {
		a.log.Warn("cohere unavailable, using static metadata", zap.Error(err))
		return metadata.Static{}
	}
	return g
}

// needs 描述一次运行需要的可选外部服务。
type needs struct {
	upload  bool
	publish bool
}

// service 构造渲染流水线；返回的 cleanup 关闭外部连接。
func (a *app) service(ctx context.Context, n needs) (*pipeline.Service, func(), error) {
	cleanup := func() {}
	opts := pipeline.Options{
		Config:    a.cfg,
		Verses:    a.quran(),
		Composer:  a.composer(),
		Generator: a.generator(),
		Log:       a.log.Named("pipeline"),
	}

	if a.cfg.Redis.Addr != "" {
		store, err := jobs.NewRedisStore(ctx, a.cfg.Redis.Addr, a.cfg.Redis.DB, a.cfg.Redis.JobTTL)
		if err != nil {
			return nil, cleanup, err
		}
		opts.Jobs = store
		cleanup = func() { _ = store.Close() }
	}
	if n.upload {
		up, err := storage.NewS3(ctx, a.cfg.Storage.Bucket, a.cfg.Storage.Prefix, a.cfg.Storage.Region)
		if err != nil {
			return nil, cleanup, err
		}
		opts.Uploader = up
	}
	if n.publish {
		if a.cfg.YouTube.ServiceAccount == "" {
			return nil, cleanup, fmt.Errorf("发布需要配置 YOUTUBE_SERVICE_ACCOUNT")
		}
		yt, err := publish.NewYouTube(ctx, a.cfg.YouTube.ServiceAccount, publish.Options{
			Privacy:    a.cfg.YouTube.Privacy,
			CategoryID: a.cfg.YouTube.CategoryID,
			Log:        a.log.Named("publish"),
		})
		if err != nil {
			return nil, cleanup, err
		}
		opts.Publisher = yt
	}

	svc, err := pipeline.NewService(opts)
	if err != nil {
		return nil, cleanup, err
	}
	return svc, cleanup, nil
}
