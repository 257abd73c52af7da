package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ByLCY/versereel/pipeline"
)

var scheduleFlags struct {
	spec    string
	upload  bool
	publish bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Render random verses on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		publish := scheduleFlags.publish || a.cfg.Schedule.Publish
		svc, cleanup, err := a.service(ctx, needs{upload: scheduleFlags.upload, publish: publish})
		defer cleanup()
		if err != nil {
			return err
		}

		spec := scheduleFlags.spec
		if spec == "" {
			spec = a.cfg.Schedule.Cron
		}
		log := a.log.Named("schedule")
		c := cron.New()
		// 同一时刻只运行一个任务，上一次未结束时跳过
		_, err = c.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
			log.Info("cron triggered")
			res, err := svc.Run(ctx, pipeline.Request{
				Reciter:  a.cfg.Schedule.Reciter,
				Upload:   scheduleFlags.upload,
				Metadata: true,
				Publish:  publish,
			})
			if err != nil {
				log.Error("scheduled render failed", zap.Error(err))
				return
			}
			log.Info("scheduled render done", zap.String("path", res.Video.Path), zap.String("verse", res.Verse.Ref()))
		})))
		if err != nil {
			return fmt.Errorf("failed to add cron job: %w", err)
		}
		c.Start()
		log.Info("cron job started", zap.String("schedule", spec))

		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleFlags.spec, "cron", "", "cron 表达式（默认使用配置）")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.upload, "upload", false, "上传到 S3")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.publish, "publish", false, "发布到 YouTube")
	rootCmd.AddCommand(scheduleCmd)
}
