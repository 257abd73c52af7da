package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/kafka"
	"github.com/ByLCY/versereel/pipeline"
	"github.com/ByLCY/versereel/scene"
)

var consumeFlags struct {
	upload  bool
	publish bool
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume render requests from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, cleanup, err := a.service(ctx, needs{upload: consumeFlags.upload, publish: consumeFlags.publish})
		defer cleanup()
		if err != nil {
			return err
		}
		pool := scene.NewPool(a.cfg.Render.Workers, a.log.Named("pool"))
		defer pool.Close()

		handle := func(ctx context.Context, req pipeline.Request) error {
			req, err := svc.Confine(req)
			if err != nil {
				return fmt.Errorf("%w: %w", kafka.ErrPermanent, err)
			}
			done, err := pool.Submit(ctx, func(ctx context.Context) error {
				_, err := svc.Run(ctx, req)
				return err
			})
			if err != nil {
				return err
			}
			err = <-done
			// 数据缺失与模板错误重试也无法恢复
			if scene.IsDataUnavailable(err) || errors.Is(err, scene.ErrAssetMissing) {
				return fmt.Errorf("%w: %w", kafka.ErrPermanent, err)
			}
			return err
		}

		consumer, err := kafka.NewConsumer(kafka.Config{
			Brokers: a.cfg.Kafka.Brokers,
			Topic:   a.cfg.Kafka.Topic,
			GroupID: a.cfg.Kafka.Group,
		}, handle, a.log.Named("kafka"))
		if err != nil {
			return err
		}
		defer consumer.Close()
		return consumer.Run(ctx)
	},
}

func init() {
	consumeCmd.Flags().BoolVar(&consumeFlags.upload, "upload", false, "允许消息请求上传到 S3")
	consumeCmd.Flags().BoolVar(&consumeFlags.publish, "publish", false, "允许消息请求发布到 YouTube")
	rootCmd.AddCommand(consumeCmd)
}
