package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ByLCY/versereel/api"
	"github.com/ByLCY/versereel/scene"
)

var serveFlags struct {
	addr    string
	upload  bool
	publish bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the render job HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, cleanup, err := a.service(ctx, needs{upload: serveFlags.upload, publish: serveFlags.publish})
		defer cleanup()
		if err != nil {
			return err
		}
		pool := scene.NewPool(a.cfg.Render.Workers, a.log.Named("pool"))
		defer pool.Close()

		addr := serveFlags.addr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		return api.NewServer(ctx, svc, pool, a.log.Named("api")).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "监听地址（默认使用配置）")
	serveCmd.Flags().BoolVar(&serveFlags.upload, "upload", false, "允许请求上传到 S3")
	serveCmd.Flags().BoolVar(&serveFlags.publish, "publish", false, "允许请求发布到 YouTube")
	rootCmd.AddCommand(serveCmd)
}
