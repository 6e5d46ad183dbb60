package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/server"
	"github.com/notargets/tetraview/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP endpoint the viewer talks to",
	Long: `
Serves /gen-tetra, /get-demo, /health and the /ws notice feed. With an
upstream the meshes are relayed to that tetrahedralization service; without
one the surface is returned exploded, which is enough to exercise a viewer.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Default()

		var tetra server.Tetrahedralizer = server.Exploded{}
		if cfg.Server.Upstream != "" {
			client, err := transport.NewClient(cfg.Server.Upstream, transport.WithTimeout(cfg.Server.Timeout.Duration))
			if err != nil {
				return err
			}
			tetra = server.Relay{Client: client}
			log.Info("relaying to upstream", "url", cfg.Server.Upstream)
		}

		var demo server.DemoSource = &server.GeneratedDemo{}
		if cfg.Server.DemoPayload != "" {
			stored, err := server.LoadDemo(cfg.Server.DemoPayload)
			if err != nil {
				return err
			}
			demo = stored
		}

		srv := server.New(tetra, demo, server.Options{StaticDir: cfg.Server.StaticDir})
		ctx, stop := interruptible()
		defer stop()
		return srv.ListenAndServe(ctx, cfg.Server.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default from server.listen)")
	serveCmd.Flags().StringP("upstream", "u", "", "tetrahedralization service to relay to")
	serveCmd.Flags().String("demo-payload", "", "stored payload served by /get-demo")
	serveCmd.Flags().String("static-dir", "", "directory served at /")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("server.upstream", serveCmd.Flags().Lookup("upstream"))
	_ = viper.BindPFlag("server.demo_payload", serveCmd.Flags().Lookup("demo-payload"))
	_ = viper.BindPFlag("server.static_dir", serveCmd.Flags().Lookup("static-dir"))
}
