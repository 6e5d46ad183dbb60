package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Upload a surface again every time it is saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settle, _ := cmd.Flags().GetDuration("settle")
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx, stop := interruptible()
		defer stop()
		out := cmd.OutOrStdout()
		return a.pipe.Watch(ctx, args[0], settle, func(res pipeline.Result, err error) {
			if err != nil {
				// already logged by the pipeline; keep watching
				return
			}
			if err = printYAML(out, res); err != nil {
				logging.Default().Error("writing summary", "err", err)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("settle", pipeline.DefaultSettle, "quiet time after a change before uploading")
}
