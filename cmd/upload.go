package cmd

import (
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Send a surface file for tetrahedralization and install the result",
	Long: `
Reads the surface, encodes it, posts it to the service and installs the
returned volume mesh. Progress goes to stderr, a YAML summary to stdout.

tetraview upload bracket.stl --preview`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		show, _ := cmd.Flags().GetBool("preview")
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx, stop := interruptible()
		defer stop()
		res, err := a.pipe.Run(ctx, args[0])
		if err != nil {
			return err
		}
		return a.report(ctx, cmd.OutOrStdout(), res, show)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Fetch and install the service's demo mesh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		show, _ := cmd.Flags().GetBool("preview")
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx, stop := interruptible()
		defer stop()
		res, err := a.pipe.RunDemo(ctx)
		if err != nil {
			return err
		}
		return a.report(ctx, cmd.OutOrStdout(), res, show)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(demoCmd)
	uploadCmd.Flags().BoolP("preview", "p", false, "show the installed mesh in a window")
	demoCmd.Flags().BoolP("preview", "p", false, "show the installed mesh in a window")
}
