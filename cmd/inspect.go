package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/notargets/tetraview/scene"
	"github.com/notargets/tetraview/wire"
)

// payloadReport describes a stored payload without installing it.
type payloadReport struct {
	File      string     `json:"file"`
	Bytes     int        `json:"bytes"`
	Vertices  int        `json:"vertices"`
	Indexed   bool       `json:"indexed"`
	Triangles int        `json:"triangles"`
	Min       [3]float32 `json:"min"`
	Max       [3]float32 `json:"max"`
	Edges     int        `json:"edges,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE.bin",
	Short: "Decode a stored wire payload and report what it holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		install, _ := cmd.Flags().GetBool("install")
		show, _ := cmd.Flags().GetBool("preview")
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if install || show {
			a, err := newApp(cmd, false)
			if err != nil {
				return err
			}
			ctx, stop := interruptible()
			defer stop()
			res, err := a.pipe.RunPayload(ctx, args[0], buf)
			if err != nil {
				return err
			}
			return a.report(ctx, cmd.OutOrStdout(), res, show)
		}

		m, err := wire.Decode(buf)
		if err != nil {
			return err
		}
		if err = m.Validate(); err != nil {
			return err
		}
		box := m.Bounds()
		rep := payloadReport{
			File:      args[0],
			Bytes:     len(buf),
			Vertices:  m.NumVertices(),
			Indexed:   m.Indexed(),
			Triangles: m.NumTriangles(),
			Min:       box.Min,
			Max:       box.Max,
		}
		if cfg.Scene.Edges {
			rep.Edges = len(scene.EdgeSegments(scene.BuildGeometry(m))) / 6
		}
		return printYAML(cmd.OutOrStdout(), rep)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolP("install", "i", false, "install the payload into a scene and report the generation")
	inspectCmd.Flags().BoolP("preview", "p", false, "install and show the payload in a window")
}
