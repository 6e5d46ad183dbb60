package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/notargets/tetraview/readers"
	"github.com/notargets/tetraview/wire"
)

var encodeCmd = &cobra.Command{
	Use:   "encode IN.(stl|ply|msh) OUT.bin",
	Short: "Convert a surface file to the binary wire payload",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := readers.ReadSurfaceFile(context.Background(), args[0], readers.Options{Weld: cfg.Readers.Weld})
		if err != nil {
			return err
		}
		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		n, err := wire.WriteTo(out, m)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), map[string]interface{}{
			"file":      args[1],
			"bytes":     n,
			"vertices":  m.NumVertices(),
			"triangles": m.NumTriangles(),
		})
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}
