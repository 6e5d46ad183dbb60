package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ghodss/yaml"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/pipeline"
	"github.com/notargets/tetraview/preview"
	"github.com/notargets/tetraview/scene"
	"github.com/notargets/tetraview/transport"
)

// app is the client side wiring shared by the commands: one scene, one
// pipeline and the progress display.
type app struct {
	scene *scene.Manager
	pipe  *pipeline.Pipeline
	bar   *progressBar
}

func newApp(cmd *cobra.Command, withRemote bool) (*app, error) {
	a := &app{bar: newProgressBar(cmd.ErrOrStderr())}
	a.scene = scene.NewManager(scene.NewMemoryDevice(), scene.Options{
		Edges:  cfg.Scene.Edges,
		Margin: cfg.Scene.Margin,
		FovY:   cfg.Scene.FOV,
		Aspect: 1,
	})
	var remote pipeline.Remote
	if withRemote {
		base, err := cfg.ServiceURL()
		if err != nil {
			return nil, err
		}
		client, err := transport.NewClient(base, transport.WithTimeout(cfg.Server.Timeout.Duration))
		if err != nil {
			return nil, err
		}
		remote = client
	}
	a.pipe = pipeline.New(remote, a.scene, pipeline.Options{
		LocalWeight: cfg.Progress.LocalWeight,
		Weld:        cfg.Readers.Weld,
		OnEvent:     a.bar.update,
	})
	return a, nil
}

// report prints the run summary as YAML and optionally opens the preview
// window until interrupted.
func (a *app) report(ctx context.Context, w io.Writer, res pipeline.Result, show bool) error {
	if err := printYAML(w, res); err != nil {
		return err
	}
	if !show {
		return nil
	}
	logging.Default().Info("preview open, interrupt to exit")
	return preview.Show(ctx, a.scene.Current(), 1024, 1024)
}

func printYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// interruptible returns a context cancelled by SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// progressBar draws pipeline events on a terminal. Without a color capable
// terminal it prints one line per state change instead of redrawing.
type progressBar struct {
	out   *termenv.Output
	fancy bool
	last  pipeline.State
	width int
}

func newProgressBar(w io.Writer) *progressBar {
	out := termenv.NewOutput(w)
	return &progressBar{out: out, fancy: out.Profile != termenv.Ascii, last: pipeline.Idle, width: 30}
}

func (b *progressBar) update(e pipeline.Event) {
	if !b.fancy {
		if e.State != b.last || e.Err != nil {
			fmt.Fprintf(b.out, "%3d%% %s\n", e.Progress, e.State)
		}
		b.last = e.State
		return
	}
	filled := b.width * e.Progress / 100
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.width-filled)
	color := "4"
	switch {
	case e.State == pipeline.Failed:
		color = "1"
	case e.Progress == 100:
		color = "2"
	}
	b.out.ClearLine()
	fmt.Fprintf(b.out, "\r[%s] %3d%% %s",
		b.out.String(bar).Foreground(b.out.Color(color)), e.Progress, e.State)
	if e.State == pipeline.Failed || (e.State == pipeline.Idle && e.Progress == 100) {
		fmt.Fprintln(b.out)
	}
	b.last = e.State
}
