package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultSettle = 250 * time.Millisecond

// Watch runs the pipeline on path once at start and again whenever the file
// is written or replaced, until ctx is done. Bursts of events closer than
// settle apart trigger a single run. The directory is watched rather than
// the file so that editors which save by rename keep being followed.
// onResult receives the outcome of every run; run errors do not stop the
// watch.
func (p *Pipeline) Watch(ctx context.Context, path string, settle time.Duration, onResult func(Result, error)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err = w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	p.log.Info("watching", "path", abs)

	run := func() {
		res, err := p.Run(ctx, abs)
		if errors.Is(err, ErrBusy) {
			return
		}
		if onResult != nil {
			onResult(res, err)
		}
	}
	run()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			p.log.Debug("file changed", "path", abs, "op", e.Op)
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.Warn("watch error", "path", abs, "err", err)
		case <-timer.C:
			run()
		}
	}
}
