// Package pipeline drives one upload from a local surface file to an
// installed scene: read, encode, send, decode and install, with a single
// monotonic progress value across the serial phases.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/mesh"
	"github.com/notargets/tetraview/progress"
	"github.com/notargets/tetraview/readers"
	"github.com/notargets/tetraview/wire"
)

// Remote is the tetrahedralization service. *transport.Client implements
// it.
type Remote interface {
	Send(ctx context.Context, payload []byte, onProgress func(float64)) ([]byte, error)
	Demo(ctx context.Context, onProgress func(float64)) ([]byte, error)
}

// Installer takes ownership of a decoded mesh. *scene.Manager implements
// it.
type Installer interface {
	InstallMesh(m *mesh.Mesh) (uuid.UUID, error)
}

type Options struct {
	// LocalWeight is the share of the progress range given to reading the
	// local file; the remote round trip gets the rest.
	LocalWeight float64
	Weld        bool
	OnEvent     func(Event)
	Logger      *log.Logger
}

func DefaultOptions() Options {
	return Options{LocalWeight: 50, Weld: true}
}

// Result summarizes a successful run. The Local counts describe the file
// that was read and stay zero for demo and payload runs.
type Result struct {
	RunID          uuid.UUID     `json:"run_id"`
	Generation     uuid.UUID     `json:"generation"`
	Source         string        `json:"source"`
	LocalVertices  int           `json:"local_vertices,omitempty"`
	LocalTriangles int           `json:"local_triangles,omitempty"`
	Vertices       int           `json:"vertices"`
	Triangles      int           `json:"triangles"`
	BytesSent      int           `json:"bytes_sent,omitempty"`
	BytesRecv      int           `json:"bytes_received"`
	Elapsed        time.Duration `json:"elapsed"`
}

type Pipeline struct {
	remote Remote
	scene  Installer
	opts   Options
	log    *log.Logger
	sem    *semaphore.Weighted

	mu       sync.Mutex
	state    State
	progress int
	runID    uuid.UUID
}

func New(remote Remote, scene Installer, opts Options) *Pipeline {
	if opts.LocalWeight <= 0 || opts.LocalWeight >= 100 {
		opts.LocalWeight = DefaultOptions().LocalWeight
	}
	return &Pipeline{
		remote: remote,
		scene:  scene,
		opts:   opts,
		log:    logging.Or(opts.Logger),
		sem:    semaphore.NewWeighted(1),
	}
}

// State returns the current state and overall progress.
func (p *Pipeline) State() (State, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.progress
}

// Run uploads the surface file at path and installs the returned mesh.
func (p *Pipeline) Run(ctx context.Context, path string) (Result, error) {
	if !p.sem.TryAcquire(1) {
		return Result{}, ErrBusy
	}
	defer p.sem.Release(1)

	r, err := p.begin(progress.Split(p.opts.LocalWeight), path)
	if err != nil {
		return Result{}, err
	}
	if err = r.enter(ctx, ReadingLocal); err != nil {
		return Result{}, err
	}
	local, err := r.readLocal(ctx, path)
	if err != nil {
		return Result{}, r.fail(err)
	}
	r.res.LocalVertices, r.res.LocalTriangles = local.NumVertices(), local.NumTriangles()

	if err = r.enter(ctx, EncodingLocal); err != nil {
		return Result{}, err
	}
	payload, err := wire.Encode(local)
	if err != nil {
		return Result{}, r.fail(err)
	}
	r.res.BytesSent = len(payload)

	if err = r.enter(ctx, Uploading); err != nil {
		return Result{}, err
	}
	// the request body fills the first half of the remote band, the
	// response the rest
	reply, err := p.remote.Send(ctx, payload, func(pct float64) {
		r.agg.Report(progress.Remote, pct/2)
	})
	if err != nil {
		return Result{}, r.fail(err)
	}
	return r.finish(ctx, reply)
}

// RunDemo fetches the demo payload and installs it.
func (p *Pipeline) RunDemo(ctx context.Context) (Result, error) {
	if !p.sem.TryAcquire(1) {
		return Result{}, ErrBusy
	}
	defer p.sem.Release(1)

	r, err := p.begin(progress.DemoPhases, "demo")
	if err != nil {
		return Result{}, err
	}
	if err = r.enter(ctx, Uploading); err != nil {
		return Result{}, err
	}
	reply, err := p.remote.Demo(ctx, r.agg.Reporter(progress.Remote))
	if err != nil {
		return Result{}, r.fail(err)
	}
	return r.finish(ctx, reply)
}

// RunPayload installs an already encoded payload, such as a stored server
// response.
func (p *Pipeline) RunPayload(ctx context.Context, source string, buf []byte) (Result, error) {
	if !p.sem.TryAcquire(1) {
		return Result{}, ErrBusy
	}
	defer p.sem.Release(1)

	r, err := p.begin(progress.DemoPhases, source)
	if err != nil {
		return Result{}, err
	}
	return r.finish(ctx, buf)
}

type run struct {
	p     *Pipeline
	id    uuid.UUID
	agg   *progress.Aggregator
	start time.Time
	res   Result
}

func (p *Pipeline) begin(phases []progress.Phase, source string) (*run, error) {
	r := &run{p: p, id: uuid.New(), start: time.Now()}
	r.res = Result{RunID: r.id, Source: source}
	agg, err := progress.NewAggregator(phases, func(v int) {
		p.mu.Lock()
		p.progress = v
		state := p.state
		p.mu.Unlock()
		p.emit(Event{RunID: r.id, State: state, Progress: v})
	})
	if err != nil {
		return nil, err
	}
	r.agg = agg
	p.mu.Lock()
	p.runID = r.id
	p.state = Idle
	p.mu.Unlock()
	agg.Reset()
	p.log.Debug("run started", "run", r.id, "source", source)
	return r, nil
}

// enter moves to the next phase unless the run was cancelled.
func (r *run) enter(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	r.p.mu.Lock()
	r.p.state = s
	pct := r.p.progress
	r.p.mu.Unlock()
	r.p.log.Debug("phase", "run", r.id, "phase", s, "progress", pct)
	r.p.emit(Event{RunID: r.id, State: s, Progress: pct})
	return nil
}

func (r *run) fail(cause error) error {
	r.p.mu.Lock()
	phase := r.p.state
	r.p.state = Failed
	pct := r.p.progress
	r.p.mu.Unlock()
	err := &Error{Phase: phase, RunID: r.id, Err: cause}
	r.p.log.Error("run failed", "run", r.id, "phase", phase, "err", cause)
	r.p.emit(Event{RunID: r.id, State: Failed, Progress: pct, Err: err})
	return err
}

func (r *run) readLocal(ctx context.Context, path string) (*mesh.Mesh, error) {
	var (
		ch     = make(chan float64)
		done   = make(chan struct{})
		report = r.agg.Reporter(progress.LocalDecode)
	)
	go func() {
		defer close(done)
		for pct := range ch {
			report(pct)
		}
	}()
	m, err := readers.ReadSurfaceFile(ctx, path, readers.Options{Progress: ch, Weld: r.p.opts.Weld})
	close(ch)
	<-done
	return m, err
}

// finish decodes a reply, installs it and completes the run.
func (r *run) finish(ctx context.Context, reply []byte) (Result, error) {
	if err := r.enter(ctx, DecodingRemote); err != nil {
		return Result{}, err
	}
	r.res.BytesRecv = len(reply)
	remote, err := wire.Decode(reply)
	if err != nil {
		return Result{}, r.fail(err)
	}
	if err = remote.Validate(); err != nil {
		return Result{}, r.fail(err)
	}
	r.agg.Report(progress.Remote, 100)

	if err = r.enter(ctx, InstallingScene); err != nil {
		return Result{}, err
	}
	gen, err := r.p.scene.InstallMesh(remote)
	if err != nil {
		return Result{}, r.fail(err)
	}
	r.res.Generation = gen
	r.res.Vertices, r.res.Triangles = remote.NumVertices(), remote.NumTriangles()
	r.res.Elapsed = time.Since(r.start)

	r.p.mu.Lock()
	r.p.state = Idle
	r.p.mu.Unlock()
	r.agg.Complete()
	r.p.log.Info("mesh installed", "run", r.id, "generation", gen,
		"vertices", r.res.Vertices, "triangles", r.res.Triangles, "elapsed", r.res.Elapsed)
	return r.res, nil
}

func (p *Pipeline) emit(e Event) {
	if p.opts.OnEvent != nil {
		p.opts.OnEvent(e)
	}
}
