// Package server is the HTTP side of the round trip: it accepts encoded
// surfaces, hands them to a Tetrahedralizer and returns the encoded result.
// It also serves the demo payload, a health check, an optional static
// front end and a websocket feed of generation notices.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/transport"
	"github.com/notargets/tetraview/wire"
)

const (
	DefaultMaxBody = 256 << 20
	WebsocketPath  = "/ws"
)

type Options struct {
	StaticDir    string // served at / when set
	MaxBodyBytes int64
	Logger       *log.Logger
}

type Server struct {
	tetra   Tetrahedralizer
	demo    DemoSource
	hub     *Hub
	maxBody int64
	log     *log.Logger
	mux     *http.ServeMux
}

func New(tetra Tetrahedralizer, demo DemoSource, opts Options) *Server {
	s := &Server{
		tetra:   tetra,
		demo:    demo,
		maxBody: opts.MaxBodyBytes,
		log:     logging.Or(opts.Logger),
		mux:     http.NewServeMux(),
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBody
	}
	s.hub = NewHub(s.log)

	s.mux.HandleFunc("POST "+transport.GenTetraPath, s.handleGenTetra)
	s.mux.HandleFunc("GET "+transport.DemoPath, s.handleDemo)
	s.mux.HandleFunc("GET "+transport.HealthPath, s.handleHealth)
	s.mux.Handle("GET "+WebsocketPath, s.hub)
	if opts.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	} else {
		s.mux.HandleFunc("GET /{$}", s.handleHealth)
	}
	return s
}

// Hub returns the websocket hub fed by the generation endpoint.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "*")
	h.Set("Access-Control-Allow-Headers", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
}

func (s *Server) handleGenTetra(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	surface, err := wire.Decode(body)
	if err == nil {
		err = surface.Validate()
	}
	if err != nil {
		s.log.Warn("rejected mesh", "remote", r.RemoteAddr, "bytes", len(body), "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.tetra.Tetrahedralize(r.Context(), surface)
	if err != nil {
		s.log.Error("tetrahedralize", "vertices", surface.NumVertices(), "triangles", surface.NumTriangles(), "err", err)
		http.Error(w, "Failed to tetrahedralize", http.StatusInternalServerError)
		return
	}
	reply, err := wire.Encode(out)
	if err != nil {
		s.log.Error("encoding reply", "err", err)
		http.Error(w, "Failed to tetrahedralize", http.StatusInternalServerError)
		return
	}
	s.writePayload(w, reply)

	notice := Notice{
		Event:     "gen-tetra",
		Vertices:  out.NumVertices(),
		Triangles: out.NumTriangles(),
		Bytes:     len(reply),
		Elapsed:   time.Since(start),
	}
	s.log.Info("generated mesh", "in_triangles", surface.NumTriangles(),
		"out_triangles", notice.Triangles, "elapsed", notice.Elapsed)
	s.hub.Broadcast(notice)
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	payload, err := s.demo.DemoPayload(r.Context())
	if err != nil {
		s.log.Error("demo payload", "err", err)
		http.Error(w, "demo unavailable", http.StatusInternalServerError)
		return
	}
	s.writePayload(w, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) writePayload(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", transport.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	if _, err := w.Write(payload); err != nil {
		s.log.Debug("writing payload", "err", err)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down and
// closes the websocket listeners.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
