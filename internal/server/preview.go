// Package server exposes live re-rendering of one image over HTTP, for editors that
// re-issue a render on every slider move.
package server

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/mask"
	"github.com/MeKo-Tech/darkroom/internal/pipeline"
)

const maxDocumentBytes = 1 << 20

// Config configures a Preview server.
type Config struct {
	MaxConcurrent int
	CacheControl  string
	// Layers are applied to every render. Their masks must match the base image.
	Layers []mask.Layer
}

// Preview renders one base image with per-request adjustments.
type Preview struct {
	base   *image.NRGBA
	engine *pipeline.Engine
	cfg    Config
	logger *slog.Logger
	sem    chan struct{}

	activeRenders atomic.Int32
	totalRendered atomic.Int64
	totalFailed   atomic.Int64
	lastElapsed   atomic.Int64
}

// Status is the JSON body of /status.
type Status struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	ActiveRenders int     `json:"active_renders"`
	TotalRendered int64   `json:"total_rendered"`
	TotalFailed   int64   `json:"total_failed"`
	MaxConcurrent int     `json:"max_concurrent"`
	LastRenderMS  float64 `json:"last_render_ms"`
}

// New creates a preview server for base.
func New(base *image.NRGBA, engine *pipeline.Engine, cfg Config, logger *slog.Logger) *Preview {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	return &Preview{
		base:   base,
		engine: engine,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Handler routes /render, /histogram and /status.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/render", p.serveRender)
	mux.HandleFunc("/histogram", p.serveHistogram)
	mux.HandleFunc("/status", p.serveStatus)
	return mux
}

// Status reports counters for the running server.
func (p *Preview) Status() Status {
	b := p.base.Bounds()
	return Status{
		Width:         b.Dx(),
		Height:        b.Dy(),
		ActiveRenders: int(p.activeRenders.Load()),
		TotalRendered: p.totalRendered.Load(),
		TotalFailed:   p.totalFailed.Load(),
		MaxConcurrent: p.cfg.MaxConcurrent,
		LastRenderMS:  float64(p.lastElapsed.Load()) / float64(time.Millisecond),
	}
}

func cors(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

func (p *Preview) serveRender(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	out, ok := p.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", p.cfg.CacheControl)
	if err := imaging.Encode(w, out, imaging.PNG); err != nil {
		p.log().Error("Failed to write render", "error", err)
	}
}

func (p *Preview) serveHistogram(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	out, ok := p.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", p.cfg.CacheControl)
	if err := json.NewEncoder(w).Encode(p.engine.Histogram(out)); err != nil {
		p.log().Error("Failed to encode histogram", "error", err)
	}
}

func (p *Preview) serveStatus(w http.ResponseWriter, r *http.Request) {
	if cors(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(p.Status()); err != nil {
		p.log().Error("Failed to encode status", "error", err)
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}

// render parses the request, waits for a render slot and runs the pipeline.
// It writes the error response itself and reports false on failure.
func (p *Preview) render(w http.ResponseWriter, r *http.Request) (*image.NRGBA, bool) {
	adj, err := requestAdjustments(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-r.Context().Done():
		// Superseded by a newer request; nothing to answer.
		return nil, false
	}

	p.activeRenders.Add(1)
	defer p.activeRenders.Add(-1)

	start := time.Now()
	out, err := p.engine.Render(p.base, adj, p.cfg.Layers)
	elapsed := time.Since(start)
	p.lastElapsed.Store(int64(elapsed))
	if err != nil {
		p.totalFailed.Add(1)
		p.log().Error("Render failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	p.totalRendered.Add(1)
	p.log().Debug("Rendered preview", "elapsed", elapsed, "identity", adj.IsIdentity())
	return out, true
}

// requestAdjustments reads a JSON/YAML preset document from a POST body, then applies
// slider values given as query parameters (?exposure=20&temperature=-10).
func requestAdjustments(r *http.Request) (adjust.Adjustments, error) {
	adj := adjust.Default()
	if r.Method == http.MethodPost {
		format := "json"
		if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
			format = "yaml"
		}
		a, err := adjust.Decode(io.LimitReader(r.Body, maxDocumentBytes), format)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		adj = a
	} else if r.Method != http.MethodGet {
		return adjust.Adjustments{}, fmt.Errorf("method %s not allowed", r.Method)
	}

	q := r.URL.Query()
	for _, field := range adjust.Fields {
		raw := q.Get(string(field))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return adjust.Adjustments{}, fmt.Errorf("invalid %s: %w", field, err)
		}
		if adj, err = adj.WithFilter(field, v); err != nil {
			return adjust.Adjustments{}, err
		}
	}
	if err := adj.Validate(); err != nil {
		return adjust.Adjustments{}, err
	}
	return adj, nil
}

func (p *Preview) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
