package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
	"github.com/vadiminshakov/whalewatch/internal/ledger"
	"github.com/vadiminshakov/whalewatch/internal/services/scanner"
)

const (
	heartbeatInterval = 30 * time.Second
	streamBuffer      = 64
)

type scanControl interface {
	Start(ctx context.Context, minValue decimal.Decimal, done func(scanner.Outcome, error)) error
	Stop() error
	TogglePause() (bool, error)
	View() scanner.StateView
	Stats() domain.LedgerStats
}

type positionReader interface {
	Query(f ledger.Filter) []domain.Position
}

type reportHub interface {
	Subscribe(r scanner.Reporter) func()
}

// Server exposes the ledger, scan control and an SSE progress stream.
type Server struct {
	Addr string

	control   scanControl
	positions positionReader
	hub       reportHub
	metrics   http.Handler
	minValue  decimal.Decimal
	logger    *zap.Logger

	// scans started over HTTP outlive the request
	scanCtx context.Context
}

// NewServer creates a new web server instance. metrics may be nil.
func NewServer(addr string, control scanControl, positions positionReader, hub reportHub, metrics http.Handler, minValue decimal.Decimal, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:      addr,
		control:   control,
		positions: positions,
		hub:       hub,
		metrics:   metrics,
		minValue:  minValue,
		logger:    logger,
		scanCtx:   context.Background(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /scan/state", s.handleState)
	mux.HandleFunc("POST /scan/start", s.handleStart)
	mux.HandleFunc("POST /scan/stop", s.handleStop)
	mux.HandleFunc("POST /scan/pause", s.handlePause)
	mux.HandleFunc("GET /scan/stream", s.handleStream)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.scanCtx = ctx

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web feed listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f ledger.Filter
	for _, raw := range q["coin"] {
		for _, coin := range strings.Split(raw, ",") {
			if coin = strings.TrimSpace(coin); coin != "" {
				f.Coins = append(f.Coins, coin)
			}
		}
	}
	switch side := domain.PositionSide(strings.ToLower(q.Get("side"))); side {
	case "", domain.PositionSideLong, domain.PositionSideShort:
		f.Side = side
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown side %q", side))
		return
	}
	f.Address = q.Get("address")

	rows := s.positions.Query(f)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Notional().GreaterThan(rows[j].Notional())
	})
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.control.Stats())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.control.View())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	minValue := s.minValue
	if raw := r.URL.Query().Get("min"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid min %q", raw))
			return
		}
		minValue = v
	}

	err := s.control.Start(s.scanCtx, minValue, func(out scanner.Outcome, err error) {
		if err != nil {
			s.logger.Warn("scan started over http failed", zap.String("scan_id", out.ScanID), zap.Error(err))
		}
	})
	if errors.Is(err, scanner.ErrScanInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "started",
		"minValue": minValue.String(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.control.Stop(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	paused, err := s.control.TogglePause()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

type streamEvent struct {
	name    string
	payload any
}

// streamReporter turns reports into SSE events; a slow client loses events
// rather than stalling the scan.
type streamReporter struct {
	events chan streamEvent
}

func (r *streamReporter) push(ev streamEvent) {
	select {
	case r.events <- ev:
	default:
	}
}

func (r *streamReporter) OnProgress(percent float64) {
	r.push(streamEvent{"progress", map[string]float64{"percent": percent}})
}

func (r *streamReporter) OnStatus(message string, kind domain.StatusKind) {
	r.push(streamEvent{"status", map[string]string{"message": message, "kind": string(kind)}})
}

func (r *streamReporter) OnLedger(stats domain.LedgerStats) {
	r.push(streamEvent{"ledger", stats})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "report stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rep := &streamReporter{events: make(chan streamEvent, streamBuffer)}
	unsubscribe := s.hub.Subscribe(rep)
	defer unsubscribe()

	send := func(ev streamEvent) error {
		payload, err := json.Marshal(ev.payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: %s\n", ev.name)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return nil
	}

	// current picture first, then live updates
	if err := send(streamEvent{"state", s.control.View()}); err != nil {
		s.logger.Warn("scan stream initial state", zap.Error(err))
		return
	}
	_ = send(streamEvent{"ledger", s.control.Stats()})

	// send a comment heartbeat so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-rep.events:
			if err := send(ev); err != nil {
				s.logger.Warn("scan stream send", zap.String("event", ev.name), zap.Error(err))
			}
		}
	}
}
