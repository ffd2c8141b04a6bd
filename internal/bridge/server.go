package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodyBytes bounds one request envelope.
const maxBodyBytes = 64 << 20

// RequestIDHeader carries the id assigned to each request.
const RequestIDHeader = "X-Request-Id"

type handleFunc func(ctx context.Context, req Request) (any, error)

// Server exposes a Dispatcher over HTTP.
type Server struct {
	dispatcher *Dispatcher
	logger     *zap.SugaredLogger
	timeout    time.Duration
	mux        *http.ServeMux
}

// NewServer registers the bridge routes. A zero timeout leaves requests
// bounded only by the client.
func NewServer(d *Dispatcher, timeout time.Duration, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{dispatcher: d, logger: logger, timeout: timeout, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /bridges/db/mongo", s.route(EngineMongo, d.Mongo))
	s.mux.HandleFunc("POST /bridges/db/sqlite", s.route(EngineSQLite, d.SQLite))
	s.mux.HandleFunc("POST /bridges/db", s.route("admin", d.Admin))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Infow("serving", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) route(engine string, handle handleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		log := s.logger.With("request_id", id, "engine", engine)

		var req Request
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		r.Body.Close()
		if err == nil {
			err = json.Unmarshal(body, &req)
		}
		if err != nil {
			log.Debugw("bad request", "error", err)
			writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid request body: " + err.Error()})
			return
		}

		ctx := r.Context()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		res, err := handle(ctx, req)
		log = log.With("action", req.Action, "took", time.Since(start))
		if err != nil {
			log.Infow("request failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Message: err.Error()})
			return
		}
		log.Debugw("request done")
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorBody{Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
