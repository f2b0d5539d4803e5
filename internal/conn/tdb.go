package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tobsdb/mousedb/pkg"
)

// Listen serves on port until ctx ends, flushing the database every write interval
// and once more on shutdown.
func (s *Server) Listen(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.HandleConnection)
	return mux
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base, cancel := context.WithCancel(ctx)
	defer cancel()
	s.base = base

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  0,
		WriteTimeout: 0,
	}

	serve_err := make(chan error, 1)
	go func() {
		serve_err <- srv.Serve(ln)
	}()

	go s.writeLoop(base)

	pkg.InfoLog("TobsDB listening on", ln.Addr())
	var err error
	select {
	case <-ctx.Done():
	case err = <-serve_err:
	}

	pkg.DebugLog("Shutting down...")
	cancel()
	shutdown_ctx, shutdown_cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdown_cancel()
	srv.Shutdown(shutdown_ctx)

	if flush_err := s.TDB.Flush(); flush_err != nil {
		pkg.ErrorLog("failed to write database;", flush_err)
		err = errors.Join(err, flush_err)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) writeLoop(ctx context.Context) {
	settings := s.TDB.WriteSettings
	if settings.InMem || settings.WriteInterval <= 0 {
		return
	}

	ticker := time.NewTicker(settings.WriteInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.TDB.Flush(); err != nil {
				pkg.ErrorLog("failed to write database;", err)
			}
		}
	}
}
