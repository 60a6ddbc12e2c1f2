package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lucax88x/deskwatch/internal/record"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"golang.org/x/time/rate"
)

const (
	writeWait       = 5 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	shutdownTimeout = 5 * time.Second
	maxMessageSize  = 512
)

// Source hands out a fresh receiver for every connected client.
type Source interface {
	Receiver() *vdesktop.Receiver
}

type EventServer struct {
	logger   *slog.Logger
	addr     string
	source   Source
	records  *record.Builder
	upgrader websocket.Upgrader
	lagLog   *rate.Limiter
	clients  atomic.Int64

	MaxRetries int
	RetryDelay time.Duration
}

func NewEventServer(
	logger *slog.Logger,
	addr string,
	source Source,
	records *record.Builder,
) *EventServer {
	return &EventServer{
		logger:  logger,
		addr:    addr,
		source:  source,
		records: records,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		lagLog:     rate.NewLimiter(rate.Every(10*time.Second), 1),
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

func (s *EventServer) Clients() int {
	return int(s.clients.Load())
}

func (s *EventServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok clients=%d\n", s.Clients())
	})
	return mux
}

// Start listens on the configured address, retrying a few times while the
// port is busy, and serves until ctx is done.
func (s *EventServer) Start(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "server: recovered from panic in Start", slog.Any("panic", r))
			err = fmt.Errorf("server: panic: %v", r)
		}
	}()

	var listener net.Listener

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "server: context cancelled before starting")
			return nil
		default:
		}

		var lc net.ListenConfig
		listener, err = lc.Listen(ctx, "tcp", s.addr)
		if err == nil {
			break
		}

		s.logger.ErrorContext(ctx, "server: listen failed",
			slog.String("addr", s.addr),
			slog.Int("attempt", attempt),
			slog.Any("error", err))

		if attempt >= s.MaxRetries {
			return fmt.Errorf("server: could not listen on %s: %w", s.addr, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.RetryDelay):
		}
	}

	return s.Serve(ctx, listener)
}

// Serve accepts websocket clients on listener until ctx is done.
func (s *EventServer) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: writeWait,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.InfoContext(ctx, "server: listening", slog.String("addr", listener.Addr().String()))

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorContext(ctx, "server: recovered from panic in Serve", slog.Any("panic", r))
				done <- fmt.Errorf("server: panic: %v", r)
			}
		}()
		done <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		s.logger.InfoContext(ctx, "server: shutdown")
		return nil
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	}
}

func (s *EventServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "server: upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	rx := s.source.Receiver()
	defer rx.Close()

	s.clients.Add(1)
	defer s.clients.Add(-1)

	s.logger.DebugContext(r.Context(), "server: client connected", slog.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readPump(ctx, cancel, conn)
	s.writePump(ctx, conn, rx)

	s.logger.DebugContext(r.Context(), "server: client disconnected", slog.String("remote", r.RemoteAddr))
}

// readPump discards client messages and cancels ctx once the peer is gone.
func (s *EventServer) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "server: recovered from panic in read pump", slog.Any("panic", r))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *EventServer) writePump(ctx context.Context, conn *websocket.Conn, rx *vdesktop.Receiver) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeConn(conn, websocket.CloseGoingAway, "server stopping")
			return

		case e, ok := <-rx.C():
			if !ok {
				s.closeConn(conn, websocket.CloseGoingAway, "registration closed")
				return
			}

			if rx.Len() >= rx.Cap()/2 && s.lagLog.Allow() {
				s.logger.WarnContext(ctx, "server: client is falling behind, events may be dropped",
					slog.Int("pending", rx.Len()),
					slog.Int("capacity", rx.Cap()))
			}

			data, err := s.records.Build(e).JSON()
			if err != nil {
				s.logger.ErrorContext(ctx, "server: could not encode event", slog.Any("error", err))
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.DebugContext(ctx, "server: write failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *EventServer) closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("server: could not send close", slog.Any("error", err))
	}
}
