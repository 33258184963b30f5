package sync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/stolpe22/plano-jornada/pkg/logger"
)

// Server accepts TCP subscribers for the progress feed. Anything a client
// sends is read and discarded.
type Server struct {
	Addr string
	Hub  *Hub
	Log  *logger.Logger
}

func NewServer(addr string, hub *Hub, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Addr: addr, Hub: hub, Log: log}
}

func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx is done or ln fails, and waits for every
// connection goroutine before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Log.Info("feed listening", "addr", ln.Addr().String())

	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = acceptBackoff(delay)
			s.Log.Warn("feed accept", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.Hub.Add(conn)
		s.Log.Debug("feed client connected", "remote", conn.RemoteAddr().String())

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer func() {
				s.Hub.Remove(c)
				s.Log.Debug("feed client disconnected", "remote", c.RemoteAddr().String())
			}()
			unblock := context.AfterFunc(ctx, func() { _ = c.Close() })
			defer unblock()

			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// acceptBackoff doubles the wait after each failed Accept, from 5ms up to 1s.
func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < time.Second {
		return next
	}
	return time.Second
}
