package scp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/dicomnet/dicomnet/assoc"
	"github.com/dicomnet/dicomnet/pdu"
)

// Server listens on a TCP address and runs Pipeline for every accepted
// association, one goroutine each (original spec §5: "one task per
// accepted association").
type Server struct {
	Addr     string
	Acceptor assoc.AcceptorConfig
	Pipeline *Pipeline
	Logger   *slog.Logger
}

func (s *Server) logf() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Run listens on s.Addr and serves associations until ctx is cancelled.
// Cancellation closes the listener and aborts every live association
// with AbortRQ{source=service-user}, then waits for their goroutines to
// finish before returning.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("scp: listening on %s: %w", s.Addr, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	live := make(map[*assoc.Association]struct{})

	shutdown := make(chan struct{})
	go func() {
		<-ctx.Done()
		listener.Close()
		mu.Lock()
		for a := range live {
			_ = a.Abort(pdu.AbortSourceServiceUser, pdu.AbortReasonNotSpecified)
		}
		mu.Unlock()
		close(shutdown)
	}()

	if s.Pipeline != nil && s.Pipeline.Observer != nil {
		s.Pipeline.Observer.OnServerStarted(s.Addr)
	}
	s.logf().Info("scp listening", "addr", s.Addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				<-shutdown
				return nil
			default:
				return fmt.Errorf("scp: accept: %w", err)
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			associationID := uuid.New().String()
			acceptorCfg := s.Acceptor
			acceptorCfg.Logger = s.logf().With("association_id", associationID)

			a, err := assoc.Accept(ctx, conn, acceptorCfg)
			if err != nil {
				acceptorCfg.Logger.Warn("association negotiation failed", "remote_addr", conn.RemoteAddr(), "error", err)
				conn.Close()
				return
			}

			mu.Lock()
			live[a] = struct{}{}
			mu.Unlock()
			defer func() {
				mu.Lock()
				delete(live, a)
				mu.Unlock()
			}()

			s.Pipeline.HandleAssociation(ctx, a)
		}()
	}
}
