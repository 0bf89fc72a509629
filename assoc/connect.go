package assoc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	dicomerrors "github.com/dicomnet/dicomnet/errors"
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/types"
)

// RequestorConfig controls how Connect proposes and establishes an
// association.
type RequestorConfig struct {
	CallingAETitle   string
	CalledAETitle    string
	MaxPDULength     uint32
	PresentationCtxs []pdu.PresentationContextProposal
	UserIdentity     *pdu.UserIdentity
	ConnectTimeout   time.Duration
	IdleTimeout      time.Duration
	Logger           *slog.Logger
}

// Connect dials address, sends an A-ASSOCIATE-RQ proposing
// cfg.PresentationCtxs, and waits for the peer's A-ASSOCIATE-AC.
func Connect(ctx context.Context, address string, cfg RequestorConfig) (*Association, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxPDULength := cfg.MaxPDULength
	if maxPDULength == 0 {
		maxPDULength = 16384
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("assoc: dialing %s: %w", address, err)
	}

	rq := pdu.AssociateRQ{
		CalledAETitle:    cfg.CalledAETitle,
		CallingAETitle:   cfg.CallingAETitle,
		MaxPDULength:     maxPDULength,
		PresentationCtxs: cfg.PresentationCtxs,
		UserIdentity:     cfg.UserIdentity,
	}
	if err := pdu.WritePDU(conn, pdu.TypeAssociateRQ, pdu.EncodeAssociateRQ(rq)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assoc: sending association request: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	pduIn, err := pdu.ReadPDU(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("assoc: reading association response: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch pduIn.Type {
	case pdu.TypeAssociateRJ:
		conn.Close()
		return nil, fmt.Errorf("assoc: association rejected by %s", address)
	case pdu.TypeAssociateAC:
		// fall through
	default:
		conn.Close()
		return nil, fmt.Errorf("assoc: unexpected PDU type 0x%02x (expected A-ASSOCIATE-AC)", pduIn.Type)
	}

	ac, err := pdu.DecodeAssociateAC(pduIn.Data)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("assoc: parsing association response: %w", err)
	}

	abstractSyntaxByID := make(map[byte]string, len(cfg.PresentationCtxs))
	for _, pc := range cfg.PresentationCtxs {
		abstractSyntaxByID[pc.ID] = pc.AbstractSyntax
	}

	negotiated := make(map[byte]*types.PresentationContext, len(ac.PresentationCtxs))
	accepted := 0
	for i := range ac.PresentationCtxs {
		pc := ac.PresentationCtxs[i]
		pc.AbstractSyntax = abstractSyntaxByID[pc.ID]
		negotiated[pc.ID] = &pc
		if pc.Result == pdu.ResultAcceptance {
			accepted++
		}
	}

	logger.Info("association established",
		"remote_addr", address,
		"calling_ae", cfg.CallingAETitle,
		"called_ae", cfg.CalledAETitle,
		"proposed_contexts", len(cfg.PresentationCtxs),
		"accepted_contexts", accepted)

	if accepted == 0 {
		conn.Close()
		return nil, dicomerrors.NewNegotiationFailedError("peer accepted no proposed presentation context")
	}

	return &Association{
		conn:              conn,
		role:              RoleRequestor,
		callingAETitle:    cfg.CallingAETitle,
		calledAETitle:     cfg.CalledAETitle,
		localMaxPDULength: maxPDULength,
		peerMaxPDULength:  ac.MaxPDULength,
		presentationCtxs:  negotiated,
		idleTimeout:       cfg.IdleTimeout,
		logger:            logger,
	}, nil
}
