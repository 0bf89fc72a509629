package assoc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/types"
)

// AcceptorConfig controls how Accept negotiates an incoming association.
// AcceptAbstractSyntax and TransferSyntaxPreference carry the actual
// negotiation policy so this package stays decoupled from the
// configuration file format — callers translate their own config into
// these two predicates.
type AcceptorConfig struct {
	AETitle                  string
	MaxPDULength             uint32
	AcceptAbstractSyntax     func(uid string) bool
	TransferSyntaxPreference []string
	IdleTimeout              time.Duration
	Logger                   *slog.Logger
}

// Accept reads an A-ASSOCIATE-RQ from conn, negotiates every proposed
// presentation context against cfg, and replies with an A-ASSOCIATE-AC
// that carries a result for every proposed context — including
// rejections — per DICOM PS3.8 9.3.3.3.
func Accept(ctx context.Context, conn net.Conn, cfg AcceptorConfig) (*Association, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	pduIn, err := pdu.ReadPDU(conn)
	if err != nil {
		return nil, fmt.Errorf("assoc: reading association request: %w", err)
	}
	if pduIn.Type != pdu.TypeAssociateRQ {
		return nil, fmt.Errorf("assoc: expected A-ASSOCIATE-RQ, got PDU type 0x%02x", pduIn.Type)
	}

	rq, err := pdu.DecodeAssociateRQ(pduIn.Data)
	if err != nil {
		return nil, fmt.Errorf("assoc: parsing association request: %w", err)
	}

	maxPDULength := cfg.MaxPDULength
	if maxPDULength == 0 {
		maxPDULength = 16384
	}

	results := make([]types.PresentationContext, 0, len(rq.PresentationCtxs))
	negotiated := make(map[byte]*types.PresentationContext, len(rq.PresentationCtxs))
	for _, proposed := range rq.PresentationCtxs {
		pc := negotiateOne(proposed, cfg)
		results = append(results, pc)
		negotiated[pc.ID] = &pc
		logger.Debug("negotiated presentation context",
			"context_id", pc.ID,
			"abstract_syntax", pc.AbstractSyntax,
			"result", pc.Result,
			"transfer_syntax", pc.TransferSyntax)
	}

	ac := pdu.AssociateAC{
		CalledAETitle:    cfg.AETitle,
		CallingAETitle:   rq.CallingAETitle,
		MaxPDULength:     maxPDULength,
		PresentationCtxs: results,
	}
	body := pdu.EncodeAssociateAC(ac)
	if err := pdu.WritePDU(conn, pdu.TypeAssociateAC, body); err != nil {
		return nil, fmt.Errorf("assoc: sending association accept: %w", err)
	}

	logger.Info("association accepted",
		"remote_addr", conn.RemoteAddr(),
		"calling_ae", rq.CallingAETitle,
		"called_ae", cfg.AETitle,
		"proposed_contexts", len(rq.PresentationCtxs))

	return &Association{
		conn:              conn,
		role:              RoleAcceptor,
		callingAETitle:    rq.CallingAETitle,
		calledAETitle:     cfg.AETitle,
		localMaxPDULength: maxPDULength,
		peerMaxPDULength:  rq.MaxPDULength,
		presentationCtxs:  negotiated,
		idleTimeout:       cfg.IdleTimeout,
		logger:            logger,
	}, nil
}

func negotiateOne(proposed pdu.PresentationContextProposal, cfg AcceptorConfig) types.PresentationContext {
	pc := types.PresentationContext{
		ID:             proposed.ID,
		AbstractSyntax: proposed.AbstractSyntax,
		Result:         pdu.ResultRejectAbstractSyntax,
	}

	accept := cfg.AcceptAbstractSyntax
	if accept == nil {
		accept = func(string) bool { return true }
	}
	if !accept(proposed.AbstractSyntax) {
		return pc
	}

	for _, preferred := range cfg.TransferSyntaxPreference {
		for _, offered := range proposed.TransferSyntaxes {
			if preferred == offered {
				pc.TransferSyntax = preferred
				pc.Result = pdu.ResultAcceptance
				return pc
			}
		}
	}
	pc.Result = pdu.ResultRejectTransferSyntax
	return pc
}
