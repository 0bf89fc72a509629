// Package assoc implements the DICOM Upper Layer association state
// machine for both roles: acceptor (SCP) and requestor (SCU). It builds
// on the wire codec in package pdu. Negotiation policy for the acceptor
// lives in negotiate.go, connection setup for the requestor in
// connect.go, and message transfer (fragmentation/reassembly) in
// transfer.go.
package assoc

import (
	"log/slog"
	"net"
	"time"

	"github.com/dicomnet/dicomnet/types"
)

// Role identifies which side of the association this process plays.
type Role int

const (
	RoleAcceptor Role = iota
	RoleRequestor
)

// Association represents one negotiated DICOM Upper Layer association,
// ready to exchange DIMSE messages.
type Association struct {
	conn           net.Conn
	role           Role
	callingAETitle string
	calledAETitle  string

	// localMaxPDULength is what this process told its peer it can
	// receive; peerMaxPDULength is what the peer told us, and bounds
	// how large a P-DATA-TF PDU this process may send.
	localMaxPDULength uint32
	peerMaxPDULength  uint32

	presentationCtxs map[byte]*types.PresentationContext
	idleTimeout      time.Duration
	logger           *slog.Logger
}

// CallingAETitle returns the requestor's AE title for this association.
func (a *Association) CallingAETitle() string { return a.callingAETitle }

// CalledAETitle returns the acceptor's AE title for this association.
func (a *Association) CalledAETitle() string { return a.calledAETitle }

// RemoteAddr returns the underlying connection's remote address.
func (a *Association) RemoteAddr() net.Addr { return a.conn.RemoteAddr() }

// PresentationContexts returns the negotiated presentation contexts,
// keyed by context ID. Only accepted contexts carry a transfer syntax.
func (a *Association) PresentationContexts() map[byte]*types.PresentationContext {
	return a.presentationCtxs
}

// TransferSyntaxFor returns the negotiated transfer syntax for an
// accepted presentation context.
func (a *Association) TransferSyntaxFor(presContextID byte) (string, bool) {
	pc, ok := a.presentationCtxs[presContextID]
	if !ok || pc.Result != 0x00 {
		return "", false
	}
	return pc.TransferSyntax, true
}

// ContextForAbstractSyntax returns the ID of an accepted presentation
// context whose abstract syntax matches, if any.
func (a *Association) ContextForAbstractSyntax(abstractSyntax string) (byte, bool) {
	for id, pc := range a.presentationCtxs {
		if pc.Result == 0x00 && pc.AbstractSyntax == abstractSyntax {
			return id, true
		}
	}
	return 0, false
}

// Close closes the underlying connection without performing an
// orderly release. Prefer Release for a graceful shutdown.
func (a *Association) Close() error {
	return a.conn.Close()
}

func (a *Association) logf() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}
