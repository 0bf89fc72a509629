package scu

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dicomnet/dicomnet/assoc"
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/types"
)

// connectedPair establishes one real association over a loopback TCP
// connection: an acceptor goroutine runs cfg against the accepted
// side, and the requestor side is returned for the test to drive.
func connectedPair(t *testing.T, proposals []pdu.PresentationContextProposal, acceptAll bool) *assoc.Association {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	acceptDone := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			acceptDone <- err
			return
		}
		_, err = assoc.Accept(context.Background(), conn, assoc.AcceptorConfig{
			AETitle:                  "TEST_SCP",
			MaxPDULength:             16384,
			AcceptAbstractSyntax:     func(string) bool { return acceptAll },
			TransferSyntaxPreference: types.AllTransferSyntaxes(),
		})
		acceptDone <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := assoc.Connect(ctx, listener.Addr().String(), assoc.RequestorConfig{
		CallingAETitle:   "TEST_SCU",
		CalledAETitle:    "TEST_SCP",
		MaxPDULength:     16384,
		PresentationCtxs: proposals,
	})
	if err != nil {
		t.Fatalf("assoc.Connect: %v", err)
	}
	if err := <-acceptDone; err != nil {
		t.Fatalf("assoc.Accept: %v", err)
	}
	return a
}

func TestSelectContextExactMatch(t *testing.T) {
	proposals := []pdu.PresentationContextProposal{
		{ID: 1, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.ImplicitVRLittleEndian, types.ExplicitVRLittleEndian}},
	}
	a := connectedPair(t, proposals, true)
	defer a.Close()

	file := PreparedFile{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.ImplicitVRLittleEndian}
	pcID, transferSyntax, ok := selectContext(a, file, false, false)
	if !ok {
		t.Fatal("expected a selected context")
	}
	if pcID != 1 {
		t.Errorf("pcID = %d, want 1", pcID)
	}
	if transferSyntax != types.ImplicitVRLittleEndian {
		t.Errorf("transferSyntax = %q, want %q", transferSyntax, types.ImplicitVRLittleEndian)
	}
}

func TestSelectContextFallsBackToIgnoreSOPClass(t *testing.T) {
	proposals := []pdu.PresentationContextProposal{
		{ID: 1, AbstractSyntax: types.MRImageStorage, TransferSyntaxes: []string{types.ImplicitVRLittleEndian}},
	}
	a := connectedPair(t, proposals, true)
	defer a.Close()

	file := PreparedFile{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.ImplicitVRLittleEndian}

	if _, _, ok := selectContext(a, file, false, false); ok {
		t.Fatal("expected no match without ignore_sop_class")
	}

	pcID, _, ok := selectContext(a, file, false, true)
	if !ok {
		t.Fatal("expected ignore_sop_class to find the MR context as a last resort")
	}
	if pcID != 1 {
		t.Errorf("pcID = %d, want 1", pcID)
	}
}

func TestSelectContextNoCompatibleContextReturnsFalse(t *testing.T) {
	proposals := []pdu.PresentationContextProposal{
		{ID: 1, AbstractSyntax: types.CTImageStorage, TransferSyntaxes: []string{types.JPEG2000Lossless}},
	}
	a := connectedPair(t, proposals, true)
	defer a.Close()

	// Different SOP class than the only negotiated context, and
	// transcoding disabled, so none of the three standard tiers match.
	file := PreparedFile{SOPClassUID: types.MRImageStorage, TransferSyntaxUID: types.JPEG2000Lossless}
	if _, _, ok := selectContext(a, file, true, false); ok {
		t.Fatal("expected no match when no negotiated context fits the file")
	}
}
