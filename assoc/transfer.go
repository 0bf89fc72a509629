package assoc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	dicomerrors "github.com/dicomnet/dicomnet/errors"
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/types"
)

// ReadPDU reads the next PDU from the peer, applying the association's
// idle timeout (or ctx's deadline, if any, when no idle timeout is
// configured). It classifies read failures per original spec §4.A: a
// clean close between PDUs is reported as ErrConnectionClosed, a stalled
// read as an idle-timeout error, and anything else (unknown PDU type,
// truncated header or body) as a ProtocolFramingError.
func (a *Association) ReadPDU(ctx context.Context) (*types.PDU, error) {
	deadline := time.Time{}
	if a.idleTimeout > 0 {
		deadline = time.Now().Add(a.idleTimeout)
	} else if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if !deadline.IsZero() {
		_ = a.conn.SetReadDeadline(deadline)
	}

	p, err := pdu.ReadPDU(a.conn)

	_ = a.conn.SetReadDeadline(time.Time{})

	if err == nil {
		return p, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil, dicomerrors.ErrConnectionClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return nil, dicomerrors.NewIdleTimeoutError(a.idleTimeout.String())
	}
	return nil, dicomerrors.NewProtocolFramingError("reading PDU", err)
}

// SendMessage sends one DIMSE message — command bytes and, if present,
// dataset bytes — as one or more P-DATA-TF PDUs, observing the peer's
// max PDU length (original spec §4.B/§4.E). When command and dataset
// together (plus framing overhead) fit one PDU, they travel as two PDVs
// of a single P-DATA-TF; otherwise the command is sent in its own
// PDU(s) and the dataset is streamed as however many P-DATA-TF PDUs its
// size requires, is_last set only on the final dataset fragment.
func (a *Association) SendMessage(presContextID byte, command, dataset []byte) error {
	fragSize := pdu.FragmentSize(a.peerMaxPDULength)
	cmdFrags := splitFragments(command, fragSize)

	if len(dataset) == 0 {
		return a.sendFragments(presContextID, pdu.PDVCommandBit, cmdFrags)
	}

	dsFrags := splitFragments(dataset, fragSize)
	if len(cmdFrags) == 1 && len(dsFrags) == 1 {
		overhead := 6 + (4 + 2 + len(cmdFrags[0])) + (4 + 2 + len(dsFrags[0]))
		if overhead <= int(a.peerMaxPDULength) {
			items := []pdu.PDV{
				{PresentationContextID: presContextID, ControlHeader: pdu.PDVCommandBit | pdu.PDVLastBit, Data: cmdFrags[0]},
				{PresentationContextID: presContextID, ControlHeader: pdu.PDVLastBit, Data: dsFrags[0]},
			}
			if err := pdu.WritePDU(a.conn, pdu.TypePDataTF, pdu.EncodePDataItems(items)); err != nil {
				return fmt.Errorf("assoc: sending combined P-DATA-TF: %w", err)
			}
			return nil
		}
	}

	if err := a.sendFragments(presContextID, pdu.PDVCommandBit, cmdFrags); err != nil {
		return err
	}
	return a.sendFragments(presContextID, 0, dsFrags)
}

func (a *Association) sendFragments(presContextID byte, kindBit byte, frags [][]byte) error {
	for i, frag := range frags {
		ctrl := kindBit
		if i == len(frags)-1 {
			ctrl |= pdu.PDVLastBit
		}
		item := pdu.PDV{PresentationContextID: presContextID, ControlHeader: ctrl, Data: frag}
		if err := pdu.WritePDU(a.conn, pdu.TypePDataTF, pdu.EncodePDataTF(item)); err != nil {
			return fmt.Errorf("assoc: sending P-DATA-TF: %w", err)
		}
	}
	return nil
}

// splitFragments splits data into chunks of at most size bytes. A nil or
// empty input still yields one empty chunk, so a bodyless command (there
// is none in practice, but keeps the loop uniform) still gets one PDV.
func splitFragments(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	out := make([][]byte, 0, (len(data)/size)+1)
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

// Release performs an orderly association release: sends A-RELEASE-RQ
// and waits for the peer's A-RELEASE-RP before closing the connection.
// Used by the requestor once it has no more messages to send.
func (a *Association) Release(ctx context.Context) error {
	if _, err := a.conn.Write(pdu.EncodeReleaseRQ()); err != nil {
		a.Close()
		return fmt.Errorf("assoc: sending A-RELEASE-RQ: %w", err)
	}
	p, err := a.ReadPDU(ctx)
	if err != nil {
		a.Close()
		return fmt.Errorf("assoc: awaiting A-RELEASE-RP: %w", err)
	}
	a.Close()
	if p.Type != pdu.TypeReleaseRP {
		return fmt.Errorf("assoc: expected A-RELEASE-RP, got PDU type 0x%02x", p.Type)
	}
	return nil
}

// AcceptRelease answers a received A-RELEASE-RQ with A-RELEASE-RP and
// closes the connection. Used by the acceptor.
func (a *Association) AcceptRelease() error {
	defer a.Close()
	_, err := a.conn.Write(pdu.EncodeReleaseRP())
	if err != nil {
		return fmt.Errorf("assoc: sending A-RELEASE-RP: %w", err)
	}
	return nil
}

// Abort sends an A-ABORT PDU and closes the connection. source/reason
// follow PS3.8 Table 9-26; pdu.AbortSourceServiceUser/ServiceProvider
// cover the two cases this implementation itself originates.
func (a *Association) Abort(source, reason byte) error {
	defer a.Close()
	_, err := a.conn.Write(pdu.EncodeAbort(source, reason))
	if err != nil {
		return fmt.Errorf("assoc: sending A-ABORT: %w", err)
	}
	return nil
}

// MaxPDUToPeer returns the maximum encoded size this process may send
// in one PDU to the peer, as negotiated at association time.
func (a *Association) MaxPDUToPeer() uint32 { return a.peerMaxPDULength }

// Role reports whether this association is playing acceptor or requestor.
func (a *Association) Role() Role { return a.role }
