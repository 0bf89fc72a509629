// Package pdu implements the DICOM Upper Layer Protocol wire codec: PDU
// framing, A-ASSOCIATE-RQ/AC encoding and parsing, and P-DATA-TF/PDV
// framing. It has no opinion on negotiation policy or association
// state — that lives in package assoc, which uses this codec from both
// the acceptor and requestor sides.
package pdu

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/dicomnet/dicomnet/types"
)

// PDU type constants (DICOM PS3.8 Table 9-17).
const (
	TypeAssociateRQ = types.TypeAssociateRQ
	TypeAssociateAC = types.TypeAssociateAC
	TypeAssociateRJ = types.TypeAssociateRJ
	TypePDataTF     = types.TypePDataTF
	TypeReleaseRQ   = types.TypeReleaseRQ
	TypeReleaseRP   = types.TypeReleaseRP
	TypeAbort       = types.TypeAbort
)

// Presentation context result codes (PS3.8 Table 9-18).
const (
	ResultAcceptance               byte = 0x00
	ResultUserRejection             byte = 0x01
	ResultNoReasonRejection         byte = 0x02
	ResultRejectAbstractSyntax      byte = 0x03
	ResultRejectTransferSyntax      byte = 0x04
)

// item type bytes for the variable items in RQ/AC PDUs.
const (
	itemApplicationContext       byte = 0x10
	itemPresentationContextRQ    byte = 0x20
	itemPresentationContextAC    byte = 0x21
	itemAbstractSyntax           byte = 0x30
	itemTransferSyntax           byte = 0x40
	itemUserInformation          byte = 0x50
	itemMaxPDULength             byte = 0x51
	itemImplementationClassUID   byte = 0x52
	itemImplementationVersion    byte = 0x55
	itemUserIdentity             byte = 0x58
	itemUserIdentityResponse     byte = 0x59
)

// ReadPDU reads one complete PDU (6-byte header plus its data) from r.
func ReadPDU(r io.Reader) (*types.PDU, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if header[0] < TypeAssociateRQ || header[0] > TypeAbort {
		return nil, fmt.Errorf("pdu: unknown PDU type 0x%02x", header[0])
	}
	length := binary.BigEndian.Uint32(header[2:6])
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("pdu: reading %d-byte body: %w", length, err)
	}
	return &types.PDU{Type: header[0], Length: length, Data: data}, nil
}

// WritePDU writes a PDU header followed by data to w.
func WritePDU(w io.Writer, pduType byte, data []byte) error {
	header := make([]byte, 6)
	header[0] = pduType
	binary.BigEndian.PutUint32(header[2:6], uint32(len(data)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func normalizeUID(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00 ")
}

func padAETitle(title string) []byte {
	out := make([]byte, 16)
	copy(out, title)
	for i := len(title); i < 16; i++ {
		out[i] = ' '
	}
	return out
}

func readAETitle(data []byte) string {
	s := string(data)
	if idx := strings.IndexByte(s, 0); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func appendItem(buf []byte, itemType byte, value []byte) []byte {
	buf = append(buf, itemType, 0x00)
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(value)))
	buf = append(buf, length...)
	return append(buf, value...)
}
