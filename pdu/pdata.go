package pdu

import (
	"encoding/binary"
	"fmt"
)

// Message control header bits for a PDV (PS3.8 9.3.1.1).
const (
	PDVCommandBit byte = 0x01 // set: PDV carries command data; clear: dataset data
	PDVLastBit    byte = 0x02 // set: last fragment of this message/dataset
)

// PDV is one Presentation Data Value: a presentation context ID, a
// one-byte message control header, and the fragment payload.
type PDV struct {
	PresentationContextID byte
	ControlHeader         byte
	Data                  []byte
}

// IsCommand reports whether this PDV carries command data.
func (p PDV) IsCommand() bool { return p.ControlHeader&PDVCommandBit != 0 }

// IsLast reports whether this PDV is the final fragment of its message.
func (p PDV) IsLast() bool { return p.ControlHeader&PDVLastBit != 0 }

// DecodePDataTF splits a P-DATA-TF PDU body into its constituent PDVs.
// A single P-DATA-TF PDU may carry more than one PDV back to back.
func DecodePDataTF(body []byte) ([]PDV, error) {
	var pdvs []PDV
	offset := 0
	for offset+4 <= len(body) {
		pdvLength := binary.BigEndian.Uint32(body[offset : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(pdvLength)
		if valueEnd > len(body) {
			return nil, fmt.Errorf("pdu: PDV exceeds P-DATA-TF body length")
		}
		if pdvLength < 2 {
			return nil, fmt.Errorf("pdu: PDV too short: %d bytes", pdvLength)
		}
		pdvs = append(pdvs, PDV{
			PresentationContextID: body[valueStart],
			ControlHeader:         body[valueStart+1],
			Data:                  body[valueStart+2 : valueEnd],
		})
		offset = valueEnd
	}
	return pdvs, nil
}

// EncodePDataTF builds the body of a P-DATA-TF PDU carrying a single PDV.
func EncodePDataTF(pc PDV) []byte {
	pdvData := append([]byte{pc.PresentationContextID, pc.ControlHeader}, pc.Data...)
	out := make([]byte, 4, 4+len(pdvData))
	binary.BigEndian.PutUint32(out, uint32(len(pdvData)))
	return append(out, pdvData...)
}

// EncodePDataItems builds the body of a P-DATA-TF PDU carrying several
// PDVs back to back, e.g. a command fragment and a dataset fragment of
// the same message sharing one PDU (§4.B budget rule).
func EncodePDataItems(items []PDV) []byte {
	var buf []byte
	for _, item := range items {
		buf = append(buf, EncodePDataTF(item)...)
	}
	return buf
}

// FragmentSize returns the maximum payload a single PDV's Data may carry
// so that the enclosing P-DATA-TF PDU never exceeds maxPDULength: 6
// bytes of PDU header, 4 bytes of PDV length, 2 bytes of PDV header.
func FragmentSize(maxPDULength uint32) int {
	overhead := 6 + 4 + 2
	size := int(maxPDULength) - overhead
	if size < 1 {
		size = 1
	}
	return size
}

// EncodeReleaseRQ builds a complete A-RELEASE-RQ PDU.
func EncodeReleaseRQ() []byte {
	return concatHeader(TypeReleaseRQ, make([]byte, 4))
}

// EncodeReleaseRP builds a complete A-RELEASE-RP PDU.
func EncodeReleaseRP() []byte {
	return concatHeader(TypeReleaseRP, make([]byte, 4))
}

// Abort source/reason codes (PS3.8 Table 9-26), used when this
// implementation itself initiates the abort.
const (
	AbortSourceServiceUser     byte = 0x00
	AbortSourceServiceProvider byte = 0x02
	AbortReasonNotSpecified    byte = 0x00
)

// EncodeAbort builds a complete A-ABORT PDU.
func EncodeAbort(source, reason byte) []byte {
	body := []byte{0x00, 0x00, source, reason}
	return concatHeader(TypeAbort, body)
}

func concatHeader(pduType byte, body []byte) []byte {
	header := make([]byte, 6)
	header[0] = pduType
	binary.BigEndian.PutUint32(header[2:6], uint32(len(body)))
	return append(header, body...)
}
