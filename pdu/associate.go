package pdu

import (
	"encoding/binary"
	"fmt"

	"github.com/dicomnet/dicomnet/types"
)

// ApplicationContextUID is the single DICOM application context this
// implementation proposes and accepts.
const ApplicationContextUID = types.ApplicationContextUID

// ImplementationClassUID identifies this implementation in the user
// information item of every association, acceptor and requestor alike.
const ImplementationClassUID = "1.2.826.0.1.3680043.dicomnet.1"

// ImplementationVersionName is the companion free-text version string.
const ImplementationVersionName = "DICOMNET_1.0"

// UserIdentityType selects the user-identity negotiation sub-type
// carried in an A-ASSOCIATE-RQ (PS3.7 Annex D.3.3.7), plus a JWT
// extension original spec §4.B lists alongside the three standard
// types and Kerberos.
type UserIdentityType byte

const (
	UserIdentityUsername         UserIdentityType = 1
	UserIdentityUsernamePassword UserIdentityType = 2
	UserIdentityKerberos         UserIdentityType = 3
	UserIdentitySAML             UserIdentityType = 4
	UserIdentityJWT              UserIdentityType = 5
)

// UserIdentity is the optional user-identity sub-item of an
// A-ASSOCIATE-RQ's user-information item. SecondaryField is only
// meaningful for UserIdentityUsernamePassword.
type UserIdentity struct {
	Type                      UserIdentityType
	PositiveResponseRequested bool
	PrimaryField              string
	SecondaryField            string
}

// PresentationContextProposal is one presentation context as offered in
// an A-ASSOCIATE-RQ: an abstract syntax paired with an ordered list of
// transfer syntaxes, most preferred first.
type PresentationContextProposal struct {
	ID               byte
	AbstractSyntax   string
	TransferSyntaxes []string
}

// AssociateRQ is the parsed or to-be-encoded content of an
// A-ASSOCIATE-RQ PDU.
type AssociateRQ struct {
	CalledAETitle    string
	CallingAETitle   string
	MaxPDULength     uint32
	PresentationCtxs []PresentationContextProposal
	UserIdentity     *UserIdentity
}

// AssociateAC is the parsed or to-be-encoded content of an
// A-ASSOCIATE-AC PDU. PresentationCtxs carries one types.PresentationContext
// per context ID proposed in the RQ, accepted or rejected — DICOM PS3.8
//9.3.3.3 requires a result for every proposed context, not just the
// accepted ones.
type AssociateAC struct {
	CalledAETitle    string
	CallingAETitle   string
	MaxPDULength     uint32
	PresentationCtxs []types.PresentationContext
}

// EncodeAssociateRQ builds the body (everything after the 6-byte PDU
// header) of an A-ASSOCIATE-RQ PDU.
func EncodeAssociateRQ(rq AssociateRQ) []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, 0x00, 0x01) // protocol version
	buf = append(buf, 0x00, 0x00) // reserved
	buf = append(buf, padAETitle(rq.CalledAETitle)...)
	buf = append(buf, padAETitle(rq.CallingAETitle)...)
	buf = append(buf, make([]byte, 32)...) // reserved

	buf = appendItem(buf, itemApplicationContext, []byte(ApplicationContextUID))

	for _, pc := range rq.PresentationCtxs {
		var body []byte
		body = append(body, pc.ID, 0x00, 0x00, 0x00)
		body = appendItem(body, itemAbstractSyntax, []byte(pc.AbstractSyntax))
		for _, ts := range pc.TransferSyntaxes {
			body = appendItem(body, itemTransferSyntax, []byte(ts))
		}
		buf = appendItem(buf, itemPresentationContextRQ, body)
	}

	buf = appendItem(buf, itemUserInformation, encodeUserInformation(rq.MaxPDULength, rq.UserIdentity))
	return buf
}

// DecodeAssociateRQ parses the body of an A-ASSOCIATE-RQ PDU.
func DecodeAssociateRQ(data []byte) (*AssociateRQ, error) {
	if len(data) < 68 {
		return nil, fmt.Errorf("pdu: associate-rq body too short: %d bytes", len(data))
	}
	rq := &AssociateRQ{
		CalledAETitle:  readAETitle(data[4:20]),
		CallingAETitle: readAETitle(data[20:36]),
		MaxPDULength:   16384,
	}

	offset := 68
	for offset+4 <= len(data) {
		itemType := data[offset]
		itemLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(itemLength)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("pdu: associate-rq item exceeds body length")
		}
		value := data[valueStart:valueEnd]

		switch itemType {
		case itemPresentationContextRQ:
			pc, err := decodePresentationContextRQ(value)
			if err != nil {
				return nil, err
			}
			rq.PresentationCtxs = append(rq.PresentationCtxs, *pc)
		case itemUserInformation:
			if maxPDU, ok := decodeMaxPDULength(value); ok {
				rq.MaxPDULength = maxPDU
			}
			rq.UserIdentity = decodeUserIdentity(value)
		}
		offset = valueEnd
	}
	return rq, nil
}

func decodePresentationContextRQ(data []byte) (*PresentationContextProposal, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("pdu: presentation context item too short")
	}
	pc := &PresentationContextProposal{ID: data[0]}
	offset := 4
	for offset+4 <= len(data) {
		subType := data[offset]
		subLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(subLength)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("pdu: presentation context sub-item exceeds length")
		}
		value := data[valueStart:valueEnd]
		switch subType {
		case itemAbstractSyntax:
			pc.AbstractSyntax = normalizeUID(value)
		case itemTransferSyntax:
			pc.TransferSyntaxes = append(pc.TransferSyntaxes, normalizeUID(value))
		}
		offset = valueEnd
	}
	if pc.AbstractSyntax == "" {
		return nil, fmt.Errorf("pdu: presentation context %d missing abstract syntax", pc.ID)
	}
	return pc, nil
}

// EncodeAssociateAC builds the body of an A-ASSOCIATE-AC PDU. Unlike
// some deployed implementations, every context from ac.PresentationCtxs
// is emitted regardless of Result, per PS3.8 9.3.3.3.
func EncodeAssociateAC(ac AssociateAC) []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, 0x00, 0x01)
	buf = append(buf, 0x00, 0x00)
	buf = append(buf, padAETitle(ac.CalledAETitle)...)
	buf = append(buf, padAETitle(ac.CallingAETitle)...)
	buf = append(buf, make([]byte, 32)...)

	buf = appendItem(buf, itemApplicationContext, []byte(ApplicationContextUID))

	for _, pc := range ac.PresentationCtxs {
		var body []byte
		body = append(body, pc.ID, pc.Result, 0x00, 0x00)
		if pc.Result == ResultAcceptance {
			body = appendItem(body, itemTransferSyntax, []byte(pc.TransferSyntax))
		}
		buf = appendItem(buf, itemPresentationContextAC, body)
	}

	buf = appendItem(buf, itemUserInformation, encodeUserInformation(ac.MaxPDULength, nil))
	return buf
}

// DecodeAssociateAC parses the body of an A-ASSOCIATE-AC PDU.
func DecodeAssociateAC(data []byte) (*AssociateAC, error) {
	if len(data) < 68 {
		return nil, fmt.Errorf("pdu: associate-ac body too short: %d bytes", len(data))
	}
	ac := &AssociateAC{
		CalledAETitle:  readAETitle(data[4:20]),
		CallingAETitle: readAETitle(data[20:36]),
		MaxPDULength:   16384,
	}

	offset := 68
	for offset+4 <= len(data) {
		itemType := data[offset]
		itemLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(itemLength)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("pdu: associate-ac item exceeds body length")
		}
		value := data[valueStart:valueEnd]

		switch itemType {
		case itemPresentationContextAC:
			pc, err := decodePresentationContextAC(value)
			if err != nil {
				return nil, err
			}
			ac.PresentationCtxs = append(ac.PresentationCtxs, *pc)
		case itemUserInformation:
			if maxPDU, ok := decodeMaxPDULength(value); ok {
				ac.MaxPDULength = maxPDU
			}
		}
		offset = valueEnd
	}
	return ac, nil
}

func decodePresentationContextAC(data []byte) (*types.PresentationContext, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("pdu: presentation context result item too short")
	}
	pc := &types.PresentationContext{ID: data[0], Result: data[1]}
	offset := 4
	for offset+4 <= len(data) {
		subType := data[offset]
		subLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(subLength)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("pdu: presentation context result sub-item exceeds length")
		}
		if subType == itemTransferSyntax {
			pc.TransferSyntax = normalizeUID(data[valueStart:valueEnd])
		}
		offset = valueEnd
	}
	return pc, nil
}

func encodeUserInformation(maxPDULength uint32, identity *UserIdentity) []byte {
	maxPDU := make([]byte, 4)
	binary.BigEndian.PutUint32(maxPDU, maxPDULength)

	var body []byte
	body = appendItem(body, itemMaxPDULength, maxPDU)
	body = appendItem(body, itemImplementationClassUID, []byte(ImplementationClassUID))
	body = appendItem(body, itemImplementationVersion, []byte(ImplementationVersionName))
	if identity != nil {
		body = appendItem(body, itemUserIdentity, encodeUserIdentity(*identity))
	}
	return body
}

// encodeUserIdentity builds a user-identity sub-item value: type byte,
// positive-response-requested flag, primary field (length-prefixed),
// secondary field (length-prefixed, only sent for username+password).
func encodeUserIdentity(id UserIdentity) []byte {
	var buf []byte
	buf = append(buf, byte(id.Type))
	if id.PositiveResponseRequested {
		buf = append(buf, 0x01)
	} else {
		buf = append(buf, 0x00)
	}
	buf = appendLengthPrefixed(buf, []byte(id.PrimaryField))
	if id.Type == UserIdentityUsernamePassword {
		buf = appendLengthPrefixed(buf, []byte(id.SecondaryField))
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}
	return buf
}

func appendLengthPrefixed(buf, value []byte) []byte {
	length := make([]byte, 2)
	binary.BigEndian.PutUint16(length, uint16(len(value)))
	buf = append(buf, length...)
	return append(buf, value...)
}

func decodeMaxPDULength(data []byte) (uint32, bool) {
	offset := 0
	for offset+4 <= len(data) {
		subType := data[offset]
		subLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(subLength)
		if valueEnd > len(data) {
			return 0, false
		}
		if subType == itemMaxPDULength && subLength == 4 {
			return binary.BigEndian.Uint32(data[valueStart:valueEnd]), true
		}
		offset = valueEnd
	}
	return 0, false
}

// decodeUserIdentity looks for a user-identity sub-item inside a
// user-information item's value and parses it, if present.
func decodeUserIdentity(data []byte) *UserIdentity {
	offset := 0
	for offset+4 <= len(data) {
		subType := data[offset]
		subLength := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		valueStart := offset + 4
		valueEnd := valueStart + int(subLength)
		if valueEnd > len(data) {
			return nil
		}
		if subType == itemUserIdentity {
			return parseUserIdentityValue(data[valueStart:valueEnd])
		}
		offset = valueEnd
	}
	return nil
}

func parseUserIdentityValue(data []byte) *UserIdentity {
	if len(data) < 4 {
		return nil
	}
	id := &UserIdentity{
		Type:                      UserIdentityType(data[0]),
		PositiveResponseRequested: data[1] != 0,
	}
	offset := 2
	primaryLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+primaryLen > len(data) {
		return nil
	}
	id.PrimaryField = string(data[offset : offset+primaryLen])
	offset += primaryLen
	if offset+2 <= len(data) {
		secondaryLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset+secondaryLen <= len(data) {
			id.SecondaryField = string(data[offset : offset+secondaryLen])
		}
	}
	return id
}
