// Package dimse encodes and decodes DIMSE command sets. Command sets
// always travel in Implicit VR Little Endian regardless of the transfer
// syntax negotiated for the dataset that follows (DICOM PS3.7 6.3.1);
// this is the single encoder/decoder pair used by both the SCP and SCU
// association roles, replacing what used to be three divergent
// hand-rolled copies.
package dimse

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dicomnet/dicomnet/types"
)

// Command group element tags (DICOM PS3.7 Annex E).
const (
	tagGroupLength               = 0x0000
	tagAffectedSOPClassUID       = 0x0002
	tagRequestedSOPClassUID      = 0x0003
	tagCommandField              = 0x0100
	tagMessageID                 = 0x0110
	tagMessageIDBeingRespondedTo = 0x0120
	tagPriority                  = 0x0700
	tagCommandDataSetType        = 0x0800
	tagStatus                    = 0x0900
	tagAffectedSOPInstanceUID    = 0x1000
)

// EncodeCommand serializes msg as an Implicit VR Little Endian command
// set, the wire format every DIMSE command always uses.
func EncodeCommand(msg *types.Message) ([]byte, error) {
	var buf []byte
	buf = appendElement(buf, tagGroupLength, make([]byte, 4)) // patched below
	lengthPos := len(buf) - 4

	if msg.AffectedSOPClassUID != "" {
		buf = appendElement(buf, tagAffectedSOPClassUID, uidBytes(msg.AffectedSOPClassUID))
	}
	if msg.RequestedSOPClassUID != "" {
		buf = appendElement(buf, tagRequestedSOPClassUID, uidBytes(msg.RequestedSOPClassUID))
	}
	buf = appendElement(buf, tagCommandField, uint16Bytes(msg.CommandField))
	if isRequestCommand(msg.CommandField) {
		buf = appendElement(buf, tagMessageID, uint16Bytes(msg.MessageID))
	} else {
		buf = appendElement(buf, tagMessageIDBeingRespondedTo, uint16Bytes(msg.MessageIDBeingRespondedTo))
	}
	if msg.CommandField == types.CStoreRQ {
		buf = appendElement(buf, tagPriority, uint16Bytes(msg.Priority))
	}
	buf = appendElement(buf, tagCommandDataSetType, uint16Bytes(msg.CommandDataSetType))
	if !isRequestCommand(msg.CommandField) {
		buf = appendElement(buf, tagStatus, uint16Bytes(msg.Status))
	}
	if msg.AffectedSOPInstanceUID != "" {
		buf = appendElement(buf, tagAffectedSOPInstanceUID, uidBytes(msg.AffectedSOPInstanceUID))
	}

	groupLength := uint32(len(buf) - lengthPos - 4)
	binary.LittleEndian.PutUint32(buf[lengthPos:lengthPos+4], groupLength)
	return buf, nil
}

// DecodeCommand parses an Implicit VR Little Endian command set.
func DecodeCommand(data []byte) (*types.Message, error) {
	msg := &types.Message{CommandDataSetType: 0x0101}
	offset := 0
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		element := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		valueStart := offset + 8
		valueEnd := valueStart + int(length)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("dimse: command element (%04x,%04x) exceeds command length", group, element)
		}
		value := data[valueStart:valueEnd]

		if group == 0x0000 {
			switch element {
			case tagAffectedSOPClassUID:
				msg.AffectedSOPClassUID = trimUID(value)
			case tagRequestedSOPClassUID:
				msg.RequestedSOPClassUID = trimUID(value)
			case tagCommandField:
				msg.CommandField = readUint16(value)
			case tagMessageID:
				msg.MessageID = readUint16(value)
			case tagMessageIDBeingRespondedTo:
				msg.MessageIDBeingRespondedTo = readUint16(value)
			case tagPriority:
				msg.Priority = readUint16(value)
			case tagCommandDataSetType:
				msg.CommandDataSetType = readUint16(value)
			case tagStatus:
				msg.Status = readUint16(value)
			case tagAffectedSOPInstanceUID:
				msg.AffectedSOPInstanceUID = trimUID(value)
			}
		}
		offset = valueEnd
	}
	return msg, nil
}

func isRequestCommand(commandField uint16) bool {
	return commandField&0x8000 == 0
}

func uidBytes(uid string) []byte {
	b := []byte(uid)
	if len(b)%2 == 1 {
		b = append(b, 0x00)
	}
	return b
}

func uint16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func readUint16(value []byte) uint16 {
	if len(value) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(value[:2])
}

func trimUID(value []byte) string {
	return strings.TrimRight(string(value), "\x00 ")
}

func appendElement(buf []byte, element uint16, value []byte) []byte {
	buf = append(buf, 0x00, 0x00) // group 0000, little endian
	buf = append(buf, byte(element), byte(element>>8))
	length := uint32(len(value))
	buf = append(buf, byte(length), byte(length>>8), byte(length>>16), byte(length>>24))
	return append(buf, value...)
}
