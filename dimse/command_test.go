package dimse

import (
	"testing"

	"github.com/dicomnet/dicomnet/types"
)

func TestEncodeDecodeCommand_CStoreRQ(t *testing.T) {
	msg := &types.Message{
		CommandField:           types.CStoreRQ,
		MessageID:              9,
		Priority:                0,
		CommandDataSetType:      0x0000,
		AffectedSOPClassUID:     "1.2.840.10008.5.1.4.1.1.2",
		AffectedSOPInstanceUID:  "1.2.3.4.5.6.7",
	}

	encoded, err := EncodeCommand(msg)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}

	decoded, err := DecodeCommand(encoded)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}

	if decoded.CommandField != msg.CommandField {
		t.Errorf("CommandField = 0x%04x, want 0x%04x", decoded.CommandField, msg.CommandField)
	}
	if decoded.MessageID != msg.MessageID {
		t.Errorf("MessageID = %d, want %d", decoded.MessageID, msg.MessageID)
	}
	if decoded.AffectedSOPClassUID != msg.AffectedSOPClassUID {
		t.Errorf("AffectedSOPClassUID = %s, want %s", decoded.AffectedSOPClassUID, msg.AffectedSOPClassUID)
	}
	if decoded.AffectedSOPInstanceUID != msg.AffectedSOPInstanceUID {
		t.Errorf("AffectedSOPInstanceUID = %s, want %s", decoded.AffectedSOPInstanceUID, msg.AffectedSOPInstanceUID)
	}
	if decoded.CommandDataSetType != msg.CommandDataSetType {
		t.Errorf("CommandDataSetType = 0x%04x, want 0x%04x", decoded.CommandDataSetType, msg.CommandDataSetType)
	}
}

func TestEncodeDecodeCommand_CStoreRSP(t *testing.T) {
	msg := &types.Message{
		CommandField:              types.CStoreRSP,
		MessageIDBeingRespondedTo: 9,
		CommandDataSetType:        0x0101,
		Status:                    types.StatusSuccess,
		AffectedSOPClassUID:       "1.2.840.10008.5.1.4.1.1.2",
		AffectedSOPInstanceUID:    "1.2.3.4.5.6.7",
	}

	encoded, err := EncodeCommand(msg)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	decoded, err := DecodeCommand(encoded)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}

	if decoded.MessageIDBeingRespondedTo != 9 {
		t.Errorf("MessageIDBeingRespondedTo = %d, want 9", decoded.MessageIDBeingRespondedTo)
	}
	if decoded.Status != types.StatusSuccess {
		t.Errorf("Status = 0x%04x, want success", decoded.Status)
	}
}

func TestEncodeCommand_OddLengthUIDPadded(t *testing.T) {
	msg := &types.Message{
		CommandField:        types.CEchoRQ,
		MessageID:            1,
		CommandDataSetType:   0x0101,
		AffectedSOPClassUID:  "1.2.840.10008.1.1", // even length already; exercise odd case below
	}
	odd := "1.2.3" // odd length (5 chars)
	msg.AffectedSOPClassUID = odd

	encoded, err := EncodeCommand(msg)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	decoded, err := DecodeCommand(encoded)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if decoded.AffectedSOPClassUID != odd {
		t.Errorf("AffectedSOPClassUID = %q, want %q (NUL padding trimmed)", decoded.AffectedSOPClassUID, odd)
	}
}

func TestEncodeCommand_GroupLengthCorrect(t *testing.T) {
	msg := &types.Message{
		CommandField:        types.CEchoRQ,
		MessageID:            1,
		CommandDataSetType:   0x0101,
		AffectedSOPClassUID:  types.VerificationSOPClass,
	}
	encoded, err := EncodeCommand(msg)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	groupLength := uint32(encoded[8]) | uint32(encoded[9])<<8 | uint32(encoded[10])<<16 | uint32(encoded[11])<<24
	if int(groupLength) != len(encoded)-12 {
		t.Errorf("group length = %d, want %d", groupLength, len(encoded)-12)
	}
}
