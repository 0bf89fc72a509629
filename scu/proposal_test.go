package scu

import (
	"testing"

	"github.com/dicomnet/dicomnet/types"
)

func TestBuildProposalsGroupsBySOPClass(t *testing.T) {
	files := []PreparedFile{
		{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.JPEG2000Lossless},
		{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.ImplicitVRLittleEndian},
		{SOPClassUID: types.MRImageStorage, TransferSyntaxUID: types.ExplicitVRLittleEndian},
	}

	proposals := BuildProposals(files, false)
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals (one per SOP class), got %d", len(proposals))
	}

	byAbstractSyntax := make(map[string][]string)
	for _, p := range proposals {
		byAbstractSyntax[p.AbstractSyntax] = p.TransferSyntaxes
	}

	ctSyntaxes := byAbstractSyntax[types.CTImageStorage]
	if len(ctSyntaxes) != 3 {
		t.Fatalf("expected 3 unique transfer syntaxes for CT (native JPEG2000, native ImplicitVRLE, safety-net ExplicitVRLE), got %v", ctSyntaxes)
	}
	if ctSyntaxes[0] != types.JPEG2000Lossless {
		t.Errorf("expected first file's native transfer syntax first, got %v", ctSyntaxes[0])
	}

	mrSyntaxes := byAbstractSyntax[types.MRImageStorage]
	if len(mrSyntaxes) != 2 {
		t.Fatalf("expected 2 unique transfer syntaxes for MR (native == one safety net, dedup'd, + the other safety net), got %v", mrSyntaxes)
	}
}

func TestBuildProposalsNeverTranscodeSkipsSafetyNets(t *testing.T) {
	files := []PreparedFile{
		{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.JPEG2000Lossless},
	}
	proposals := BuildProposals(files, true)
	if len(proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(proposals))
	}
	if len(proposals[0].TransferSyntaxes) != 1 {
		t.Errorf("expected only the native transfer syntax with neverTranscode=true, got %v", proposals[0].TransferSyntaxes)
	}
}

func TestBuildProposalsAssignsDistinctOddContextIDs(t *testing.T) {
	files := []PreparedFile{
		{SOPClassUID: types.CTImageStorage, TransferSyntaxUID: types.ImplicitVRLittleEndian},
		{SOPClassUID: types.MRImageStorage, TransferSyntaxUID: types.ImplicitVRLittleEndian},
	}
	proposals := BuildProposals(files, true)
	seen := make(map[byte]bool)
	for _, p := range proposals {
		if p.ID%2 == 0 {
			t.Errorf("context ID %d is not odd", p.ID)
		}
		if seen[p.ID] {
			t.Errorf("context ID %d reused", p.ID)
		}
		seen[p.ID] = true
	}
}
