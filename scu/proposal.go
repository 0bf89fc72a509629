package scu

import (
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/types"
)

// BuildProposals implements Stage 2 (original spec §4.E): the union of
// (sop_class_uid, file_transfer_syntax_uid) pairs across every inspected
// file. Unless neverTranscode suppresses them, Explicit VR Little Endian
// and Implicit VR Little Endian are added as safety nets for every SOP
// class seen, so an association still has somewhere to fall back to
// when a peer can't accept a file's native transfer syntax.
//
// pdu.PresentationContextProposal carries one abstract syntax per
// context ID with a list of transfer syntax choices, so pairs sharing a
// SOP class are folded into one proposal rather than one context per
// pair — this also keeps context-ID usage well under the 128-context
// wire limit (PS3.8 7.1.1.13 gives contexts odd IDs 1..255).
func BuildProposals(files []PreparedFile, neverTranscode bool) []pdu.PresentationContextProposal {
	var order []string
	seen := make(map[string]map[string]bool)
	transferSyntaxes := make(map[string][]string)

	add := func(sopClass, transferSyntax string) {
		if seen[sopClass] == nil {
			seen[sopClass] = make(map[string]bool)
			order = append(order, sopClass)
		}
		if seen[sopClass][transferSyntax] {
			return
		}
		seen[sopClass][transferSyntax] = true
		transferSyntaxes[sopClass] = append(transferSyntaxes[sopClass], transferSyntax)
	}

	for _, f := range files {
		add(f.SOPClassUID, f.TransferSyntaxUID)
		if !neverTranscode {
			add(f.SOPClassUID, types.ExplicitVRLittleEndian)
			add(f.SOPClassUID, types.ImplicitVRLittleEndian)
		}
	}

	proposals := make([]pdu.PresentationContextProposal, 0, len(order))
	var nextID byte = 1
	for _, sopClass := range order {
		proposals = append(proposals, pdu.PresentationContextProposal{
			ID:               nextID,
			AbstractSyntax:   sopClass,
			TransferSyntaxes: transferSyntaxes[sopClass],
		})
		nextID += 2
	}
	return proposals
}
