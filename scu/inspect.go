// Package scu implements the DICOM storage SCU pipeline: file
// inspection, presentation-context proposal construction, and an
// N-worker concurrent transfer stage (original spec §4.E).
package scu

import (
	"context"
	"fmt"
	"os"

	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/dicomnet/dicomnet/dcmdata"
	"github.com/dicomnet/dicomnet/storage"
)

// FileSource names one input file to send. Exactly one of Local or
// Remote is set: a local filesystem path, or a storage backend key
// (original spec §4.E: "a list of file sources — local paths or remote
// keys").
type FileSource struct {
	Local  string
	Remote string
}

func (s FileSource) String() string {
	if s.Local != "" {
		return s.Local
	}
	return s.Remote
}

// PreparedFile is the result of Stage 1 inspection: enough information
// to build the proposal set and, later, to select a presentation
// context and load the file for transfer.
type PreparedFile struct {
	Source            FileSource
	SOPClassUID       string
	SOPInstanceUID    string
	TransferSyntaxUID string
	HasPart10Header   bool
}

func loadBytes(ctx context.Context, backend storage.Backend, src FileSource) ([]byte, error) {
	if src.Local != "" {
		return os.ReadFile(src.Local)
	}
	if backend == nil {
		return nil, fmt.Errorf("scu: remote source %q requires a storage backend", src.Remote)
	}
	return backend.Get(ctx, src.Remote)
}

// Inspect implements Stage 1 (original spec §4.E): auto-detect full
// Part10 vs bare-dataset form and extract the identifying UIDs needed to
// build the proposal set. A file whose transfer syntax cannot be parsed
// at all (neither Part10 file meta, nor Explicit/Implicit VR LE as a
// bare dataset) is returned as an error for the caller to log and drop.
func Inspect(ctx context.Context, backend storage.Backend, src FileSource) (PreparedFile, error) {
	data, err := loadBytes(ctx, backend, src)
	if err != nil {
		return PreparedFile{}, fmt.Errorf("scu: reading %s: %w", src, err)
	}

	hasHeader := dcmdata.HasPart10Header(data)

	var ds dcmdata.Dataset
	var transferSyntax string
	if hasHeader {
		ds, err = dcmdata.ParsePart10(data)
		if err != nil {
			return PreparedFile{}, fmt.Errorf("scu: parsing %s: %w", src, err)
		}
		ts, ok := dcmdata.FindString(ds, tag.TransferSyntaxUID)
		if !ok {
			return PreparedFile{}, fmt.Errorf("scu: %s: file meta is missing TransferSyntaxUID", src)
		}
		transferSyntax = ts
	} else {
		ds, transferSyntax, err = dcmdata.ParseBareDataset(data)
		if err != nil {
			return PreparedFile{}, fmt.Errorf("scu: %s: %w", src, err)
		}
	}

	uids, err := dcmdata.ExtractInstanceUIDs(ds)
	if err != nil {
		return PreparedFile{}, fmt.Errorf("scu: extracting identifiers from %s: %w", src, err)
	}

	return PreparedFile{
		Source:            src,
		SOPClassUID:       uids.SOPClassUID,
		SOPInstanceUID:    uids.SOPInstanceUID,
		TransferSyntaxUID: transferSyntax,
		HasPart10Header:   hasHeader,
	}, nil
}
