package scu

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/dicomnet/dicomnet/dcmdata"
	"github.com/dicomnet/dicomnet/types"
)

func mustElem(t *testing.T, tg tag.Tag, value string) *godicom.Element {
	t.Helper()
	elem, err := godicom.NewElement(tg, []string{value})
	if err != nil {
		t.Fatalf("building element for %v: %v", tg, err)
	}
	return elem
}

func testDataset(t *testing.T) dcmdata.Dataset {
	t.Helper()
	return dcmdata.Dataset{
		Elements: []*godicom.Element{
			mustElem(t, tag.SOPClassUID, types.CTImageStorage),
			mustElem(t, tag.SOPInstanceUID, "1.2.3.4.5.1.1"),
			mustElem(t, tag.StudyInstanceUID, "1.2.3.4.5"),
			mustElem(t, tag.SeriesInstanceUID, "1.2.3.4.5.1"),
		},
	}
}

func TestInspectBareDataset(t *testing.T) {
	ds := testDataset(t)
	data, err := dcmdata.EncodeWithTransferSyntax(ds, types.ImplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodeWithTransferSyntax: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bare.dcm")
	writeFile(t, path, data)

	pf, err := Inspect(context.Background(), nil, FileSource{Local: path})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if pf.HasPart10Header {
		t.Error("expected a bare dataset to report HasPart10Header=false")
	}
	if pf.SOPClassUID != types.CTImageStorage {
		t.Errorf("SOPClassUID = %q, want %q", pf.SOPClassUID, types.CTImageStorage)
	}
	if pf.TransferSyntaxUID != types.ImplicitVRLittleEndian {
		t.Errorf("TransferSyntaxUID = %q, want %q", pf.TransferSyntaxUID, types.ImplicitVRLittleEndian)
	}
}

func TestInspectPart10File(t *testing.T) {
	ds := testDataset(t)
	data, err := dcmdata.EncodePart10(ds, types.ExplicitVRLittleEndian)
	if err != nil {
		t.Fatalf("EncodePart10: %v", err)
	}

	path := filepath.Join(t.TempDir(), "part10.dcm")
	writeFile(t, path, data)

	pf, err := Inspect(context.Background(), nil, FileSource{Local: path})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !pf.HasPart10Header {
		t.Error("expected a Part10 file to report HasPart10Header=true")
	}
	if pf.TransferSyntaxUID != types.ExplicitVRLittleEndian {
		t.Errorf("TransferSyntaxUID = %q, want %q", pf.TransferSyntaxUID, types.ExplicitVRLittleEndian)
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
