// Package dcmdata wraps github.com/suyashkumar/dicom to provide dataset
// parsing/encoding by transfer syntax and the handful of attribute
// lookups the rest of this module needs (UIDs, element values).
// The attribute dictionary, VR codec, and transfer-syntax registry
// themselves are the library's job, not this package's.
package dcmdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/dicomnet/dicomnet/types"
)

// Dataset is a parsed DICOM data set.
type Dataset = godicom.Dataset

// Element is a single parsed data element.
type Element = godicom.Element

// NormalizeUID trims the trailing NUL/space padding DICOM uses to keep
// UID values even-length on the wire.
func NormalizeUID(uid string) string {
	return strings.TrimRight(uid, "\x00 ")
}

// ParseWithTransferSyntax parses dataset bytes (no preamble, no file
// meta group — just the data elements as they travel inside a P-DATA-TF
// dataset fragment) using the transfer syntax bound to the presentation
// context that carried them.
//
// suyashkumar/dicom only parses full streams that carry their own file
// meta group, so a minimal synthetic one is prepended describing the
// requested transfer syntax; this mirrors what the SCU inspection stage
// does for bare on-disk datasets (see ParseBareDataset).
func ParseWithTransferSyntax(data []byte, transferSyntaxUID string) (Dataset, error) {
	synthetic, err := wrapWithSyntheticMeta(data, transferSyntaxUID)
	if err != nil {
		return Dataset{}, err
	}
	return parseFull(synthetic)
}

// ParsePart10 parses a full DICOM file: 128-byte preamble, "DICM" magic,
// file meta group, and dataset. The transfer syntax is read from the
// file meta group itself.
func ParsePart10(data []byte) (Dataset, error) {
	return parseFull(data)
}

// ParseBareDataset implements the SCU inspection fallback (original spec
// §4.E stage 1): try Explicit VR Little Endian first, then Implicit VR
// Little Endian. Returns the parsed dataset and the transfer syntax UID
// that succeeded.
func ParseBareDataset(data []byte) (Dataset, string, error) {
	for _, ts := range []string{types.ExplicitVRLittleEndian, types.ImplicitVRLittleEndian} {
		ds, err := ParseWithTransferSyntax(data, ts)
		if err == nil {
			return ds, ts, nil
		}
	}
	return Dataset{}, "", fmt.Errorf("dcmdata: bare dataset did not parse as Explicit VR LE or Implicit VR LE")
}

func parseFull(data []byte) (Dataset, error) {
	r := bytes.NewReader(data)
	ds, err := godicom.Parse(r, int64(len(data)), nil, godicom.SkipPixelData())
	if err != nil {
		return Dataset{}, fmt.Errorf("dcmdata: parse: %w", err)
	}
	return ds, nil
}

// EncodeWithTransferSyntax writes a bare dataset (no preamble, no file
// meta) in the given transfer syntax, suitable for a P-DATA-TF dataset
// fragment. It round-trips through a synthetic Part10 stream and strips
// the framing back off, since the library only emits full Part10 files.
func EncodeWithTransferSyntax(ds Dataset, transferSyntaxUID string) ([]byte, error) {
	full, err := EncodePart10(ds, transferSyntaxUID)
	if err != nil {
		return nil, err
	}
	return StripPart10Header(full)
}

// EncodePart10 writes a complete DICOM file: 128-byte preamble, "DICM",
// file meta group, and dataset encoded in transferSyntaxUID.
func EncodePart10(ds Dataset, transferSyntaxUID string) ([]byte, error) {
	meta, err := fileMetaElements(ds, transferSyntaxUID)
	if err != nil {
		return nil, err
	}
	out := Dataset{Elements: append(append([]*Element{}, meta...), ds.Elements...)}
	var buf bytes.Buffer
	if err := godicom.Write(&buf, out); err != nil {
		return nil, fmt.Errorf("dcmdata: write: %w", err)
	}
	return buf.Bytes(), nil
}

// FindString returns the first string value of tag t in ds, if present.
func FindString(ds Dataset, t tag.Tag) (string, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return "", false
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return NormalizeUID(v[0]), true
	default:
		return "", false
	}
}

// InstanceUIDs extracts the four identifiers the SCP pipeline needs from
// a received dataset: Study/Series/SOPInstance/SOPClass.
type InstanceUIDs struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	SOPClassUID       string
}

// ExtractInstanceUIDs reads the four identifying UIDs from a parsed
// dataset. Missing required UIDs are reported as an error.
func ExtractInstanceUIDs(ds Dataset) (InstanceUIDs, error) {
	var out InstanceUIDs
	var ok bool
	if out.StudyInstanceUID, ok = FindString(ds, tag.StudyInstanceUID); !ok {
		return out, fmt.Errorf("dcmdata: missing StudyInstanceUID")
	}
	if out.SeriesInstanceUID, ok = FindString(ds, tag.SeriesInstanceUID); !ok {
		return out, fmt.Errorf("dcmdata: missing SeriesInstanceUID")
	}
	if out.SOPInstanceUID, ok = FindString(ds, tag.SOPInstanceUID); !ok {
		return out, fmt.Errorf("dcmdata: missing SOPInstanceUID")
	}
	out.SOPClassUID, _ = FindString(ds, tag.SOPClassUID)
	return out, nil
}

// fileMetaElements builds a minimal group-0002 file meta element set
// (explicit VR LE, as the standard requires regardless of the dataset's
// own transfer syntax) describing transferSyntaxUID and, when present in
// ds, the SOP class/instance UIDs.
func fileMetaElements(ds Dataset, transferSyntaxUID string) ([]*Element, error) {
	sopClass, _ := FindString(ds, tag.SOPClassUID)
	sopInstance, _ := FindString(ds, tag.SOPInstanceUID)
	if sopClass == "" {
		sopClass = types.SecondaryCaptureImageStorage
	}

	elems := make([]*Element, 0, 6)
	add := func(t tag.Tag, v interface{}) error {
		e, err := godicom.NewElement(t, v)
		if err != nil {
			return fmt.Errorf("dcmdata: building file meta element %s: %w", t.String(), err)
		}
		elems = append(elems, e)
		return nil
	}

	if err := add(tag.FileMetaInformationVersion, []byte{0x00, 0x01}); err != nil {
		return nil, err
	}
	if err := add(tag.MediaStorageSOPClassUID, []string{sopClass}); err != nil {
		return nil, err
	}
	if sopInstance != "" {
		if err := add(tag.MediaStorageSOPInstanceUID, []string{sopInstance}); err != nil {
			return nil, err
		}
	}
	if err := add(tag.TransferSyntaxUID, []string{transferSyntaxUID}); err != nil {
		return nil, err
	}
	if err := add(tag.ImplementationClassUID, []string{"1.2.826.0.1.3680043.dicomnet.1"}); err != nil {
		return nil, err
	}
	return elems, nil
}

// wrapWithSyntheticMeta prepends a 128-byte zero preamble, the "DICM"
// magic, and a minimal file meta group to bare dataset bytes so the
// library's Part10-oriented parser can read it.
func wrapWithSyntheticMeta(data []byte, transferSyntaxUID string) ([]byte, error) {
	meta, err := fileMetaElements(Dataset{}, transferSyntaxUID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := godicom.Write(&buf, Dataset{Elements: meta}); err != nil {
		return nil, fmt.Errorf("dcmdata: writing synthetic file meta: %w", err)
	}
	if !HasPart10Header(buf.Bytes()) {
		return nil, fmt.Errorf("dcmdata: synthetic file meta has no DICM header")
	}
	metaBytes := buf.Bytes()[132:]

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	out.Write(metaBytes)
	out.Write(data)
	return out.Bytes(), nil
}

// HasPart10Header reports whether data carries the 128-byte preamble
// followed by the "DICM" magic at offset 128.
func HasPart10Header(data []byte) bool {
	return len(data) >= 132 && string(data[128:132]) == "DICM"
}

// StripPart10Header validates and removes the 128-byte preamble, "DICM"
// magic, and file meta group (group 0002), returning the dataset bytes
// that follow and leaving transfer-syntax interpretation to the caller.
//
// Grounded on the teacher's hand-rolled file-meta walk (dicom/part10.go):
// file meta is always Explicit VR Little Endian regardless of the
// dataset's own transfer syntax, so this walk never needs the dataset
// codec.
func StripPart10Header(data []byte) ([]byte, error) {
	if !HasPart10Header(data) {
		return nil, fmt.Errorf("dcmdata: missing DICM magic at offset 128")
	}
	offset := 132
	for offset+8 <= len(data) {
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		if group != 0x0002 {
			break
		}
		elem := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		vr := string(data[offset+4 : offset+6])
		var valueLen uint32
		var headerLen int
		if isLongVR(vr) {
			if offset+12 > len(data) {
				return nil, fmt.Errorf("dcmdata: truncated file meta element header")
			}
			valueLen = binary.LittleEndian.Uint32(data[offset+8 : offset+12])
			headerLen = 12
		} else {
			valueLen = uint32(binary.LittleEndian.Uint16(data[offset+6 : offset+8]))
			headerLen = 8
		}
		offset += headerLen + int(valueLen)
		_ = elem
		if offset > len(data) {
			return nil, fmt.Errorf("dcmdata: truncated file meta element value")
		}
	}
	return data[offset:], nil
}

func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OW", "OF", "OL", "OV", "SQ", "UC", "UR", "UT", "UN":
		return true
	default:
		return false
	}
}

// ReadFrom reads the full contents of r into memory; a thin helper kept
// here because both scp and scu read whole files/fragments rather than
// streaming them.
func ReadFrom(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
