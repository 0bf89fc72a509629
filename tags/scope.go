// Package tags implements the attribute scope classification and the
// Extracted Tags output shapes of original spec §4.F: given a parsed
// dataset and a requested attribute list, project the requested
// attributes into one of the configured output shapes, grouped by where
// in the DICOM information hierarchy each attribute lives.
package tags

import "github.com/suyashkumar/dicom/pkg/tag"

// Scope classifies a (group, element) pair by where it lives in the
// DICOM Patient/Study/Series/Instance hierarchy (original spec §4.F).
type Scope int

const (
	ScopeInstance Scope = iota
	ScopePatient
	ScopeStudy
	ScopeSeries
	ScopeEquipment
)

// Classify returns t's scope per the table in original spec §4.F.
// Anything not explicitly listed there is Instance scope.
func Classify(t tag.Tag) Scope {
	switch t.Group {
	case 0x0010:
		return ScopePatient
	case 0x0008:
		switch t.Element {
		case 0x0020, 0x0030, 0x0050, 0x0090, 0x1030, 0x1048:
			return ScopeStudy
		case 0x0021, 0x0031, 0x0060, 0x0070, 0x0080, 0x0081, 0x1010, 0x103E, 0x1050, 0x1070:
			return ScopeSeries
		}
	case 0x0020:
		switch t.Element {
		case 0x000D, 0x0010:
			return ScopeStudy
		case 0x000E, 0x0011, 0x0060, 0x1002:
			return ScopeSeries
		}
	case 0x0032:
		return ScopeStudy
	case 0x0018:
		switch t.Element {
		case 0x0015, 0x1030:
			return ScopeSeries
		}
		if t.Element >= 0x1000 && t.Element <= 0x1FFF {
			return ScopeEquipment
		}
	}
	return ScopeInstance
}
