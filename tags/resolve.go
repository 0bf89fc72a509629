package tags

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"

	dicomerrors "github.com/dicomnet/dicomnet/errors"
	"github.com/dicomnet/dicomnet/dcmdata"
)

// hexTagPattern matches both accepted hex forms: "GGGGEEEE" and
// "(GGGG,EEEE)" (original spec §4.F).
var hexTagPattern = regexp.MustCompile(`^\(?([0-9A-Fa-f]{4}),?([0-9A-Fa-f]{4})\)?$`)

// ParseTagName resolves an attribute name in any of the three accepted
// formats — standard keyword, GGGGEEEE hex, or (GGGG,EEEE) hex — to a
// tag.Tag. Keywords are resolved through the attribute dictionary
// bundled with the dataset library; this package never maintains its
// own keyword table.
func ParseTagName(name string) (tag.Tag, error) {
	trimmed := strings.TrimSpace(name)
	if m := hexTagPattern.FindStringSubmatch(trimmed); m != nil {
		group, errGroup := strconv.ParseUint(m[1], 16, 16)
		element, errElement := strconv.ParseUint(m[2], 16, 16)
		if errGroup == nil && errElement == nil {
			return tag.Tag{Group: uint16(group), Element: uint16(element)}, nil
		}
	}
	if info, err := tag.FindByName(trimmed); err == nil {
		return info.Tag, nil
	}
	return tag.Tag{}, dicomerrors.NewInvalidTagError(name)
}

// valueOf reads elem's value and squeezes single-element multiplicities
// down to a scalar, which is what callers expect for the common
// single-valued attributes (PatientName, StudyDate, ...). Multi-valued
// elements are returned as a []interface{}.
func valueOf(elem *dcmdata.Element) (interface{}, bool) {
	if elem == nil || elem.Value == nil {
		return nil, false
	}
	raw := elem.Value.GetValue()
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice {
		return raw, true
	}
	switch rv.Len() {
	case 0:
		return nil, false
	case 1:
		return rv.Index(0).Interface(), true
	default:
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
}

// find resolves name to a tag and looks it up in ds, returning the tag
// and the element's value; it does not classify scope. ok is false for an attribute that parses fine
// but is simply absent from the dataset (original spec §4.F: "missing
// attributes are silently skipped").
func find(ds dcmdata.Dataset, name string) (t tag.Tag, value interface{}, ok bool, err error) {
	t, err = ParseTagName(name)
	if err != nil {
		return tag.Tag{}, nil, false, err
	}
	elem, findErr := ds.FindElementByTag(t)
	if findErr != nil {
		return t, nil, false, nil
	}
	value, ok = valueOf(elem)
	return t, value, ok, nil
}
