package tags

import (
	"testing"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func mustElement(t *testing.T, tg tag.Tag, values interface{}) *godicom.Element {
	t.Helper()
	var elem *godicom.Element
	var err error
	switch v := values.(type) {
	case []string:
		elem, err = godicom.NewElement(tg, v)
	default:
		t.Fatalf("unsupported value type %T", values)
	}
	if err != nil {
		t.Fatalf("building element for %v: %v", tg, err)
	}
	return elem
}

func sampleDataset(t *testing.T) godicom.Dataset {
	t.Helper()
	return godicom.Dataset{
		Elements: []*godicom.Element{
			mustElement(t, tag.PatientName, []string{"DOE^JOHN"}),
			mustElement(t, tag.StudyInstanceUID, []string{"1.2.3.4.5"}),
			mustElement(t, tag.SeriesInstanceUID, []string{"1.2.3.4.5.1"}),
			mustElement(t, tag.SOPInstanceUID, []string{"1.2.3.4.5.1.1"}),
			mustElement(t, tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.2"}),
			mustElement(t, tag.Modality, []string{"CT"}),
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		t    tag.Tag
		want Scope
	}{
		{"patient name", tag.PatientName, ScopePatient},
		{"study instance uid", tag.StudyInstanceUID, ScopeStudy},
		{"series instance uid", tag.SeriesInstanceUID, ScopeSeries},
		{"accession number", tag.Tag{Group: 0x0008, Element: 0x0050}, ScopeStudy},
		{"modality", tag.Tag{Group: 0x0008, Element: 0x0060}, ScopeSeries},
		{"device serial number in equipment range", tag.Tag{Group: 0x0018, Element: 0x1000}, ScopeEquipment},
		{"sop instance uid defaults to instance", tag.SOPInstanceUID, ScopeInstance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.t); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestParseTagName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    tag.Tag
		wantErr bool
	}{
		{"keyword", "PatientName", tag.PatientName, false},
		{"bare hex", "00100010", tag.PatientName, false},
		{"parenthesized hex", "(0010,0010)", tag.PatientName, false},
		{"unknown keyword", "NotARealAttribute", tag.Tag{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTagName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTagName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseTagName(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveScopedAndShape(t *testing.T) {
	ds := sampleDataset(t)
	requested := []string{"PatientName", "StudyInstanceUID", "Modality", "SOPInstanceUID"}
	custom := []CustomTag{{Tag: "SOPClassUID", Alias: "sop_class"}}

	scoped, err := ResolveScoped(ds, requested, custom)
	if err != nil {
		t.Fatalf("ResolveScoped: %v", err)
	}
	if scoped.Patient["PatientName"] != "DOE^JOHN" {
		t.Errorf("Patient[PatientName] = %v, want DOE^JOHN", scoped.Patient["PatientName"])
	}
	if scoped.Study["StudyInstanceUID"] != "1.2.3.4.5" {
		t.Errorf("Study[StudyInstanceUID] = %v", scoped.Study["StudyInstanceUID"])
	}
	if scoped.Series["Modality"] != "CT" {
		t.Errorf("Series[Modality] = %v", scoped.Series["Modality"])
	}
	if scoped.Instance["SOPInstanceUID"] != "1.2.3.4.5.1.1" {
		t.Errorf("Instance[SOPInstanceUID] = %v", scoped.Instance["SOPInstanceUID"])
	}
	if scoped.Custom["sop_class"] != "1.2.840.10008.5.1.4.1.1.2" {
		t.Errorf("Custom[sop_class] = %v", scoped.Custom["sop_class"])
	}

	flat, ok := Shape(scoped, StrategyFlat).(Flat)
	if !ok {
		t.Fatalf("Shape(StrategyFlat) returned %T, want Flat", Shape(scoped, StrategyFlat))
	}
	if len(flat) != 5 {
		t.Errorf("len(flat) = %d, want 5", len(flat))
	}

	studyLevel, ok := Shape(scoped, StrategyStudyLevel).(StudyLevelTags)
	if !ok {
		t.Fatalf("Shape(StrategyStudyLevel) returned %T", Shape(scoped, StrategyStudyLevel))
	}
	if studyLevel.StudyLevel["PatientName"] != "DOE^JOHN" {
		t.Errorf("StudyLevel[PatientName] missing")
	}
	if studyLevel.InstanceLevel["Modality"] != "CT" {
		t.Errorf("InstanceLevel[Modality] missing")
	}
}

func TestResolveScopedSkipsAbsentAttributes(t *testing.T) {
	ds := sampleDataset(t)
	scoped, err := ResolveScoped(ds, []string{"PatientBirthDate"}, nil)
	if err != nil {
		t.Fatalf("ResolveScoped: %v", err)
	}
	if scoped.Patient != nil {
		t.Errorf("expected no Patient map for an absent attribute, got %v", scoped.Patient)
	}
}

func TestResolveScopedMalformedTagErrors(t *testing.T) {
	ds := sampleDataset(t)
	if _, err := ResolveScoped(ds, []string{"NotARealAttribute"}, nil); err == nil {
		t.Error("expected error for malformed tag name, got nil")
	}
}

func TestProject(t *testing.T) {
	ds := sampleDataset(t)
	scoped, err := ResolveScoped(ds, []string{"PatientName", "StudyInstanceUID", "Modality", "SOPInstanceUID"}, nil)
	if err != nil {
		t.Fatalf("ResolveScoped: %v", err)
	}

	study, series, instance := Project(scoped, StrategyByScope)
	if study["PatientName"] != "DOE^JOHN" || study["StudyInstanceUID"] != "1.2.3.4.5" {
		t.Errorf("by_scope study projection = %v", study)
	}
	if series["Modality"] != "CT" {
		t.Errorf("by_scope series projection = %v", series)
	}
	if instance["SOPInstanceUID"] != "1.2.3.4.5.1.1" {
		t.Errorf("by_scope instance projection = %v", instance)
	}

	study, series, instance = Project(scoped, StrategyStudyLevel)
	if series != nil {
		t.Errorf("study_level projection should not populate series, got %v", series)
	}
	if instance["Modality"] != "CT" {
		t.Errorf("study_level instance projection = %v", instance)
	}

	study, series, instance = Project(scoped, StrategyFlat)
	if series != nil || study != nil {
		t.Errorf("flat projection should only populate instance, got study=%v series=%v", study, series)
	}
	if instance["PatientName"] != "DOE^JOHN" {
		t.Errorf("flat instance projection missing PatientName: %v", instance)
	}
}
