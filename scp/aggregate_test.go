package scp

import (
	"sync"
	"testing"
	"time"
)

func TestRegistryRecordGroupsSeriesAndInstances(t *testing.T) {
	var mu sync.Mutex
	var completed []StudyAggregate
	registry := NewRegistry(20*time.Millisecond, func(s StudyAggregate) {
		mu.Lock()
		completed = append(completed, s)
		mu.Unlock()
	})

	studyTags := map[string]interface{}{"PatientName": "DOE^JOHN"}
	seriesTags := map[string]interface{}{"Modality": "CT"}

	registry.Record("study-1", studyTags, "series-1", seriesTags, Instance{SOPInstanceUID: "inst-1", SOPClassUID: "1.2.840.10008.5.1.4.1.1.2"})
	registry.Record("study-1", studyTags, "series-1", seriesTags, Instance{SOPInstanceUID: "inst-2", SOPClassUID: "1.2.840.10008.5.1.4.1.1.2"})
	registry.Record("study-1", studyTags, "series-2", seriesTags, Instance{SOPInstanceUID: "inst-3", SOPClassUID: "1.2.840.10008.5.1.4.1.1.2"})

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed study, got %d", len(completed))
	}
	study := completed[0]
	if study.StudyInstanceUID != "study-1" {
		t.Errorf("StudyInstanceUID = %q", study.StudyInstanceUID)
	}
	if len(study.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(study.Series))
	}
	total := 0
	for _, series := range study.Series {
		total += len(series.Instances)
	}
	if total != 3 {
		t.Errorf("expected 3 total instances, got %d", total)
	}
}

func TestRegistryDedupesInstanceBySOPInstanceUID(t *testing.T) {
	var mu sync.Mutex
	var completed []StudyAggregate
	registry := NewRegistry(20*time.Millisecond, func(s StudyAggregate) {
		mu.Lock()
		completed = append(completed, s)
		mu.Unlock()
	})

	registry.Record("study-1", nil, "series-1", nil, Instance{SOPInstanceUID: "inst-1"})
	registry.Record("study-1", nil, "series-1", nil, Instance{SOPInstanceUID: "inst-1"})

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed study, got %d", len(completed))
	}
	if len(completed[0].Series[0].Instances) != 1 {
		t.Errorf("expected duplicate instance to be deduped, got %d instances", len(completed[0].Series[0].Instances))
	}
}

func TestRegistryRestartsTimerOnActivity(t *testing.T) {
	var mu sync.Mutex
	var completed []StudyAggregate
	registry := NewRegistry(40*time.Millisecond, func(s StudyAggregate) {
		mu.Lock()
		completed = append(completed, s)
		mu.Unlock()
	})

	registry.Record("study-1", nil, "series-1", nil, Instance{SOPInstanceUID: "inst-1"})
	time.Sleep(25 * time.Millisecond)
	registry.Record("study-1", nil, "series-1", nil, Instance{SOPInstanceUID: "inst-2"})
	time.Sleep(25 * time.Millisecond)

	mu.Lock()
	stillPending := len(completed) == 0
	mu.Unlock()
	if !stillPending {
		t.Fatalf("study completed before timer should have restarted")
	}

	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 {
		t.Fatalf("expected study to complete after inactivity, got %d completions", len(completed))
	}
	if len(completed[0].Series[0].Instances) != 2 {
		t.Errorf("expected both instances recorded, got %d", len(completed[0].Series[0].Instances))
	}
}

func TestRegistryDropCancelsPendingWithoutCallback(t *testing.T) {
	var mu sync.Mutex
	var completed []StudyAggregate
	registry := NewRegistry(20*time.Millisecond, func(s StudyAggregate) {
		mu.Lock()
		completed = append(completed, s)
		mu.Unlock()
	})

	registry.Record("study-1", nil, "series-1", nil, Instance{SOPInstanceUID: "inst-1"})
	registry.Drop()

	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 0 {
		t.Errorf("expected Drop to suppress the completion callback, got %d completions", len(completed))
	}
}
