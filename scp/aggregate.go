package scp

import (
	"sync"
	"time"
)

// Instance is one stored SOP instance recorded under a Series.
type Instance struct {
	SOPInstanceUID string
	SOPClassUID    string
	StorageKey     string
	Tags           map[string]interface{}
}

// Series groups Instances sharing a Series Instance UID within a study.
type Series struct {
	SeriesInstanceUID string
	Tags              map[string]interface{}
	Instances         []Instance
}

// StudyAggregate is the process-wide per-study record original spec
// §4.D builds up as C-STORE-RQs arrive: one entry per Study Instance
// UID, holding its series/instance tree and the tag projection the
// configured grouping strategy assigned at the study level.
type StudyAggregate struct {
	StudyInstanceUID string
	Tags             map[string]interface{}
	Series           []Series
}

type studyEntry struct {
	aggregate   *StudyAggregate
	seriesIndex map[string]int
	instances   map[string]bool
	timer       *time.Timer
}

// Registry holds every in-flight StudyAggregate, guarded by a single
// mutex (original spec §5: "mutations are serialized by a per-map
// exclusion"). Record arms or restarts a per-study completion timer on
// every call; when the timer fires with no intervening instance, the
// aggregate is removed and onCompleted is invoked outside the lock.
type Registry struct {
	mu          sync.Mutex
	entries     map[string]*studyEntry
	timeout     time.Duration
	onCompleted func(StudyAggregate)
}

// NewRegistry creates a Registry whose studies complete after timeout of
// inactivity.
func NewRegistry(timeout time.Duration, onCompleted func(StudyAggregate)) *Registry {
	return &Registry{
		entries:     make(map[string]*studyEntry),
		timeout:     timeout,
		onCompleted: onCompleted,
	}
}

// Record attaches one stored instance to its study and series, creating
// either as needed, and restarts the study's completion timer.
// Duplicate sopInstanceUIDs within the same study are not re-appended,
// but still restart the timer.
func (r *Registry) Record(studyUID string, studyTags map[string]interface{}, seriesUID string, seriesTags map[string]interface{}, inst Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[studyUID]
	if !ok {
		entry = &studyEntry{
			aggregate:   &StudyAggregate{StudyInstanceUID: studyUID, Tags: studyTags},
			seriesIndex: make(map[string]int),
			instances:   make(map[string]bool),
		}
		r.entries[studyUID] = entry
	}

	idx, ok := entry.seriesIndex[seriesUID]
	if !ok {
		entry.aggregate.Series = append(entry.aggregate.Series, Series{SeriesInstanceUID: seriesUID, Tags: seriesTags})
		idx = len(entry.aggregate.Series) - 1
		entry.seriesIndex[seriesUID] = idx
	}

	if !entry.instances[inst.SOPInstanceUID] {
		entry.instances[inst.SOPInstanceUID] = true
		entry.aggregate.Series[idx].Instances = append(entry.aggregate.Series[idx].Instances, inst)
	}

	r.arm(studyUID, entry)
}

func (r *Registry) arm(studyUID string, entry *studyEntry) {
	if entry.timer == nil {
		entry.timer = time.AfterFunc(r.timeout, func() { r.complete(studyUID) })
		return
	}
	entry.timer.Stop()
	entry.timer.Reset(r.timeout)
}

func (r *Registry) complete(studyUID string) {
	r.mu.Lock()
	entry, ok := r.entries[studyUID]
	if ok {
		delete(r.entries, studyUID)
	}
	r.mu.Unlock()

	if ok && r.onCompleted != nil {
		r.onCompleted(*entry.aggregate)
	}
}

// Drop removes every pending aggregate without invoking onCompleted,
// used when the SCP process shuts down (original spec §5: "cancellation
// drops pending aggregates without firing their callbacks").
func (r *Registry) Drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	r.entries = make(map[string]*studyEntry)
}
