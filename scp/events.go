package scp

// Observer receives the SCP pipeline's lifecycle events (original spec
// §6 event surface: server_started, file_stored, study_completed,
// error). Implementations embed NopObserver to pick up default no-op
// handling for events they don't care about.
type Observer interface {
	OnServerStarted(addr string)
	OnFileStored(event FileStoredEvent)
	OnStudyCompleted(study StudyAggregate)
	OnError(err error)
}

// FileStoredEvent is delivered once per stored instance, synchronously
// before the C-STORE-RSP is sent (original spec §4.D).
type FileStoredEvent struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	SOPClassUID       string
	StorageKey        string
	Tags              map[string]interface{}
}

// NopObserver implements Observer with no-op methods.
type NopObserver struct{}

func (NopObserver) OnServerStarted(string)        {}
func (NopObserver) OnFileStored(FileStoredEvent)  {}
func (NopObserver) OnStudyCompleted(StudyAggregate) {}
func (NopObserver) OnError(error)                 {}
