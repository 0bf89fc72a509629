package scu

import "time"

// Observer receives the SCU pipeline's lifecycle events (original spec
// §6 event surface: transfer_started, file_sending, file_sent,
// file_error, transfer_completed).
type Observer interface {
	OnTransferStarted(totalFiles int)
	OnFileSending(file PreparedFile)
	OnFileSent(file PreparedFile, transferSyntaxUID string, duration time.Duration)
	OnFileError(file PreparedFile, err error)
	OnTransferCompleted(result Result)
}

// Result summarizes one Send call, delivered with transfer_completed.
type Result struct {
	Total      int
	Successful int
	Failed     int
	Duration   time.Duration
}

// NopObserver implements Observer with no-op methods.
type NopObserver struct{}

func (NopObserver) OnTransferStarted(int)                              {}
func (NopObserver) OnFileSending(PreparedFile)                         {}
func (NopObserver) OnFileSent(PreparedFile, string, time.Duration)      {}
func (NopObserver) OnFileError(PreparedFile, error)                    {}
func (NopObserver) OnTransferCompleted(Result)                         {}
