package scu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dicomnet/dicomnet/assoc"
	"github.com/dicomnet/dicomnet/dcmdata"
	"github.com/dicomnet/dicomnet/dimse"
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/storage"
	"github.com/dicomnet/dicomnet/types"
)

// Config controls one Send call (original spec §6 SCU-side options).
type Config struct {
	Addr                  string
	CallingAETitle        string
	CalledAETitle         string
	MaxPDULength          uint32
	MessageIDStart        uint16
	FailFirst             bool
	NeverTranscode        bool
	IgnoreSOPClass        bool
	UserIdentity          *pdu.UserIdentity
	ConnectTimeout        time.Duration
	IdleTimeout           time.Duration
	Concurrency           int
	Backend               storage.Backend
	Observer              Observer
	Logger                *slog.Logger
}

// Send implements the SCU pipeline end to end (original spec §4.E):
// inspect every source, build the shared proposal set, then run
// cfg.Concurrency workers, each on its own association, pulling from a
// shared work queue until it is drained.
func Send(ctx context.Context, cfg Config, sources []FileSource) (Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var prepared []PreparedFile
	for _, src := range sources {
		pf, err := Inspect(ctx, cfg.Backend, src)
		if err != nil {
			logger.Warn("scu: dropping file that failed inspection", "source", src.String(), "error", err)
			continue
		}
		prepared = append(prepared, pf)
	}

	start := time.Now()
	observer.OnTransferStarted(len(prepared))

	if len(prepared) == 0 {
		result := Result{Duration: time.Since(start)}
		observer.OnTransferCompleted(result)
		return result, nil
	}

	proposals := BuildProposals(prepared, cfg.NeverTranscode)
	deque := &workDeque{items: prepared}

	messageIDStart := cfg.MessageIDStart
	if messageIDStart == 0 {
		messageIDStart = 1
	}
	counter := &messageIDCounter{next: messageIDStart}

	var successful, failed int64
	var abortMu sync.Mutex
	var aborted bool
	abort := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, cfg, proposals, deque, counter, observer, logger, &abortMu, &aborted, abort, &successful, &failed)
		}()
	}
	wg.Wait()

	result := Result{
		Total:      len(prepared),
		Successful: int(atomic.LoadInt64(&successful)),
		Failed:     int(atomic.LoadInt64(&failed)),
		Duration:   time.Since(start),
	}
	observer.OnTransferCompleted(result)
	return result, nil
}

// workDeque is the shared queue workers pop from until empty
// (original spec §4.E Stage 3: "work-stealing: workers pop from a
// shared deque of PreparedFiles until empty").
type workDeque struct {
	mu    sync.Mutex
	items []PreparedFile
}

func (d *workDeque) pop() (PreparedFile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return PreparedFile{}, false
	}
	item := d.items[0]
	d.items = d.items[1:]
	return item, true
}

type messageIDCounter struct {
	mu   sync.Mutex
	next uint16
}

func (c *messageIDCounter) take() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	return id
}

func runWorker(
	ctx context.Context,
	cfg Config,
	proposals []pdu.PresentationContextProposal,
	deque *workDeque,
	counter *messageIDCounter,
	observer Observer,
	logger *slog.Logger,
	abortMu *sync.Mutex,
	aborted *bool,
	abort chan struct{},
	successful, failed *int64,
) {
	workerLogger := logger.With("worker_id", uuid.New().String())

	a, err := assoc.Connect(ctx, cfg.Addr, assoc.RequestorConfig{
		CallingAETitle:   cfg.CallingAETitle,
		CalledAETitle:    cfg.CalledAETitle,
		MaxPDULength:     cfg.MaxPDULength,
		PresentationCtxs: proposals,
		UserIdentity:     cfg.UserIdentity,
		ConnectTimeout:   cfg.ConnectTimeout,
		IdleTimeout:      cfg.IdleTimeout,
		Logger:           workerLogger,
	})
	if err != nil {
		workerLogger.Error("scu: worker could not establish association", "addr", cfg.Addr, "error", err)
		return
	}
	defer a.Release(ctx)

	for {
		select {
		case <-abort:
			return
		default:
		}

		file, ok := deque.pop()
		if !ok {
			return
		}

		observer.OnFileSending(file)
		sendStart := time.Now()
		status, transferSyntax, err := sendOne(ctx, a, cfg, file, counter)
		duration := time.Since(sendStart)

		if err != nil {
			atomic.AddInt64(failed, 1)
			observer.OnFileError(file, err)
			if cfg.FailFirst {
				signalAbort(abortMu, aborted, abort)
				_ = a.Abort(pdu.AbortSourceServiceUser, pdu.AbortReasonNotSpecified)
				return
			}
			continue
		}

		switch {
		case types.IsSuccess(status) || types.IsWarning(status) || types.IsPending(status):
			atomic.AddInt64(successful, 1)
			observer.OnFileSent(file, transferSyntax, duration)
		case types.IsCancel(status):
			atomic.AddInt64(failed, 1)
			observer.OnFileError(file, fmt.Errorf("scu: %s: operation cancelled by peer (status 0x%04x)", file.Source, status))
			if cfg.FailFirst {
				signalAbort(abortMu, aborted, abort)
				_ = a.Abort(pdu.AbortSourceServiceUser, pdu.AbortReasonNotSpecified)
				return
			}
		default:
			atomic.AddInt64(failed, 1)
			observer.OnFileError(file, fmt.Errorf("scu: %s: C-STORE failed with status 0x%04x", file.Source, status))
			if cfg.FailFirst {
				signalAbort(abortMu, aborted, abort)
				_ = a.Abort(pdu.AbortSourceServiceUser, pdu.AbortReasonNotSpecified)
				return
			}
		}
	}
}

func signalAbort(mu *sync.Mutex, aborted *bool, abort chan struct{}) {
	mu.Lock()
	defer mu.Unlock()
	if !*aborted {
		*aborted = true
		close(abort)
	}
}

// sendOne selects a presentation context, loads and (if needed)
// transcodes the file, sends the C-STORE-RQ, and awaits the correlated
// C-STORE-RSP.
func sendOne(ctx context.Context, a *assoc.Association, cfg Config, file PreparedFile, counter *messageIDCounter) (status uint16, transferSyntaxUsed string, err error) {
	pcID, transferSyntax, ok := selectContext(a, file, cfg.NeverTranscode, cfg.IgnoreSOPClass)
	if !ok {
		return 0, "", fmt.Errorf("no accepted presentation context for SOP class %s", file.SOPClassUID)
	}

	raw, err := loadBytes(ctx, cfg.Backend, file.Source)
	if err != nil {
		return 0, "", fmt.Errorf("loading %s: %w", file.Source, err)
	}

	var datasetBytes []byte
	switch {
	case file.HasPart10Header:
		ds, parseErr := dcmdata.ParsePart10(raw)
		if parseErr != nil {
			return 0, "", fmt.Errorf("parsing %s: %w", file.Source, parseErr)
		}
		if datasetBytes, err = dcmdata.EncodeWithTransferSyntax(ds, transferSyntax); err != nil {
			return 0, "", fmt.Errorf("encoding %s for transfer: %w", file.Source, err)
		}
	case transferSyntax == file.TransferSyntaxUID:
		datasetBytes = raw
	default:
		ds, _, parseErr := dcmdata.ParseBareDataset(raw)
		if parseErr != nil {
			return 0, "", fmt.Errorf("parsing %s: %w", file.Source, parseErr)
		}
		if datasetBytes, err = dcmdata.EncodeWithTransferSyntax(ds, transferSyntax); err != nil {
			return 0, "", fmt.Errorf("transcoding %s: %w", file.Source, err)
		}
	}

	msgID := counter.take()
	command := &types.Message{
		CommandField:           types.CStoreRQ,
		MessageID:              msgID,
		AffectedSOPClassUID:    file.SOPClassUID,
		Priority:               0,
		CommandDataSetType:     0x0000,
		AffectedSOPInstanceUID: file.SOPInstanceUID,
	}
	commandBytes, err := dimse.EncodeCommand(command)
	if err != nil {
		return 0, "", fmt.Errorf("encoding command for %s: %w", file.Source, err)
	}

	if err := a.SendMessage(pcID, commandBytes, datasetBytes); err != nil {
		return 0, "", fmt.Errorf("sending %s: %w", file.Source, err)
	}

	resp, err := awaitResponse(ctx, a, msgID)
	if err != nil {
		return 0, "", fmt.Errorf("awaiting response for %s: %w", file.Source, err)
	}
	return resp.Status, transferSyntax, nil
}

func awaitResponse(ctx context.Context, a *assoc.Association, msgID uint16) (*types.Message, error) {
	var command []byte
	for {
		pduIn, err := a.ReadPDU(ctx)
		if err != nil {
			return nil, err
		}
		if pduIn.Type != pdu.TypePDataTF {
			return nil, fmt.Errorf("unexpected PDU type 0x%02x awaiting C-STORE-RSP", pduIn.Type)
		}
		pdvs, err := pdu.DecodePDataTF(pduIn.Data)
		if err != nil {
			return nil, err
		}
		for _, pdv := range pdvs {
			if !pdv.IsCommand() {
				continue
			}
			command = append(command, pdv.Data...)
			if !pdv.IsLast() {
				continue
			}
			msg, err := dimse.DecodeCommand(command)
			if err != nil {
				return nil, err
			}
			if msg.MessageIDBeingRespondedTo != msgID {
				return nil, fmt.Errorf("response correlates to message id %d, expected %d", msg.MessageIDBeingRespondedTo, msgID)
			}
			return msg, nil
		}
	}
}

// selectContext implements the Stage 3 priority rules (original spec
// §4.E): (a) exact transfer-syntax match, (b) any accepted uncompressed
// PC for the SOP class (plain VR exchange, no real transcode), (c) any
// accepted uncompressed PC for the SOP class when transcoding is
// permitted, (d) — an original-spec-silent extension for
// ignore_sop_class — any accepted uncompressed PC at all, used as a last
// resort when the caller has explicitly opted into ignoring SOP class
// boundaries during context selection.
func selectContext(a *assoc.Association, file PreparedFile, neverTranscode, ignoreSOPClass bool) (byte, string, bool) {
	contexts := a.PresentationContexts()

	for id, pc := range contexts {
		if pc.Result == pdu.ResultAcceptance && pc.AbstractSyntax == file.SOPClassUID && pc.TransferSyntax == file.TransferSyntaxUID {
			return id, pc.TransferSyntax, true
		}
	}

	if isUncompressed(file.TransferSyntaxUID) {
		for id, pc := range contexts {
			if pc.Result == pdu.ResultAcceptance && pc.AbstractSyntax == file.SOPClassUID && isUncompressed(pc.TransferSyntax) {
				return id, pc.TransferSyntax, true
			}
		}
	}

	if !neverTranscode {
		for id, pc := range contexts {
			if pc.Result == pdu.ResultAcceptance && pc.AbstractSyntax == file.SOPClassUID && isUncompressed(pc.TransferSyntax) {
				return id, pc.TransferSyntax, true
			}
		}
	}

	if ignoreSOPClass {
		for id, pc := range contexts {
			if pc.Result == pdu.ResultAcceptance && isUncompressed(pc.TransferSyntax) {
				return id, pc.TransferSyntax, true
			}
		}
	}

	return 0, "", false
}

func isUncompressed(transferSyntaxUID string) bool {
	return !types.IsCompressed(transferSyntaxUID)
}
