// Command storescu sends one or more DICOM files to a remote storage
// SCP: it inspects each file, negotiates presentation contexts covering
// every SOP class seen, and transfers them across a pool of concurrent
// associations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dicomnet/dicomnet/config"
	"github.com/dicomnet/dicomnet/pdu"
	"github.com/dicomnet/dicomnet/scu"
	"github.com/dicomnet/dicomnet/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (defaults applied if omitted)")
	flag.Parse()

	files := flag.Args()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(files) == 0 {
		logger.Error("no files given; pass one or more DICOM file paths")
		os.Exit(1)
	}

	cfg, err := loadSCUConfig(*configPath)
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := buildBackend(ctx, cfg.StorageBackend, cfg.FilesystemRoot, cfg.ObjectStoreConfig)
	if err != nil {
		logger.Error("initializing storage backend", "error", err)
		os.Exit(1)
	}

	sources := make([]scu.FileSource, len(files))
	for i, f := range files {
		sources[i] = scu.FileSource{Local: f}
	}

	transferCfg := scu.Config{
		Addr:           cfg.Addr,
		CallingAETitle: cfg.CallingAETitle,
		CalledAETitle:  cfg.CalledAETitle,
		MaxPDULength:   cfg.MaxPDULength,
		MessageIDStart: cfg.MessageID,
		FailFirst:      cfg.FailFirst,
		NeverTranscode: cfg.NeverTranscode,
		IgnoreSOPClass: cfg.IgnoreSOPClass,
		UserIdentity:   userIdentity(cfg),
		ConnectTimeout: cfg.ConnectTimeout(),
		Concurrency:    cfg.Concurrency,
		Backend:        backend,
		Observer:       &loggingObserver{logger: logger},
		Logger:         logger,
	}

	result, err := scu.Send(ctx, transferCfg, sources)
	if err != nil {
		logger.Error("storescu terminated unexpectedly", "error", err)
		os.Exit(1)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func loadSCUConfig(path string) (config.SCUConfig, error) {
	if path == "" {
		cfg := config.DefaultSCUConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadSCUConfig(path)
}

// buildBackend translates the storage_backend config section into a
// concrete storage.Backend (original spec §6 storage_backend options).
// A storescu invocation only needs this when sources are remote keys
// rather than local paths.
func buildBackend(ctx context.Context, kind config.StorageBackendKind, filesystemRoot string, objectStore *config.ObjectStoreConfig) (storage.Backend, error) {
	switch kind {
	case config.StorageBackendFilesystem:
		if filesystemRoot == "" {
			return nil, nil
		}
		return storage.NewFilesystemBackend(filesystemRoot)
	case config.StorageBackendObjectStore:
		if objectStore == nil {
			return nil, nil
		}
		return storage.NewS3Backend(ctx, storage.S3Config{
			Bucket:          objectStore.Bucket,
			AccessKeyID:     objectStore.AccessKey,
			SecretAccessKey: objectStore.SecretKey,
			Endpoint:        objectStore.Endpoint,
			Region:          objectStore.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage_backend %q", kind)
	}
}

// userIdentity translates the username/password/kerberos/saml/jwt
// config fields into the single populated identity sub-item they
// describe (original spec §4.B user-identity negotiation). At most one
// of these is expected to be set; jwt takes precedence since it is the
// extension beyond the four PS3.7 standard types.
func userIdentity(cfg config.SCUConfig) *pdu.UserIdentity {
	switch {
	case cfg.JWT != "":
		return &pdu.UserIdentity{Type: pdu.UserIdentityJWT, PrimaryField: cfg.JWT}
	case cfg.SAMLAssertion != "":
		return &pdu.UserIdentity{Type: pdu.UserIdentitySAML, PrimaryField: cfg.SAMLAssertion}
	case cfg.KerberosServiceTicket != "":
		return &pdu.UserIdentity{Type: pdu.UserIdentityKerberos, PrimaryField: cfg.KerberosServiceTicket}
	case cfg.Username != "" && cfg.Password != "":
		return &pdu.UserIdentity{Type: pdu.UserIdentityUsernamePassword, PrimaryField: cfg.Username, SecondaryField: cfg.Password}
	case cfg.Username != "":
		return &pdu.UserIdentity{Type: pdu.UserIdentityUsername, PrimaryField: cfg.Username}
	default:
		return nil
	}
}

// loggingObserver logs every SCU pipeline event (original spec §6 event
// surface).
type loggingObserver struct {
	logger *slog.Logger
}

func (o *loggingObserver) OnTransferStarted(totalFiles int) {
	o.logger.Info("transfer_started", "total", totalFiles)
}

func (o *loggingObserver) OnFileSending(file scu.PreparedFile) {
	o.logger.Info("file_sending", "source", file.Source.String(), "sop_instance_uid", file.SOPInstanceUID)
}

func (o *loggingObserver) OnFileSent(file scu.PreparedFile, transferSyntaxUID string, duration time.Duration) {
	o.logger.Info("file_sent",
		"source", file.Source.String(),
		"sop_instance_uid", file.SOPInstanceUID,
		"transfer_syntax_uid", transferSyntaxUID,
		"duration_ms", duration.Milliseconds())
}

func (o *loggingObserver) OnFileError(file scu.PreparedFile, err error) {
	o.logger.Error("file_error", "source", file.Source.String(), "error", err.Error())
}

func (o *loggingObserver) OnTransferCompleted(result scu.Result) {
	o.logger.Info("transfer_completed",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds())
}
