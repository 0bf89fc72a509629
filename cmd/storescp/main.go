// Command storescp runs the DICOM storage SCP: it accepts associations,
// negotiates presentation contexts per the configured policy, and
// writes every stored instance to the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/dicomnet/dicomnet/assoc"
	"github.com/dicomnet/dicomnet/config"
	"github.com/dicomnet/dicomnet/scp"
	"github.com/dicomnet/dicomnet/storage"
	"github.com/dicomnet/dicomnet/tags"
	"github.com/dicomnet/dicomnet/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (defaults applied if omitted)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadSCPConfig(*configPath)
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	backend, err := buildBackend(context.Background(), cfg.StorageBackend, cfg.FilesystemRoot, cfg.ObjectStoreConfig)
	if err != nil {
		logger.Error("initializing storage backend", "error", err)
		os.Exit(1)
	}

	strategy := groupingStrategy(cfg.GroupingStrategy)
	registry := scp.NewRegistry(cfg.StudyTimeout(), func(study scp.StudyAggregate) {
		logger.Info("study completed", "study_instance_uid", study.StudyInstanceUID, "series_count", len(study.Series))
	})

	pipeline := &scp.Pipeline{
		Backend:           backend,
		StoreWithFileMeta: cfg.StoreWithFileMeta,
		ExtractTags:       cfg.ExtractTags,
		ExtractCustomTags: customTags(cfg.ExtractCustomTags),
		Strategy:          strategy,
		Registry:          registry,
		Observer:          &loggingObserver{logger: logger},
		Logger:            logger,
	}

	server := &scp.Server{
		Addr: fmt.Sprintf(":%d", cfg.ListenPort),
		Acceptor: assoc.AcceptorConfig{
			AETitle:                  cfg.CallingAETitle,
			MaxPDULength:             cfg.MaxPDULength,
			AcceptAbstractSyntax:     acceptAbstractSyntax(cfg),
			TransferSyntaxPreference: transferSyntaxPreference(cfg),
			IdleTimeout:              cfg.IdleTimeout(),
			Logger:                   logger,
		},
		Pipeline: pipeline,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("storescp terminated unexpectedly", "error", err)
		registry.Drop()
		os.Exit(1)
	}
	registry.Drop()
	logger.Info("storescp shutdown complete")
}

func loadSCPConfig(path string) (config.SCPConfig, error) {
	if path == "" {
		cfg := config.DefaultSCPConfig()
		return cfg, cfg.Validate()
	}
	return config.LoadSCPConfig(path)
}

// buildBackend translates the storage_backend config section into a
// concrete storage.Backend (original spec §6 storage_backend options).
func buildBackend(ctx context.Context, kind config.StorageBackendKind, filesystemRoot string, objectStore *config.ObjectStoreConfig) (storage.Backend, error) {
	switch kind {
	case config.StorageBackendFilesystem:
		return storage.NewFilesystemBackend(filesystemRoot)
	case config.StorageBackendObjectStore:
		if objectStore == nil {
			return nil, fmt.Errorf("storage_backend=object_store requires object_store_config")
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

// acceptAbstractSyntax translates abstract_syntax_mode/abstract_syntaxes
// into the predicate assoc.Accept negotiates presentation contexts
// against (original spec §6).
func acceptAbstractSyntax(cfg config.SCPConfig) func(string) bool {
	if cfg.Promiscuous {
		return func(string) bool { return true }
	}
	switch cfg.AbstractSyntaxMode {
	case config.AbstractSyntaxAll:
		return func(string) bool { return true }
	case config.AbstractSyntaxCustom:
		allowed := make(map[string]bool, len(cfg.AbstractSyntaxes))
		for _, name := range cfg.AbstractSyntaxes {
			allowed[types.ResolveSOPClassName(name)] = true
		}
		return func(uid string) bool { return allowed[uid] }
	default: // config.AbstractSyntaxAllStorage
		return types.IsStorageSOPClass
	}
}

// transferSyntaxPreference translates transfer_syntax_mode/
// transfer_syntaxes/uncompressed_only into an ordered preference list
// (original spec §6).
func transferSyntaxPreference(cfg config.SCPConfig) []string {
	if cfg.UncompressedOnly {
		return types.UncompressedTransferSyntaxes()
	}
	switch cfg.TransferSyntaxMode {
	case config.TransferSyntaxUncompressedOnly:
		return types.UncompressedTransferSyntaxes()
	case config.TransferSyntaxCustom:
		return cfg.TransferSyntaxes
	default: // config.TransferSyntaxAll
		return types.AllTransferSyntaxes()
	}
}

func groupingStrategy(g config.GroupingStrategy) tags.Strategy {
	switch g {
	case config.GroupingFlat:
		return tags.StrategyFlat
	case config.GroupingStudyLevel:
		return tags.StrategyStudyLevel
	case config.GroupingCustom:
		return tags.StrategyCustom
	default: // config.GroupingByScope
		return tags.StrategyByScope
	}
}

func customTags(in []config.CustomTag) []tags.CustomTag {
	if len(in) == 0 {
		return nil
	}
	out := make([]tags.CustomTag, len(in))
	for i, c := range in {
		out[i] = tags.CustomTag{Tag: c.Tag, Alias: c.Alias}
	}
	return out
}

// loggingObserver logs every SCP pipeline event (original spec §6 event
// surface). Only the server_started line carries an id of its own (a
// fresh run_id); the per-association ids come from scp.Server's logger.
type loggingObserver struct {
	logger *slog.Logger
}

func (o *loggingObserver) OnServerStarted(addr string) {
	o.logger.Info("server_started", "addr", addr, "run_id", uuid.New().String())
}

func (o *loggingObserver) OnFileStored(event scp.FileStoredEvent) {
	o.logger.Info("file_stored",
		"study_instance_uid", event.StudyInstanceUID,
		"series_instance_uid", event.SeriesInstanceUID,
		"sop_instance_uid", event.SOPInstanceUID,
		"sop_class_uid", event.SOPClassUID,
		"storage_key", event.StorageKey)
}

func (o *loggingObserver) OnStudyCompleted(study scp.StudyAggregate) {
	o.logger.Info("study_completed", "study_instance_uid", study.StudyInstanceUID, "series_count", len(study.Series))
}

func (o *loggingObserver) OnError(err error) {
	o.logger.Error("error", "message", err.Error())
}
