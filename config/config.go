// Package config loads the YAML-driven configuration surface for the SCP
// and SCU entry points.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AbstractSyntaxMode controls which SOP classes an SCP accepts.
type AbstractSyntaxMode string

const (
	AbstractSyntaxAll        AbstractSyntaxMode = "all"
	AbstractSyntaxAllStorage AbstractSyntaxMode = "all_storage"
	AbstractSyntaxCustom     AbstractSyntaxMode = "custom"
)

// TransferSyntaxMode controls which transfer syntaxes an SCP accepts.
type TransferSyntaxMode string

const (
	TransferSyntaxAll               TransferSyntaxMode = "all"
	TransferSyntaxUncompressedOnly  TransferSyntaxMode = "uncompressed_only"
	TransferSyntaxCustom            TransferSyntaxMode = "custom"
)

// StorageBackendKind selects the storage.Backend implementation.
type StorageBackendKind string

const (
	StorageBackendFilesystem StorageBackendKind = "filesystem"
	StorageBackendObjectStore StorageBackendKind = "object_store"
)

// GroupingStrategy selects the shape produced by the tag extractor.
type GroupingStrategy string

const (
	GroupingByScope    GroupingStrategy = "by_scope"
	GroupingFlat       GroupingStrategy = "flat"
	GroupingStudyLevel GroupingStrategy = "study_level"
	GroupingCustom     GroupingStrategy = "custom"
)

// CustomTag binds a raw tag to a friendly alias used in extracted output.
type CustomTag struct {
	Tag   string `yaml:"tag"`
	Alias string `yaml:"alias"`
}

// ObjectStoreConfig configures the S3-compatible storage backend.
type ObjectStoreConfig struct {
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// SCPConfig is the full configuration surface for the storage-SCP entry
// point (original spec §6).
type SCPConfig struct {
	ListenPort         int                `yaml:"listen_port"`
	CallingAETitle     string             `yaml:"calling_ae_title"`
	MaxPDULength       uint32             `yaml:"max_pdu_length"`
	Strict             bool               `yaml:"strict"`
	Promiscuous        bool               `yaml:"promiscuous"`
	UncompressedOnly   bool               `yaml:"uncompressed_only"`
	AbstractSyntaxMode AbstractSyntaxMode `yaml:"abstract_syntax_mode"`
	AbstractSyntaxes   []string           `yaml:"abstract_syntaxes"`
	TransferSyntaxMode TransferSyntaxMode `yaml:"transfer_syntax_mode"`
	TransferSyntaxes   []string           `yaml:"transfer_syntaxes"`
	StorageBackend     StorageBackendKind `yaml:"storage_backend"`
	FilesystemRoot     string             `yaml:"filesystem_root"`
	ObjectStoreConfig  *ObjectStoreConfig `yaml:"object_store_config"`
	StoreWithFileMeta  bool               `yaml:"store_with_file_meta"`
	StudyTimeoutSeconds float64           `yaml:"study_timeout_seconds"`
	ExtractTags        []string           `yaml:"extract_tags"`
	ExtractCustomTags  []CustomTag        `yaml:"extract_custom_tags"`
	GroupingStrategy   GroupingStrategy   `yaml:"grouping_strategy"`
	IdleTimeoutSeconds float64            `yaml:"idle_timeout_seconds"`
}

// SCUConfig is the full configuration surface for the storage-SCU entry
// point (original spec §6).
type SCUConfig struct {
	Addr                  string `yaml:"addr"`
	CallingAETitle        string `yaml:"calling_ae_title"`
	CalledAETitle         string `yaml:"called_ae_title"`
	MessageID             uint16 `yaml:"message_id"`
	MaxPDULength          uint32 `yaml:"max_pdu_length"`
	FailFirst             bool   `yaml:"fail_first"`
	NeverTranscode        bool   `yaml:"never_transcode"`
	IgnoreSOPClass        bool   `yaml:"ignore_sop_class"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	KerberosServiceTicket string `yaml:"kerberos_service_ticket"`
	SAMLAssertion         string `yaml:"saml_assertion"`
	JWT                   string `yaml:"jwt"`
	Concurrency           int    `yaml:"concurrency"`
	ConnectTimeoutSeconds float64 `yaml:"connect_timeout_seconds"`

	StorageBackend    StorageBackendKind `yaml:"storage_backend"`
	FilesystemRoot    string             `yaml:"filesystem_root"`
	ObjectStoreConfig *ObjectStoreConfig `yaml:"object_store_config"`
}

// DefaultSCPConfig returns an SCPConfig populated with the defaults named
// in original spec §6.
func DefaultSCPConfig() SCPConfig {
	return SCPConfig{
		ListenPort:          11111,
		CallingAETitle:      "STORESCP",
		MaxPDULength:        16384,
		AbstractSyntaxMode:  AbstractSyntaxAllStorage,
		TransferSyntaxMode:  TransferSyntaxAll,
		StorageBackend:      StorageBackendFilesystem,
		FilesystemRoot:      "./data",
		StoreWithFileMeta:   true,
		StudyTimeoutSeconds: 30,
		GroupingStrategy:    GroupingByScope,
	}
}

// DefaultSCUConfig returns an SCUConfig populated with reasonable
// defaults; Addr and FilesystemRoot are left empty, and Addr must be
// supplied by the caller.
func DefaultSCUConfig() SCUConfig {
	return SCUConfig{
		CallingAETitle:        "STORESCU",
		CalledAETitle:         "ANY-SCP",
		MessageID:             1,
		MaxPDULength:          16384,
		Concurrency:           1,
		ConnectTimeoutSeconds: 10,
		StorageBackend:        StorageBackendFilesystem,
	}
}

// LoadSCPConfig reads and parses an SCP configuration file, applying
// defaults for any field left at its zero value in the file.
func LoadSCPConfig(path string) (SCPConfig, error) {
	cfg := DefaultSCPConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadSCUConfig reads and parses an SCU configuration file.
func LoadSCUConfig(path string) (SCUConfig, error) {
	cfg := DefaultSCUConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configuration combinations the pipeline cannot act on.
func (c SCPConfig) Validate() error {
	if c.MaxPDULength < 4096 || c.MaxPDULength > 131072 {
		return fmt.Errorf("config: max_pdu_length %d out of range [4096, 131072]", c.MaxPDULength)
	}
	if c.AbstractSyntaxMode == AbstractSyntaxCustom && len(c.AbstractSyntaxes) == 0 {
		return fmt.Errorf("config: abstract_syntax_mode=custom requires abstract_syntaxes")
	}
	if c.TransferSyntaxMode == TransferSyntaxCustom && len(c.TransferSyntaxes) == 0 {
		return fmt.Errorf("config: transfer_syntax_mode=custom requires transfer_syntaxes")
	}
	switch c.StorageBackend {
	case StorageBackendFilesystem:
		if c.FilesystemRoot == "" {
			return fmt.Errorf("config: storage_backend=filesystem requires filesystem_root")
		}
	case StorageBackendObjectStore:
		if c.ObjectStoreConfig == nil || c.ObjectStoreConfig.Bucket == "" {
			return fmt.Errorf("config: storage_backend=object_store requires object_store_config.bucket")
		}
	default:
		return fmt.Errorf("config: unknown storage_backend %q", c.StorageBackend)
	}
	return nil
}

// Validate rejects configuration combinations the SCU pipeline cannot
// act on; concurrency=0 is explicitly rejected per original spec §8
// boundary behaviors.
func (c SCUConfig) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("config: concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.MaxPDULength < 4096 || c.MaxPDULength > 131072 {
		return fmt.Errorf("config: max_pdu_length %d out of range [4096, 131072]", c.MaxPDULength)
	}
	switch c.StorageBackend {
	case StorageBackendFilesystem:
		// An empty FilesystemRoot means no backend; sources are then read
		// from local paths only.
	case StorageBackendObjectStore:
		if c.ObjectStoreConfig == nil || c.ObjectStoreConfig.Bucket == "" {
			return fmt.Errorf("config: storage_backend=object_store requires object_store_config.bucket")
		}
	default:
		return fmt.Errorf("config: unknown storage_backend %q", c.StorageBackend)
	}
	return nil
}

// StudyTimeout returns the configured study completion window as a
// time.Duration.
func (c SCPConfig) StudyTimeout() time.Duration {
	return time.Duration(c.StudyTimeoutSeconds * float64(time.Second))
}

// IdleTimeout returns the configured association idle timeout, or 0
// (unbounded) if not set.
func (c SCPConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds * float64(time.Second))
}

// ConnectTimeout returns the configured connect timeout as a
// time.Duration.
func (c SCUConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds * float64(time.Second))
}
