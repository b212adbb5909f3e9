package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/bundlegrid/internal/adapter"
	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/delivery"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/objectstore"
)

// ReportFileName is written into the output directory after every run.
const ReportFileName = "bundle-report.json"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Source
	Roots        []string
	FHIRVersion  string
	ArtifactType string
	Recursive    bool

	// Output
	OutputDir    string
	Encoding     string
	AddTimestamp bool
	Identifier   string

	// Options
	Workers             int
	IncludeTransitive   bool
	IncludeTestFixtures bool
	RefreshOnly         bool

	CompilerKind     string
	CompilerEndpoint string

	DeliveryEndpoint string
	DeliveryMode     string
	DeliveryHeaders  map[string]string

	// ObjectStore is used when its Endpoint is set.
	ObjectStore  objectstore.Config
	UploadPrefix string

	SocketIOURL       string
	SocketIONamespace string
	SocketIOInsecure  bool

	DatabaseURL string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("at least one source root is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if !slices.Contains(model.ArtifactTypes, cfg.ArtifactType) {
		return nil, fmt.Errorf("unsupported artifact type %q: must be one of %v", cfg.ArtifactType, model.ArtifactTypes)
	}
	if _, err := adapter.For(cfg.FHIRVersion); err != nil {
		return nil, err
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "json"
	}
	if _, err := codec.Default().ByName(cfg.Encoding); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if _, err := compiler.New(cfg.CompilerKind, cfg.CompilerEndpoint); err != nil {
		return nil, err
	}
	if cfg.DeliveryEndpoint != "" {
		if _, err := delivery.ParseMode(cfg.DeliveryMode); err != nil {
			return nil, err
		}
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
