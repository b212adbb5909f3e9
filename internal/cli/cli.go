package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/app"
	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flags holds the raw flag values before they are merged with the run file.
type flags struct {
	configPath string
	cfg        app.Config
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		f      flags
		parsed *app.Config
		ran    bool
	)
	cmd := &cobra.Command{
		Use:   "bundlegrid [flags] [SOURCE_ROOT...]",
		Short: "Bundle clinical knowledge artifacts with their dependency closure.",
		Long: `bundlegrid - resolves every Measure, PlanDefinition or Questionnaire under the
source roots, compiles its logic libraries and writes one transaction bundle
per artifact.

Source roots follow the <root>/<type>/ layout (library/, measure/, valueset/ ...).
A run file (--config) can hold any of the settings below; flags given on the
command line override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			ran = true
			cfg, err := f.resolve(cmd.Context(), cmd.Flags(), positional)
			if err != nil {
				return err
			}
			if len(cfg.Roots) == 0 {
				slog.Debug("No source root provided, printing usage and exiting.")
				_ = cmd.Usage()
				return nil
			}
			parsed, err = app.NewConfig(*cfg)
			return err
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)
	f.register(cmd.Flags())

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran || parsed == nil {
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "roots", parsed.Roots, "output", parsed.OutputDir)
	return parsed, false, nil
}

func (f *flags) register(fs *pflag.FlagSet) {
	c := &f.cfg
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to an HCL run file.")

	fs.StringSliceVarP(&c.Roots, "source", "s", nil, "Source root directory. Repeatable; positional arguments are added.")
	fs.StringVar(&c.FHIRVersion, "fhir-version", "r4", "Schema version of the source resources: 'r4' or 'dstu3'.")
	fs.StringVarP(&c.ArtifactType, "artifact-type", "t", model.TypeMeasure, "Top-level artifact type to bundle.")
	fs.BoolVar(&c.Recursive, "recursive", true, "Walk type directories recursively.")

	fs.StringVarP(&c.OutputDir, "output", "o", "bundles", "Output directory for bundles and the run report.")
	fs.StringVar(&c.Encoding, "encoding", "json", "Bundle encoding: 'json' or 'yaml'.")
	fs.BoolVar(&c.AddTimestamp, "add-timestamp", false, "Stamp the bundle with the run time.")
	fs.StringVar(&c.Identifier, "identifier", "", "Bundle identifier as 'system|value'.")

	fs.IntVarP(&c.Workers, "workers", "w", 0, "Number of concurrent workers. 0 uses one per CPU.")
	fs.BoolVar(&c.IncludeTransitive, "transitive", true, "Include transitive dependencies.")
	fs.BoolVar(&c.IncludeTestFixtures, "include-test-fixtures", false, "Bundle test fixtures from <root>/tests/.")
	fs.BoolVar(&c.RefreshOnly, "refresh-only", false, "Resolve and compile without writing bundles.")

	fs.StringVar(&c.CompilerKind, "compiler", "embedded", "Logic compiler: 'embedded', 'service' or 'none'.")
	fs.StringVar(&c.CompilerEndpoint, "compiler-endpoint", "", "Translation service URL for --compiler=service.")

	fs.StringVar(&c.DeliveryEndpoint, "delivery-endpoint", "", "Endpoint that receives each bundle. Empty disables delivery.")
	fs.StringVar(&c.DeliveryMode, "delivery-mode", "transaction", "Delivery mode: 'transaction' or 'individual'.")
	fs.StringToStringVar(&c.DeliveryHeaders, "delivery-header", nil, "Extra delivery request header as key=value. Repeatable.")

	fs.StringVar(&c.ObjectStore.Endpoint, "s3-endpoint", "", "S3-compatible endpoint for bundle upload. Empty disables upload.")
	fs.StringVar(&c.ObjectStore.Region, "s3-region", "", "Object storage region.")
	fs.StringVar(&c.ObjectStore.AccessKey, "s3-access-key", "", "Object storage access key.")
	fs.StringVar(&c.ObjectStore.SecretKey, "s3-secret-key", "", "Object storage secret key.")
	fs.StringVar(&c.ObjectStore.Bucket, "s3-bucket", "", "Object storage bucket.")
	fs.BoolVar(&c.ObjectStore.UseSSL, "s3-use-ssl", true, "Use TLS for object storage.")
	fs.StringVar(&c.UploadPrefix, "s3-prefix", "", "Key prefix for uploaded bundles.")

	fs.StringVar(&c.SocketIOURL, "socketio-url", "", "Socket.io server that receives progress events.")
	fs.StringVar(&c.SocketIONamespace, "socketio-namespace", "/", "Socket.io namespace for progress events.")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL DSN for run history.")

	fs.IntVar(&c.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	fs.StringVar(&c.LogFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&c.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
}

// resolve merges the run file, if any, under the flags and validates the
// log settings.
func (f *flags) resolve(ctx context.Context, fs *pflag.FlagSet, positional []string) (*app.Config, error) {
	cfg := f.cfg
	cfg.Roots = append(append([]string(nil), cfg.Roots...), positional...)

	if f.configPath != "" {
		file, err := config.Load(ctx, f.configPath)
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		merge(&cfg, file, fs)
		slog.Debug("Run file merged.", "path", f.configPath)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")
	return &cfg, nil
}
