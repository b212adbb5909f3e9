package cli

import (
	"github.com/specialistvlad/bundlegrid/internal/app"
	"github.com/specialistvlad/bundlegrid/internal/config"
	"github.com/spf13/pflag"
)

// merge copies run-file values into cfg for every setting whose flag was not
// given explicitly. Source roots from the file are added to the roots from the
// command line.
func merge(cfg *app.Config, f *config.File, fs *pflag.FlagSet) {
	m := merger{fs: fs}

	if s := f.Source; s != nil {
		cfg.Roots = append(cfg.Roots, s.Roots...)
		m.str("fhir-version", &cfg.FHIRVersion, s.FHIRVersion)
		m.str("artifact-type", &cfg.ArtifactType, s.ArtifactType)
		m.boolean("recursive", &cfg.Recursive, s.Recursive)
	}
	if o := f.Output; o != nil {
		m.str("output", &cfg.OutputDir, o.Dir)
		m.str("encoding", &cfg.Encoding, o.Encoding)
		m.boolean("add-timestamp", &cfg.AddTimestamp, o.AddTimestamp)
		m.str("identifier", &cfg.Identifier, o.Identifier)
	}
	if o := f.Options; o != nil {
		m.integer("workers", &cfg.Workers, o.Workers)
		m.boolean("transitive", &cfg.IncludeTransitive, o.IncludeTransitive)
		m.boolean("include-test-fixtures", &cfg.IncludeTestFixtures, o.IncludeTestFixtures)
		m.boolean("refresh-only", &cfg.RefreshOnly, o.RefreshOnly)
		m.integer("healthcheck-port", &cfg.HealthcheckPort, o.HealthcheckPort)
	}
	if c := f.Compiler; c != nil {
		m.str("compiler", &cfg.CompilerKind, c.Kind)
		m.str("compiler-endpoint", &cfg.CompilerEndpoint, c.Endpoint)
	}
	if d := f.Delivery; d != nil {
		m.str("delivery-endpoint", &cfg.DeliveryEndpoint, d.Endpoint)
		m.str("delivery-mode", &cfg.DeliveryMode, d.Mode)
		if !fs.Changed("delivery-header") && len(d.Headers) > 0 {
			cfg.DeliveryHeaders = d.Headers
		}
	}
	if s := f.ObjectStore; s != nil {
		m.str("s3-endpoint", &cfg.ObjectStore.Endpoint, s.Endpoint)
		m.str("s3-region", &cfg.ObjectStore.Region, s.Region)
		m.str("s3-access-key", &cfg.ObjectStore.AccessKey, s.AccessKey)
		m.str("s3-secret-key", &cfg.ObjectStore.SecretKey, s.SecretKey)
		m.str("s3-bucket", &cfg.ObjectStore.Bucket, s.Bucket)
		m.boolean("s3-use-ssl", &cfg.ObjectStore.UseSSL, s.UseSSL)
		m.str("s3-prefix", &cfg.UploadPrefix, s.Prefix)
	}
	if p := f.Progress; p != nil {
		m.str("socketio-url", &cfg.SocketIOURL, p.SocketIOURL)
		m.str("socketio-namespace", &cfg.SocketIONamespace, p.Namespace)
		if p.InsecureSkipVerify != nil {
			cfg.SocketIOInsecure = *p.InsecureSkipVerify
		}
	}
	if r := f.Report; r != nil {
		m.str("database-url", &cfg.DatabaseURL, r.DatabaseURL)
	}
	if l := f.Log; l != nil {
		m.str("log-level", &cfg.LogLevel, l.Level)
		m.str("log-format", &cfg.LogFormat, l.Format)
	}
}

type merger struct {
	fs *pflag.FlagSet
}

func (m merger) str(flag string, dst *string, v string) {
	if v != "" && !m.fs.Changed(flag) {
		*dst = v
	}
}

func (m merger) boolean(flag string, dst *bool, v *bool) {
	if v != nil && !m.fs.Changed(flag) {
		*dst = *v
	}
}

func (m merger) integer(flag string, dst *int, v *int) {
	if v != nil && !m.fs.Changed(flag) {
		*dst = *v
	}
}
