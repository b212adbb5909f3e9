package config

// File is the decoded run file. Every block is optional; a nil block leaves
// the corresponding flags at their defaults.
type File struct {
	Source      *Source      `hcl:"source,block"`
	Output      *Output      `hcl:"output,block"`
	Options     *Options     `hcl:"options,block"`
	Compiler    *Compiler    `hcl:"compiler,block"`
	Delivery    *Delivery    `hcl:"delivery,block"`
	ObjectStore *ObjectStore `hcl:"object_store,block"`
	Progress    *Progress    `hcl:"progress,block"`
	Report      *Report      `hcl:"report,block"`
	Log         *Log         `hcl:"log,block"`
}

// Source is the `source` block.
type Source struct {
	Roots        []string `hcl:"roots,optional"`
	FHIRVersion  string   `hcl:"fhir_version,optional"`
	ArtifactType string   `hcl:"artifact_type,optional"`
	Recursive    *bool    `hcl:"recursive,optional"`
}

// Output is the `output` block.
type Output struct {
	Dir          string `hcl:"dir,optional"`
	Encoding     string `hcl:"encoding,optional"`
	AddTimestamp *bool  `hcl:"add_timestamp,optional"`
	Identifier   string `hcl:"identifier,optional"`
}

// Options is the `options` block.
type Options struct {
	Workers             *int  `hcl:"workers,optional"`
	IncludeTransitive   *bool `hcl:"include_transitive,optional"`
	IncludeTestFixtures *bool `hcl:"include_test_fixtures,optional"`
	RefreshOnly         *bool `hcl:"refresh_only,optional"`
	HealthcheckPort     *int  `hcl:"healthcheck_port,optional"`
}

// Compiler is the `compiler` block.
type Compiler struct {
	Kind     string `hcl:"kind,optional"`
	Endpoint string `hcl:"endpoint,optional"`
}

// Delivery is the `delivery` block.
type Delivery struct {
	Endpoint string            `hcl:"endpoint"`
	Mode     string            `hcl:"mode,optional"`
	Headers  map[string]string `hcl:"headers,optional"`
}

// ObjectStore is the `object_store` block.
type ObjectStore struct {
	Endpoint  string `hcl:"endpoint"`
	Region    string `hcl:"region,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Bucket    string `hcl:"bucket"`
	UseSSL    *bool  `hcl:"use_ssl,optional"`
	Prefix    string `hcl:"prefix,optional"`
}

// Progress is the `progress` block.
type Progress struct {
	SocketIOURL        string `hcl:"socketio_url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify *bool  `hcl:"insecure_skip_verify,optional"`
}

// Report is the `report` block.
type Report struct {
	DatabaseURL string `hcl:"database_url,optional"`
}

// Log is the `log` block.
type Log struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}
