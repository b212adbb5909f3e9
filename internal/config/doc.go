// Package config loads the optional HCL run file. The file mirrors the CLI
// flags in blocks (source, output, options, compiler, delivery, object_store,
// progress, report) and can read environment variables through the `env`
// object, e.g. `access_key = env.S3_ACCESS_KEY`.
//
// Loading only decodes; merging with flags and validation belong to the
// app and cli packages.
package config
