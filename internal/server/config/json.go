package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/arkhipovds/studiodesk/internal/flagx"
	"github.com/arkhipovds/studiodesk/internal/timex"
)

// JsonConfig is the intermediate structure for JSON configuration files.
// Interval fields use timex.Duration, so values can be either strings such
// as "30s" or integer nanosecond counts. After unmarshalling, the fields
// are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN     string         `json:"database_dsn"`
	MetricsAddr     string         `json:"metrics_addr"`
	BlobBackend     string         `json:"blob_backend"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics, since the operator explicitly asked for it.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.MetricsAddr = c.MetricsAddr
	config.BlobBackend = c.BlobBackend
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.ShutdownTimeout = time.Duration(c.ShutdownTimeout.Duration)
}
