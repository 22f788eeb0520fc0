// Path: internal/config/constants.go
package config

import "time"

// Configuration keys, shared by the environment and the .env file.
const (
	KeyURL             = "ARTIFACTORY_URL"
	KeyUsername        = "ARTIFACTORY_USERNAME"
	KeyPassword        = "ARTIFACTORY_PASSWORD"
	KeyRequestTimeout  = "REQUEST_TIMEOUT"
	KeyMetricsTextfile = "METRICS_TEXTFILE"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFile         = "LOG_FILE"
)

const (
	DefaultConfigFile     = "config/.env"
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFile        = "artifactory-sync.log"
)
