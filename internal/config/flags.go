package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by every command
const (
	FlagProfile     = "profile"
	FlagConfig      = "config"
	FlagURL         = "url"
	FlagAPIPath     = "api-path"
	FlagAPIKey      = "api-key"
	FlagTargetModel = "target-model"
	FlagCFID        = "cf-id"
	FlagCFSecret    = "cf-secret"
	FlagDebug       = "debug"
	FlagNoBatch     = "no-batch"
	FlagWorkers     = "workers"
	FlagDelay       = "delay"
	FlagTimeout     = "timeout"
	FlagRate        = "rate"
	FlagReport      = "report"
	FlagMetricsFile = "metrics-file"
)

// flag name -> config key. --no-batch is inverted by hand in Load.
var flagKeys = map[string]string{
	FlagProfile:     "profile",
	FlagURL:         "url",
	FlagAPIPath:     "api_path",
	FlagAPIKey:      "api_key",
	FlagTargetModel: "target_model",
	FlagCFID:        "cf_access_client_id",
	FlagCFSecret:    "cf_access_client_secret",
	FlagDebug:       "debug",
	FlagWorkers:     "workers",
	FlagDelay:       "delay",
	FlagTimeout:     "timeout",
	FlagRate:        "rate",
	FlagReport:      "report",
	FlagMetricsFile: "metrics_file",
}

// RegisterFlags adds the connection and run flags to fs.
// Defaults are left empty so that an unset flag never masks a lower layer.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagProfile, "", "Deployment profile: remote or local (default remote)")
	fs.String(FlagConfig, "", "Config file (default ~/.openwebui-updater/config.yaml)")
	fs.String(FlagURL, "", "OpenWebUI URL")
	fs.String(FlagAPIPath, "", "API base path")
	fs.String(FlagAPIKey, "", "API key for authentication (env "+EnvAPIKey+")")
	fs.String(FlagTargetModel, "", "Target base model to update to")
	fs.String(FlagCFID, "", "Cloudflare Access Client ID (env "+EnvCFClientID+")")
	fs.String(FlagCFSecret, "", "Cloudflare Access Client Secret (env "+EnvCFClientSecret+")")
	fs.Bool(FlagDebug, false, "Enable debug output")
	fs.Bool(FlagNoBatch, false, "Disable batch mode (process sequentially)")
	fs.Int(FlagWorkers, 0, "Number of parallel workers (default 5 remote, 10 local)")
	fs.Duration(FlagDelay, 0, "Delay between records in sequential mode (default 500ms)")
	fs.Duration(FlagTimeout, 0, "Timeout for each HTTP call (default 30s)")
	fs.Float64(FlagRate, 0, "Maximum update requests per second in batch mode (0 = unlimited)")
	fs.String(FlagReport, "", "Write a run report to this file (.yaml or .json)")
	fs.String(FlagMetricsFile, "", "Write Prometheus metrics to this textfile after the run")
}
