package config

import "os"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = os.TempDir()
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://api.llmgateway.ciridae.app"
	}
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("GATEWAY_API_KEY")
	}
	if cfg.Oracle.TextModel == "" {
		cfg.Oracle.TextModel = "fast-production"
	}
	if cfg.Oracle.VisionModel == "" {
		cfg.Oracle.VisionModel = "claude-3-7-sonnet"
	}
	if cfg.Parse.Workers == 0 {
		cfg.Parse.Workers = 8
	}
	if cfg.Parse.RenderDPI == 0 {
		cfg.Parse.RenderDPI = 200
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/scopematch/data/cache.db"
	}
}
