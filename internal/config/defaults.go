package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kensaku/data/db/directory.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kensaku/data/indices/bleve"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.MaxQueryLength == 0 {
		cfg.Search.MaxQueryLength = 256
	}
	if cfg.Search.TimeoutMs == 0 {
		cfg.Search.TimeoutMs = 3000
	}
	if cfg.Search.FacetCacheTTLSec == 0 {
		cfg.Search.FacetCacheTTLSec = 300
	}
	if cfg.Catalog.Extensions == nil {
		cfg.Catalog.Extensions = []string{".yaml", ".yml", ".json", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Catalog.Directories) > 0 && cfg.Catalog.Recursive == nil {
		t := true
		cfg.Catalog.Recursive = &t
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "kensaku:"
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = "localhost:4317"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "kensaku"
	}
	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1.0
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
