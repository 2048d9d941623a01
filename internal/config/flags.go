package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagThreads  = flag.Int("threads", -1, "Maximum worker threads (0 = synchronous)")
	flagTangents = flag.Bool("tangents", false, "Calculate tangent space")
	flagCombine  = flag.Bool("combine", false, "Combine meshes per LOD")
	flagLods     = flag.Bool("lods", false, "Discover _lod<N> sibling files")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagThreads >= 0 {
		cfg.Loader.MaxThreads = *flagThreads
	}
	if *flagTangents {
		cfg.Loader.CalcTangents = true
	}
	if *flagCombine {
		cfg.Loader.CombineMeshes = true
	}
	if *flagLods {
		cfg.Loader.LODs = true
	}
}
