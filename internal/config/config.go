// Package config handles objtool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoaderConfig holds model loading defaults.
type LoaderConfig struct {
	MaxThreads    int  `yaml:"max_threads"`
	Triangulate   bool `yaml:"triangulate"`
	CalcTangents  bool `yaml:"calc_tangents"`
	JoinIdentical bool `yaml:"join_identical"`
	CombineMeshes bool `yaml:"combine_meshes"`
	LODs          bool `yaml:"lods"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			MaxThreads:    4,
			Triangulate:   true,
			CalcTangents:  false,
			JoinIdentical: true,
			CombineMeshes: false,
			LODs:          false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
