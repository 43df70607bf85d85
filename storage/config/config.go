// Package config loads the paged storage core's configuration from a
// YAML file, grounded on novasql's internal.LoadConfig pattern: a
// viper.New() instance unmarshalled into a mapstructure-tagged struct.
// Programmatic construction against buffer.NewPoolManager/index.Open
// remains the primary API; this is an additive convenience for a
// cmd/ entry point.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PagedStoreConfig is the top-level configuration shape for a
// cmd/pagedbtree invocation.
type PagedStoreConfig struct {
	Buffer struct {
		FrameCount int  `mapstructure:"frame_count"`
		DirectIO   bool `mapstructure:"direct_io"`
	} `mapstructure:"buffer"`
	Index struct {
		RelationName   string `mapstructure:"relation_name"`
		AttrByteOffset int32  `mapstructure:"attr_byte_offset"`
		AttrType       int32  `mapstructure:"attr_type"`
		DataDir        string `mapstructure:"data_dir"`
	} `mapstructure:"index"`
}

// LoadConfig reads and unmarshals a YAML file at path.
func LoadConfig(path string) (*PagedStoreConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg PagedStoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is supplied —
// a small in-memory-sized pool and a placeholder relation name
// suitable for local experimentation.
func Default() *PagedStoreConfig {
	cfg := &PagedStoreConfig{}
	cfg.Buffer.FrameCount = 64
	cfg.Buffer.DirectIO = true
	cfg.Index.RelationName = "relation"
	cfg.Index.AttrByteOffset = 0
	cfg.Index.DataDir = "."
	return cfg
}
