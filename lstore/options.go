// Package lstore is the public facade over the columnar storage engine:
// Database lifecycle (create/drop/get table, open/close), and a query
// wrapper that mirrors the teacher's "queries that fail return false"
// contract (tinysql.go/sql.go/builder.go's DB wrapper shape).
package lstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tantalum-db/lstore/internal/buffer"
	"github.com/tantalum-db/lstore/internal/rowstore"
)

// Options configures a Database. A zero BufferPoolSize or
// MergeThresholdPages selects the engine default, and an empty
// CheckpointCronSpec disables checkpointing; DefaultOptions and LoadConfig
// fill the defaults in explicitly.
type Options struct {
	BufferPoolSize      int    `yaml:"buffer_pool_size"`
	MergeThresholdPages int    `yaml:"merge_threshold_pages"`
	CheckpointCronSpec  string `yaml:"checkpoint_cron_spec"`
}

// DefaultOptions returns the engine's default tuning: a 32-frame
// bufferpool and a 64-update merge threshold, per spec §4.2/§4.10, with
// checkpointing disabled (empty cron spec).
func DefaultOptions() Options {
	return Options{
		BufferPoolSize:      buffer.DefaultCapacity,
		MergeThresholdPages: rowstore.DefaultMergeThresholdPages,
	}
}

// LoadConfig reads a YAML configuration file, grounded on the teacher's
// own YAML usage for config and test fixtures. Missing fields fall back
// to DefaultOptions' values.
func LoadConfig(path string) (*Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lstore: load config: %w", err)
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("lstore: parse config %s: %w", path, err)
	}
	if opts.BufferPoolSize <= 0 {
		opts.BufferPoolSize = buffer.DefaultCapacity
	}
	if opts.MergeThresholdPages <= 0 {
		opts.MergeThresholdPages = rowstore.DefaultMergeThresholdPages
	}
	return &opts, nil
}
