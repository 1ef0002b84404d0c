package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PipelineEnv names the environment variables that override pipeline
// settings.
type PipelineEnv struct {
	DatasetSource string
	RetryAttempts string
	RetryBackoff  string
	Workers       string
}

// DefaultPipelineEnv returns the standard PRECLEAR_PIPELINE_* variable names.
func DefaultPipelineEnv() *PipelineEnv {
	return &PipelineEnv{
		DatasetSource: "PRECLEAR_PIPELINE_DATASET_SOURCE",
		RetryAttempts: "PRECLEAR_PIPELINE_RETRY_ATTEMPTS",
		RetryBackoff:  "PRECLEAR_PIPELINE_RETRY_BACKOFF",
		Workers:       "PRECLEAR_PIPELINE_WORKERS",
	}
}

// PipelineConfig holds validation pipeline settings: the compliance dataset
// source and the retry/concurrency knobs for AI field extraction.
type PipelineConfig struct {
	DatasetSource string `toml:"dataset_source"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryBackoff  string `toml:"retry_backoff"`
	Workers       int    `toml:"workers"`
}

// RetryBackoffDuration returns RetryBackoff as a time.Duration.
func (c *PipelineConfig) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	return d
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.DatasetSource != "" {
		c.DatasetSource = overlay.DatasetSource
	}
	if overlay.RetryAttempts != 0 {
		c.RetryAttempts = overlay.RetryAttempts
	}
	if overlay.RetryBackoff != "" {
		c.RetryBackoff = overlay.RetryBackoff
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *PipelineConfig) Finalize(env *PipelineEnv) error {
	c.loadDefaults()
	c.loadEnv(env)
	return c.validate()
}

func (c *PipelineConfig) loadDefaults() {
	if c.DatasetSource == "" {
		c.DatasetSource = "compliance-rules.json"
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "200ms"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

func (c *PipelineConfig) loadEnv(env *PipelineEnv) {
	if env == nil {
		return
	}
	if v := os.Getenv(env.DatasetSource); v != "" {
		c.DatasetSource = v
	}
	if v := os.Getenv(env.RetryAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetryAttempts = n
		}
	}
	if v := os.Getenv(env.RetryBackoff); v != "" {
		c.RetryBackoff = v
	}
	if v := os.Getenv(env.Workers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if _, err := time.ParseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}
