package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/cyber-boost/tusktsk/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.SourceDir == "" {
		errs = append(errs, errors.New("source_dir is required"))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if !c.Compile.Algorithm.Valid() {
		errs = append(errs, fmt.Errorf("compile.algorithm: unknown algorithm %s", c.Compile.Algorithm))
	}
	if c.Compile.Threshold < 0 {
		errs = append(errs, fmt.Errorf("compile.threshold must not be negative, got %d", c.Compile.Threshold))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.SourceDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("source directory does not exist: %s\nHint: Create the directory or use --source-dir to specify a different path", c.SourceDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", c.SourceDir)
	}
	return nil
}
