package internal

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fridex/pkgextract/internal/extract"
)

// A Config holds the scan settings read from a pkgextract.toml file.
type Config struct {
	// Concurrency is the number of parser workers. It defaults to the number
	// of CPUs.
	Concurrency int `toml:"concurrency"`

	// Timeout bounds the time spent parsing a single artifact.
	Timeout time.Duration `toml:"timeout"`

	// Exclude lists globs of root-relative paths that are never walked. It
	// defaults to the pseudo filesystems proc, sys and dev.
	Exclude []string `toml:"exclude"`

	// Ecosystems selects the ecosystems to report.
	Ecosystems ConfigEcosystems `toml:"ecosystems"`
}

// ConfigEcosystems defines which ecosystems a scan covers.
type ConfigEcosystems struct {
	// Disabled lists ecosystems whose artifacts are ignored.
	Disabled []string `toml:"disabled"`
}

// NewConfig returns a Config holding the default settings.
func NewConfig() Config {
	return Config{
		Concurrency: runtime.NumCPU(),
		Timeout:     extract.DefaultTimeout,
		Exclude:     append([]string{}, extract.DefaultExcludes...),
	}
}

// NewConfigFromFile parses the config from a file location. Settings missing
// from the file keep their defaults.
func NewConfigFromFile(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() {
		if err2 := file.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	var config Config
	metadata, err := toml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("failed to parse config: unknown field %q", undecoded[0].String())
	}

	defaults := NewConfig()
	if !metadata.IsDefined("concurrency") {
		config.Concurrency = defaults.Concurrency
	}

	if !metadata.IsDefined("timeout") {
		config.Timeout = defaults.Timeout
	}

	// an explicit empty list disables the default excludes
	if !metadata.IsDefined("exclude") {
		config.Exclude = defaults.Exclude
	}

	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, err // err should be nil here, but return err to catch deferred error
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return NewConfigInvalidFieldError("concurrency", "must be at least 1")
	}

	if c.Timeout <= 0 {
		return NewConfigInvalidFieldError("timeout", "must be a positive duration")
	}

	known := map[extract.Ecosystem]struct{}{}
	for _, rule := range extract.DefaultRegistry().Rules() {
		known[rule.Ecosystem] = struct{}{}
	}

	for _, ecosystem := range c.Ecosystems.Disabled {
		if _, ok := known[extract.Ecosystem(ecosystem)]; !ok {
			var names []string
			for e := range known {
				names = append(names, string(e))
			}
			sort.Strings(names)

			return NewConfigInvalidFieldError("ecosystems.disabled", fmt.Sprintf("unknown ecosystem %q, expected one of %s", ecosystem, strings.Join(names, ", ")))
		}
	}

	return nil
}

// Registry returns the built-in parsers without the disabled ecosystems.
func (c Config) Registry() *extract.Registry {
	registry := extract.DefaultRegistry()
	for _, ecosystem := range c.Ecosystems.Disabled {
		registry.Disable(extract.Ecosystem(ecosystem))
	}

	return registry
}

// ScannerOptions returns the options configuring a Scanner with these
// settings.
func (c Config) ScannerOptions() []extract.ScannerOption {
	return []extract.ScannerOption{
		extract.WithRegistry(c.Registry()),
		extract.WithConcurrency(c.Concurrency),
		extract.WithTimeout(c.Timeout),
		extract.WithExcludes(c.Exclude),
	}
}

// ConfigInvalidFieldError reports a config field holding an unusable value.
type ConfigInvalidFieldError struct {
	Field  string
	Reason string
}

// NewConfigInvalidFieldError returns a ConfigInvalidFieldError for the given
// field.
func NewConfigInvalidFieldError(field, reason string) ConfigInvalidFieldError {
	return ConfigInvalidFieldError{Field: field, Reason: reason}
}

func (e ConfigInvalidFieldError) Error() string {
	return fmt.Sprintf("'%s' %s", e.Field, e.Reason)
}
