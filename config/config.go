// Package config loads fleure-db configuration from YAML files, typically
// /etc/fleure/db.d/*.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/fleure/fleure-db/dates"
)

// DefaultPath is the glob of the system wide configuration files.
const DefaultPath = "/etc/fleure/db.d/*.yml"

type Download struct {
	Retries int           `yaml:"retries,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type Config struct {
	Repos     []string `yaml:"repos,omitempty"`
	Outdir    string   `yaml:"outdir,omitempty"`
	Root      string   `yaml:"root,omitempty"`
	Makecache bool     `yaml:"makecache,omitempty"`
	Analyze   bool     `yaml:"analyze,omitempty"`
	Verbosity int      `yaml:"verbosity,omitempty"`
	LogFile   string   `yaml:"logfile,omitempty"`

	// Native makes the cache by fetching updateinfo over HTTP instead of
	// running dnf or yum.
	Native   bool     `yaml:"native,omitempty"`
	Download Download `yaml:"download,omitempty"`

	Keywords        []string            `yaml:"keywords,omitempty"`
	PackageKeywords map[string][]string `yaml:"package_keywords,omitempty"`
	CoreRPMs        []string            `yaml:"core_rpms,omitempty"`
	CVSSMinScore    float64             `yaml:"cvss_min_score,omitempty"`
	CVSSScores      string              `yaml:"cvss_scores,omitempty"`
	Topics          int                 `yaml:"topics,omitempty"`

	// Stemming matches keywords on word stems, e.g. hang matches hangs.
	Stemming bool `yaml:"stemming"`

	// Metrics is the node exporter textfile to write; empty disables it.
	Metrics string `yaml:"metrics,omitempty"`
}

// DefaultKeywords select bug errata worth a look.
var DefaultKeywords = []string{
	"crash", "panic", "hang", "SEGV", "segmentation fault", "data corruption",
}

var DefaultCoreRPMs = []string{"kernel", "glibc", "bash", "openssl", "openssh", "systemd", "util-linux"}

// Default returns the built-in configuration. The outdir embeds the current
// timestamp with ':' replaced by '_'.
func Default() *Config {
	return &Config{
		Outdir:       "out-" + strings.ReplaceAll(dates.Timestamp(time.Time{}), ":", "_"),
		Root:         string(filepath.Separator),
		Download:     Download{Retries: 3, Timeout: 5 * time.Minute},
		Keywords:     append([]string(nil), DefaultKeywords...),
		CoreRPMs:     append([]string(nil), DefaultCoreRPMs...),
		CVSSMinScore: 4.0,
		Topics:       5,
		Stemming:     true,
	}
}

// Files resolves path, a directory, a glob pattern or a file, to the list
// of configuration files in load order.
func Files(path string) ([]string, error) {
	if fi, err := os.Stat(path); err == nil {
		if !fi.IsDir() {
			return []string{path}, nil
		}
		var files []string
		for _, pattern := range []string{"*.yml", "*.yaml"} {
			matches, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
		sort.Strings(files)
		return files, nil
	}

	files, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config path %q: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files found: %s", path)
	}
	sort.Strings(files)
	return files, nil
}

func decodeFile(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("unmarshal error in %q: %w", path, err)
	}
	return nil
}

// Load reads the configuration files at path over the defaults. Each file
// is decoded onto the result of the previous ones, so only the keys it
// holds change: lists are replaced, package_keywords is merged by rpm name
// and false or zero values are kept.
func Load(path string) (*Config, error) {
	files, err := Files(path)
	if err != nil {
		return nil, err
	}

	cnf := Default()
	for _, f := range files {
		if err := decodeFile(f, cnf); err != nil {
			return nil, err
		}
	}
	return cnf, nil
}

// Override sets the non-zero values of o over c. It applies command line
// flags, which cannot tell an unset false from an explicit one.
func (c *Config) Override(o *Config) error {
	if err := mergo.Merge(c, o, mergo.WithOverride); err != nil {
		return fmt.Errorf("applying overrides: %w", err)
	}
	return nil
}
