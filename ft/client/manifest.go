package client

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ManifestEntry describes one file to fetch in a batch transfer. It
// mirrors the CLI's per-file flags so a manifest is just a YAML list of
// what would otherwise be repeated command invocations.
type ManifestEntry struct {
	Prefix      string `yaml:"prefix"`
	FilePath    string `yaml:"filepath"`
	FileSize    uint64 `yaml:"filesize"`
	Version     uint64 `yaml:"version"`
	Output      string `yaml:"output"`
	LifetimeMs  uint64 `yaml:"lifetime_ms"`
	PayloadSize int    `yaml:"payload_size"`
	ChunkSize   int    `yaml:"chunk"`
	NThreads    int    `yaml:"nthreads"`
}

// Manifest is a batch of file transfers to run, each with its own
// output destination.
type Manifest struct {
	Files []ManifestEntry `yaml:"files"`
}

// LoadManifest reads and parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("client: parsing manifest: %w", err)
	}
	for i := range m.Files {
		if m.Files[i].FilePath == "" {
			return nil, fmt.Errorf("client: manifest entry %d missing filepath", i)
		}
	}
	return &m, nil
}

// Config converts one manifest entry into a Transfer Config, using
// defaultPrefix when the entry has no prefix and a 1 s lifetime when
// lifetime_ms is unset. Payload size, chunk size and thread count are
// passed through as given; NewTransfer applies their defaults.
func (e ManifestEntry) Config(defaultPrefix string) Config {
	prefix := e.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	lifetime := time.Duration(e.LifetimeMs) * time.Millisecond
	if lifetime == 0 {
		lifetime = time.Second
	}
	return Config{
		Prefix:      prefix,
		FilePath:    e.FilePath,
		FileSize:    e.FileSize,
		Version:     e.Version,
		Lifetime:    lifetime,
		PayloadSize: e.PayloadSize,
		ChunkSize:   e.ChunkSize,
		NThreads:    e.NThreads,
	}
}
