// Package config loads the YAML settings for a build: the root directory
// to walk, glob filters, the external-blob threshold, and where the
// blobstore lives.
package config

import (
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v2"
)

// Config is the on-disk shape of a build's settings file.
type Config struct {
	Root              string   `yaml:"root"`
	Include           []string `yaml:"include"`
	Exclude           []string `yaml:"exclude"`
	ExternalThreshold int64    `yaml:"external_threshold"`
	BlobstoreDir      string   `yaml:"blobstore_dir"`
	StageScript       string   `yaml:"stage_script"`
	Output            string   `yaml:"output"`
}

// Default returns the settings used when no config file is supplied.
func Default() Config {
	return Config{
		Root:              ".",
		ExternalThreshold: 1 << 20,
		BlobstoreDir:      ".wahtml-blobs",
		Output:            "out.html",
	}
}

// Load reads and parses the YAML file at path, starting from Default and
// overriding whatever the file sets.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
