package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig is the cmd/ binary's own configuration -- everything the
// engine itself can't know about (log rotation, the output pcap, where
// the dump lives on disk), loaded once at startup. engine.Config is
// built from this by cmd's buildEngineConfig, never parsed directly.
type AppConfig struct {
	Dump struct {
		Filename    string        `yaml:"filename"`
		Binary      bool          `yaml:"binary"`
		StopAtEOF   bool          `yaml:"stop_at_eof"`
		Timing      bool          `yaml:"timing"`
		Checksum    bool          `yaml:"checksum"`
		SampleProb  float64       `yaml:"sample_prob"`
		Multipacket bool          `yaml:"multipacket"`
	} `yaml:"dump"`

	Output struct {
		PcapBaseFilename string `yaml:"pcap_base_filename"`
		MaxFileSize      int64  `yaml:"max_file_size"`
	} `yaml:"output"`

	Admin struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
	} `yaml:"admin"`

	Log struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"`
		Filename   string `yaml:"filename"`
		MaxAge     int    `yaml:"max_age"`
		RotateTime int    `yaml:"rotate_time"`
	} `yaml:"log"`
}

func (c *AppConfig) Validate() error {
	if c.Dump.Filename == "" {
		return fmt.Errorf("dump.filename is required")
	}
	if c.Dump.SampleProb < 0 || c.Dump.SampleProb > 1 {
		return fmt.Errorf("dump.sample_prob must be in [0,1]")
	}
	if c.Output.PcapBaseFilename == "" {
		c.Output.PcapBaseFilename = "reconstructed"
	}
	if c.Log.Level == "" {
		c.Log.Level = "WARN"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Filename == "" {
		c.Log.Filename = "ipsumdump.log"
	}
	return nil
}

func LoadConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
