package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/labelconv/pkg/kibi"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB         dbh.DBConfig   `json:"db" yaml:"db"`
	Media      MediaConfig    `json:"media" yaml:"media"`
	Results    *StorageConfig `json:"results" yaml:"results"`       // If set, every conversion result is kept here, and can be fetched again by ID
	ScratchDir string         `json:"scratchDir" yaml:"scratchDir"` // Working directory of conversions. Defaults to the OS temp dir
	ApiKeys    []string       `json:"apiKeys" yaml:"apiKeys"`       // Hashed API keys (see cmd/pwdhash). If empty, the API is open
	MaxBody    kibi.Size      `json:"maxBody" yaml:"maxBody"`       // Maximum size of imported task documents, eg "256 MB"
	RateLimit  int            `json:"rateLimit" yaml:"rateLimit"`   // Conversions per minute, per client IP
	TLS        *TLSConfig     `json:"tls" yaml:"tls"`               // If set, serve HTTPS with certificates from Let's Encrypt
}

type TLSConfig struct {
	Domains []string `json:"domains" yaml:"domains"`
	Email   string   `json:"email" yaml:"email"`     // ACME account email
	CertDir string   `json:"certDir" yaml:"certDir"` // Defaults to ~/.local/share/certmagic
}

type MediaConfig struct {
	LocalFilesRoot string `json:"localFilesRoot" yaml:"localFilesRoot"`
	UploadDir      string `json:"uploadDir" yaml:"uploadDir"`
	CacheDir       string `json:"cacheDir" yaml:"cacheDir"`
	Hostname       string `json:"hostname" yaml:"hostname"` // Labeling server that /data/ references point to
	Token          string `json:"token" yaml:"token"`       // Token for Hostname
}

// One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')
type StorageConfig struct {
	Filesystem *StorageConfigFS  `json:"filesystem" yaml:"filesystem"`
	GCS        *StorageConfigGCS `json:"gcs" yaml:"gcs"`
}

type StorageConfigFS struct {
	Root string `json:"root" yaml:"root"` // Path to the root of the filesystem
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket" yaml:"bucket"` // Name of the GCS bucket
	Public bool   `json:"public" yaml:"public"`
}

const (
	defaultMaxBody   = 256 * 1024 * 1024
	defaultRateLimit = 30
)

// LoadConfig reads a JSON config file, or a YAML file if the extension is .yaml or .yml
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	default:
		err = json.Unmarshal(raw, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("Error parsing config file %v: %w", filename, err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.DB.Driver == "" {
		c.DB = dbh.MakeSqliteConfig("labelconv.sqlite")
	}
	if c.MaxBody <= 0 {
		c.MaxBody = defaultMaxBody
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
}
