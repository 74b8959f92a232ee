// Package settings loads the local identity and tunables from
// $HOME/.senddone.yaml and SENDDONE_* environment variables.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dyastin-0/senddone/core"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SENDDONE"
	FileName  = ".senddone"

	defaultDir = "senddone/received"
)

var ErrNoDownloadDir = errors.New("download dir must be set")

type Settings struct {
	ID          string `mapstructure:"id"`
	DownloadDir string `mapstructure:"download_dir"`
	LogFile     string `mapstructure:"log_file"`
	Debug       bool   `mapstructure:"debug"`

	core.Config `mapstructure:",squash"`

	path string
}

// Load reads settings from path, or from $HOME/.senddone.yaml when path is
// empty. A missing file is not an error. A peer id is generated and written
// back on first use.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	target, err := configPath(path)
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(target)

	if err := v.ReadInConfig(); err != nil && !notFound(err) {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	s := &Settings{path: target}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
		v.Set("id", s.ID)

		if err := v.WriteConfigAs(target); err != nil {
			return nil, fmt.Errorf("failed to persist peer id: %w", err)
		}
	}

	return s, nil
}

func (s *Settings) Path() string {
	return s.path
}

func (s *Settings) Validate() error {
	if s.DownloadDir == "" {
		return ErrNoDownloadDir
	}
	return s.Config.Validate()
}

func setDefaults(v *viper.Viper) {
	cfg := core.DefaultConfig()

	v.SetDefault("id", "")
	v.SetDefault("download_dir", filepath.Join(homeDir(), defaultDir))
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)

	v.SetDefault("port", cfg.Port)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("scan_window", cfg.ScanWindow)
	v.SetDefault("scan_timeout", cfg.ScanTimeout)
	v.SetDefault("max_scan", cfg.MaxScan)
	v.SetDefault("dial_timeout", cfg.DialTimeout)
	v.SetDefault("sample_interval", cfg.SampleInterval)
	v.SetDefault("max_header_size", cfg.MaxHeaderSize)
	v.SetDefault("max_chunk_size", cfg.MaxChunkSize)
}

func configPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, FileName+".yaml"), nil
}

func notFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "./"
	}
	return home
}
