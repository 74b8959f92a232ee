package core

import (
	"errors"
	"time"
)

const (
	DefaultPort      = 8531
	DefaultChunkSize = 4 * 1024 * 1024
	MaxScan          = 1024
)

var (
	ErrInvalidPort        = errors.New("port must be between 1 and 65535")
	ErrInvalidChunkSize   = errors.New("chunk size must be greater than 0 and at most max chunk size")
	ErrInvalidScanWindow  = errors.New("scan window must be greater than 0")
	ErrInvalidScanTimeout = errors.New("scan timeout must be greater than 0")
	ErrInvalidHeaderLimit = errors.New("max header size must be greater than 0")
)

// Config holds the engine tunables shared by the scanner, sender and receiver.
type Config struct {
	Port           int           `json:"port" mapstructure:"port"`
	ChunkSize      int           `json:"chunk_size" mapstructure:"chunk_size"`
	ScanWindow     int           `json:"scan_window" mapstructure:"scan_window"`
	ScanTimeout    time.Duration `json:"scan_timeout" mapstructure:"scan_timeout"`
	MaxScan        int           `json:"max_scan" mapstructure:"max_scan"`
	DialTimeout    time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	SampleInterval time.Duration `json:"sample_interval" mapstructure:"sample_interval"`
	MaxHeaderSize  int           `json:"max_header_size" mapstructure:"max_header_size"`
	MaxChunkSize   int64         `json:"max_chunk_size" mapstructure:"max_chunk_size"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:           DefaultPort,
		ChunkSize:      DefaultChunkSize,
		ScanWindow:     10,
		ScanTimeout:    300 * time.Millisecond,
		MaxScan:        MaxScan,
		DialTimeout:    5 * time.Second,
		SampleInterval: 500 * time.Millisecond,
		MaxHeaderSize:  16 * 1024 * 1024,
		MaxChunkSize:   64 * 1024 * 1024,
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.ChunkSize <= 0 || int64(c.ChunkSize) > c.MaxChunkSize {
		return ErrInvalidChunkSize
	}
	if c.ScanWindow <= 0 {
		return ErrInvalidScanWindow
	}
	if c.ScanTimeout <= 0 {
		return ErrInvalidScanTimeout
	}
	if c.MaxHeaderSize <= 0 {
		return ErrInvalidHeaderLimit
	}
	if c.MaxScan <= 0 {
		c.MaxScan = MaxScan
	}
	return nil
}
