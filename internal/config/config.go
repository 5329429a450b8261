// SPDX-License-Identifier: MIT
// Package config defines the runtime configuration and the fixed constants
// that form the capture/analysis compatibility contract.
package config

import (
	"fmt"
	"time"

	"pulseviz/pkg/bitint"
)

// Compatibility contract: these determine ring-buffer sizing and the
// spectrum bin-to-frequency mapping, and are fixed at initialization.
const (
	DefaultSampleRate      = 48000 // Hz
	DefaultChannels        = 2     // interleaved stereo
	DefaultFramesPerBuffer = 1024  // base window/buffer size in frames

	// Ring capacity as a multiple of the base buffer size. A live backend
	// gets more headroom than the synthetic fallback, which never bursts.
	RingScaleLive     = 8
	RingScaleFallback = 4

	DefaultBins = 64 // spectrum bins; must be at least MinBins

	// MinBins keeps every band range (bass = bins/8 wide) non-empty.
	MinBins = 8

	DefaultDeviceID = MinDeviceID
	MinDeviceID     = -1 // system default device

	MinSampleRate = 8000
	MaxSampleRate = 192000

	DefaultTickInterval = 16 * time.Millisecond // ~60 Hz analysis cadence

	DefaultTempo   = 120.0 // BPM for the tempo-sync session
	DefaultQuantum = 4.0   // bar length in beats
)

// Config holds all runtime options, built from defaults, an optional YAML
// file, environment overrides, and CLI flags, in that order.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
	Link      LinkConfig      `yaml:"link"`
	Recording RecordingConfig `yaml:"recording"`

	// Runtime-only fields set by the CLI, never from file.
	Command string `yaml:"-"` // one-off command ("list"), empty to run
	TUIMode bool   `yaml:"-"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	DeviceID        int     `yaml:"device_id"`         // -1 for system default
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	Channels        int     `yaml:"channels"`          // interleaved channel count
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // base buffer size
	LowLatency      bool    `yaml:"low_latency"`
}

// AnalysisConfig holds renderer-facing analysis settings.
type AnalysisConfig struct {
	Bins         int           `yaml:"bins"`          // spectrum size
	TickInterval time.Duration `yaml:"tick_interval"` // analysis loop cadence
	FFTSize      int           `yaml:"fft_size"`      // high-resolution spectrum for network clients; 0 disables
}

// TransportConfig holds settings for fanning analysis output out of the
// process.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// LinkConfig holds tempo-sync session settings.
type LinkConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Tempo         float64 `yaml:"tempo"` // BPM
	Quantum       float64 `yaml:"quantum"`
	StartStopSync bool    `yaml:"start_stop_sync"`
}

// RecordingConfig holds WAV capture settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty: timestamped name
}

// NewConfig returns a Config with built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:        DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Analysis: AnalysisConfig{
			Bins:         DefaultBins,
			TickInterval: DefaultTickInterval,
			FFTSize:      DefaultFramesPerBuffer,
		},
		Transport: TransportConfig{
			WebSocketAddr:    ":8080",
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
		},
		Link: LinkConfig{
			Tempo:   DefaultTempo,
			Quantum: DefaultQuantum,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with. Degenerate
// analysis settings are caught here rather than surfacing as NaN levels at
// runtime.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %0.f out of range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Analysis.Bins < MinBins {
		return fmt.Errorf("analysis.bins must be at least %d, got %d", MinBins, c.Analysis.Bins)
	}
	if c.Analysis.TickInterval <= 0 {
		return fmt.Errorf("analysis.tick_interval must be positive, got %s", c.Analysis.TickInterval)
	}
	if c.Analysis.FFTSize != 0 && !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of 2, got %d", c.Analysis.FFTSize)
	}
	if c.Link.Enabled && c.Link.Tempo <= 0 {
		return fmt.Errorf("link.tempo must be positive, got %f", c.Link.Tempo)
	}
	if c.Link.Enabled && c.Link.Quantum <= 0 {
		return fmt.Errorf("link.quantum must be positive, got %f", c.Link.Quantum)
	}
	return nil
}

// RingFrames returns the ring-buffer capacity in frames for the given mode.
func (c *Config) RingFrames(live bool) int {
	if live {
		return c.Audio.FramesPerBuffer * RingScaleLive
	}
	return c.Audio.FramesPerBuffer * RingScaleFallback
}
