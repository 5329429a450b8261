// SPDX-License-Identifier: MIT
// Package cmd builds the runtime configuration from defaults, an optional
// YAML file, environment overrides, and CLI flags, in that order.
package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pulseviz/internal/config"
	"pulseviz/pkg/build"
)

// ParseArgs parses os.Args into a validated Config. The root command runs
// the analyzer with the TUI; subcommands handle one-off actions.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	// The config file must load before flag binding so flag defaults show
	// the effective file/env values in --help.
	options, err := config.LoadConfig(configPathFromArgs(os.Args[1:]))
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.TUIMode = true
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	// Config file (pre-scanned above; registered so it appears in help).
	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to YAML config file")

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&options.Audio.DeviceID, "device", "d", options.Audio.DeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.Channels, "channels", "c", options.Audio.Channels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.FramesPerBuffer, "frames-per-buffer", "b", options.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Use low latency mode for real-time processing")

	// Analysis configuration
	rootCmd.PersistentFlags().IntVar(&options.Analysis.Bins, "bins", options.Analysis.Bins,
		"Number of spectrum bins sent to renderers")
	rootCmd.PersistentFlags().DurationVar(&options.Analysis.TickInterval, "tick-interval", options.Analysis.TickInterval,
		"Analysis loop cadence")

	// Transport configuration
	rootCmd.PersistentFlags().BoolVar(&options.Transport.WebSocketEnabled, "ws", options.Transport.WebSocketEnabled,
		"Serve analysis snapshots over WebSocket")
	rootCmd.PersistentFlags().StringVar(&options.Transport.WebSocketAddr, "ws-addr", options.Transport.WebSocketAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().BoolVar(&options.Transport.UDPEnabled, "udp", options.Transport.UDPEnabled,
		"Stream the high-resolution spectrum over UDP")
	rootCmd.PersistentFlags().StringVar(&options.Transport.UDPTargetAddress, "udp-target", options.Transport.UDPTargetAddress,
		"UDP spectrum target address")

	// Tempo-sync configuration
	rootCmd.PersistentFlags().BoolVar(&options.Link.Enabled, "link", options.Link.Enabled,
		"Join the tempo-sync session on the local network")
	rootCmd.PersistentFlags().Float64Var(&options.Link.Tempo, "tempo", options.Link.Tempo,
		"Initial session tempo in BPM")
	rootCmd.PersistentFlags().Float64Var(&options.Link.Quantum, "quantum", options.Link.Quantum,
		"Bar length in beats for phase wrapping")
	rootCmd.PersistentFlags().BoolVar(&options.Link.StartStopSync, "start-stop-sync", options.Link.StartStopSync,
		"Follow transport start/stop from peers")

	// Recording configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Recording.Enabled, "record", "r", options.Recording.Enabled,
		"Record captured audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&options.Recording.OutputFile, "output", "o", options.Recording.OutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug configuration
	rootCmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", options.LogLevel,
		"Log level (debug, info, warn, error)")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if options.Recording.Enabled && options.Recording.OutputFile == "" {
		options.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	// Flags can push the config out of range again.
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// configPathFromArgs pre-scans args for the config flag, which has to be
// known before cobra parses anything. Both the separate-argument and the
// flag=value spellings are accepted for the long and short forms.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" || arg == "-f":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-f="):
			return strings.TrimPrefix(arg, "-f=")
		}
	}
	return ""
}
