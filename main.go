// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"pulseviz/cmd"
	"pulseviz/internal/buffer"
	"pulseviz/internal/capture"
	"pulseviz/internal/config"
	"pulseviz/internal/fft"
	"pulseviz/internal/linksync"
	applog "pulseviz/internal/log"
	"pulseviz/internal/pipeline"
	"pulseviz/internal/source"
	"pulseviz/internal/transport"
	"pulseviz/internal/transport/udp"
	"pulseviz/internal/tui"
	"pulseviz/pkg/build"
)

// main wires the analyzer together in three phases:
//
//  1. Startup: build info, configuration, capture backend probing. A
//     failed probe demotes the process to the synthetic source instead
//     of exiting; renderers always get a signal.
//  2. Run: capture callback -> ring -> analysis loop -> transports/TUI.
//  3. Shutdown: stop producers before consumers, newest first.
func main() {
	build.Initialize()

	// One thread for the audio callback, one for everything else.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Command == "list" {
		if err := runListCommand(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}
	if !cfg.TUIMode {
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func runListCommand() error {
	if err := capture.Initialize(); err != nil {
		return err
	}
	defer capture.Terminate()
	return capture.ListDevices()
}

func run(cfg *config.Config) error {
	// Probe the live capture path; any failure falls back to the
	// synthetic source so the rest of the pipeline is unaffected.
	src, engine, paUp, sourceName := openSource(cfg)
	if paUp {
		defer capture.Terminate()
	}

	var fftProc *fft.Processor
	if cfg.Analysis.FFTSize > 0 {
		var err error
		fftProc, err = fft.NewProcessor(cfg.Analysis.FFTSize, cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
	}

	var link *linksync.Client
	if cfg.Link.Enabled {
		var err error
		link, err = linksync.New(cfg.Link.Tempo, cfg.Link.Quantum)
		if err != nil {
			return err
		}
		link.SetStartStopSync(cfg.Link.StartStopSync)
		if err := link.Enable(true); err != nil {
			applog.Warnf("tempo sync unavailable: %v", err)
			link = nil
		} else {
			link.SetPlaying(true)
			defer link.Close()
		}
	}

	transports := []transport.Transport{transport.NewLoggingTransport()}
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		defer ws.Close()
		transports = append(transports, ws)
	}

	if cfg.Transport.UDPEnabled {
		if fftProc == nil {
			applog.Warnf("UDP spectrum stream disabled: analysis.fft_size is 0")
		} else {
			sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
			if err != nil {
				return err
			}
			defer sender.Close()

			publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, fftProc)
			if err != nil {
				return err
			}
			publisher.Start()
			defer publisher.Stop()
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Source:       src,
		SampleRate:   cfg.Audio.SampleRate,
		Bins:         cfg.Analysis.Bins,
		FrameWindow:  cfg.Audio.FramesPerBuffer,
		TickInterval: cfg.Analysis.TickInterval,
		FFT:          fftProc,
		Link:         link,
		Transports:   transports,
	})
	if err != nil {
		return err
	}
	snapshots := p.Subscribe()
	p.Start()
	defer p.Stop()

	if cfg.Recording.Enabled {
		if engine == nil {
			applog.Warnf("recording requires live capture, skipping")
		} else {
			if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
				return err
			}
			defer func() {
				if err := engine.StopRecording(); err != nil {
					applog.Errorf("error stopping recording: %v", err)
					return
				}
				fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
			}()
		}
	}

	if engine != nil {
		defer engine.Close()
	}

	// The TUI owns the terminal until the user quits; SIGTERM from
	// outside still tears everything down through the deferred stack.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	uiDone := make(chan error, 1)
	go func() {
		uiDone <- tui.Run(snapshots, sourceName)
	}()

	select {
	case err := <-uiDone:
		return err
	case <-done:
		return nil
	}
}

// openSource resolves the frame source: live capture when the audio
// backend and device cooperate, synthetic otherwise. Returns the source,
// the capture engine (nil for synthetic), whether PortAudio needs
// terminating, and a display name.
func openSource(cfg *config.Config) (source.FrameSource, *capture.Engine, bool, string) {
	if err := capture.Initialize(); err != nil {
		applog.Warnf("audio backend unavailable, using synthetic source: %v", err)
		return source.NewSynthetic(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer), nil, false, "synthetic"
	}

	ring, err := buffer.New(cfg.RingFrames(true), cfg.Audio.Channels)
	if err != nil {
		capture.Terminate()
		applog.Warnf("ring allocation failed, using synthetic source: %v", err)
		return source.NewSynthetic(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer), nil, false, "synthetic"
	}

	engine, err := capture.NewEngine(cfg, ring)
	if err == nil {
		err = engine.Start()
	}
	if err != nil {
		capture.Terminate()
		applog.Warnf("live capture unavailable, using synthetic source: %v", err)
		return source.NewSynthetic(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer), nil, false, "synthetic"
	}

	return source.NewLive(ring), engine, true, "live: " + engine.DeviceName()
}
