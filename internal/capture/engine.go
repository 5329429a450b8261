// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"pulseviz/internal/buffer"
	"pulseviz/internal/config"
	applog "pulseviz/internal/log"
)

// wavBitDepth is the sample width recordings are written at. Captured
// float32 samples are rescaled to full-range 32-bit ints.
const wavBitDepth = 32

// Engine captures float32 frames from an input device and writes them
// into the shared ring. It optionally tees the raw stream into a WAV
// file.
type Engine struct {
	config *config.Config
	ring   *buffer.Ring

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Recording state. isRecording gates the hot path atomically so
	// Start/StopRecording never block the stream callback.
	isRecording int32
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer
}

// NewEngine resolves the configured input device and prepares an engine
// writing into ring. PortAudio must already be initialized.
func NewEngine(cfg *config.Config, ring *buffer.Ring) (*Engine, error) {
	if ring == nil {
		return nil, fmt.Errorf("capture engine requires a ring buffer")
	}

	inputDevice, err := InputDevice(cfg.Audio.DeviceID)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cfg,
		ring:        ring,
		inputDevice: inputDevice,
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("capture: using device %q (latency %s)", inputDevice.Name, e.inputLatency)
	return e, nil
}

// DeviceName returns the resolved input device's name.
func (e *Engine) DeviceName() string {
	return e.inputDevice.Name
}

// Start opens and starts the input stream.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

// Stop stops and closes the input stream. After Stop returns the callback
// no longer runs, so the ring can be torn down safely.
func (e *Engine) Stop() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the stream callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Pre-allocated buffers only, no allocations
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.ring.Write(in)

	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		data := e.sampleBuf.Data[:len(in)]
		for i, sample := range in {
			data[i] = int(sample * 2147483647)
		}
		e.sampleBuf.Data = data

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			applog.Errorf("capture: error writing to WAV file: %v", err)
		}
	}
}

// StartRecording begins teeing captured samples into filename.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		wavBitDepth, e.config.Audio.Channels, 1)

	e.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: e.config.Audio.Channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data: make([]int, e.config.Audio.FramesPerBuffer*e.config.Audio.Channels),
	}

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("capture: recording to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. No-op when not recording.
func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}
	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}
	return nil
}

// Close stops any recording and the input stream.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return e.Stop()
}
