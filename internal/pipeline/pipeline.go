// SPDX-License-Identifier: MIT
/*
Package pipeline runs the analysis loop: pull a frame window from the
source, project it into band levels and a beat decision, and fan the
snapshot out to transports and in-process subscribers.

The tempo-sync state rides along in each snapshot but never influences
the audio analysis; renderers combine the two downstream.
*/
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"pulseviz/internal/analysis"
	"pulseviz/internal/fft"
	"pulseviz/internal/linksync"
	applog "pulseviz/internal/log"
	"pulseviz/internal/source"
	"pulseviz/internal/transport"
)

// Snapshot is one analysis result, shaped for JSON transport.
type Snapshot struct {
	Levels    analysis.Levels `json:"levels"`
	Beat      bool            `json:"beat"`
	Intensity float64         `json:"intensity"`
	Spectrum  []float64       `json:"spectrum"`
	Link      *linksync.State `json:"link,omitempty"`
	Timestamp int64           `json:"timestamp_ms"`
}

// Options configures a Pipeline. Source, SampleRate, Bins, and
// FrameWindow are required; the rest are optional.
type Options struct {
	Source       source.FrameSource
	SampleRate   float64
	Bins         int
	FrameWindow  int           // frames pulled per tick
	TickInterval time.Duration // <= 0 defaults to 16ms
	FFT          *fft.Processor
	Link         *linksync.Client
	Transports   []transport.Transport
}

// Pipeline drives the periodic analysis loop. Start/Stop manage its
// goroutine; Subscribe delivers snapshots in-process.
type Pipeline struct {
	source    source.FrameSource
	estimator *analysis.Estimator
	detector  *analysis.BeatDetector
	fft       *fft.Processor
	link      *linksync.Client

	transports []transport.Transport
	interval   time.Duration

	subMu sync.Mutex
	subs  []chan Snapshot

	// Pre-allocated per-tick buffers.
	frames      []float32
	spectrum    []float64
	frameWindow int

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker/doneChan across Start/Stop
}

// New validates opts and builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline: frame source cannot be nil")
	}
	if opts.Bins < analysis.MinBins {
		return nil, fmt.Errorf("pipeline: bins must be at least %d, got %d", analysis.MinBins, opts.Bins)
	}
	if opts.FrameWindow <= 0 {
		return nil, fmt.Errorf("pipeline: frame window must be positive, got %d", opts.FrameWindow)
	}

	estimator, err := analysis.NewEstimator(opts.SampleRate)
	if err != nil {
		return nil, err
	}

	interval := opts.TickInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	return &Pipeline{
		source:      opts.Source,
		estimator:   estimator,
		detector:    analysis.NewBeatDetector(),
		fft:         opts.FFT,
		link:        opts.Link,
		transports:  opts.Transports,
		interval:    interval,
		frames:      make([]float32, opts.FrameWindow*2),
		spectrum:    make([]float64, opts.Bins),
		frameWindow: opts.FrameWindow,
	}, nil
}

// Subscribe returns a channel receiving every snapshot until Stop. Slow
// receivers drop snapshots rather than stalling the loop.
func (p *Pipeline) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 4)
	p.subMu.Lock()
	p.subs = append(p.subs, ch)
	p.subMu.Unlock()
	return ch
}

// Start launches the analysis loop. Subsequent calls are no-ops.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("pipeline: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	applog.Infof("pipeline: starting (interval: %s, window: %d frames)", p.interval, p.frameWindow)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop halts the loop, waits for it, and closes subscriber channels.
// Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()

	p.subMu.Lock()
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
	p.subMu.Unlock()
	return nil
}

// tick runs one analysis pass and fans the snapshot out.
func (p *Pipeline) tick() {
	got := p.source.Pull(p.frames, p.frameWindow)

	p.estimator.AnalyzeInto(p.spectrum, p.frames, got)
	levels := analysis.ExtractLevels(p.spectrum)
	beat, intensity := p.detector.Detect(levels.Volume)

	if p.fft != nil {
		p.fft.Process(p.frames, got)
	}

	snap := Snapshot{
		Levels:    levels,
		Beat:      beat,
		Intensity: intensity,
		Spectrum:  append([]float64(nil), p.spectrum...),
		Timestamp: time.Now().UnixMilli(),
	}
	if p.link != nil {
		state := p.link.State()
		snap.Link = &state
	}

	for _, t := range p.transports {
		if err := t.Send(snap); err != nil {
			applog.Debugf("pipeline: transport send failed: %v", err)
		}
	}

	p.subMu.Lock()
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default: // receiver is behind, drop
		}
	}
	p.subMu.Unlock()
}
