// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "pulseviz/internal/log"
)

// MagnitudeSource provides the latest spectrum magnitudes. Implemented by
// the FFT processor; decouples the publisher from the analysis packages.
type MagnitudeSource interface {
	// MagnitudesInto copies the latest magnitudes into dst, which must be
	// exactly Bins() long.
	MagnitudesInto(dst []float64) error
	// Bins returns the number of magnitude values per spectrum.
	Bins() int
}

/*
Packet layout (BigEndian):

	|<-- 4 Bytes -->|<---- 8 Bytes ---->|<- 2 Bytes ->|<-- N * 4 Bytes -->|
	+---------------+-------------------+-------------+-------------------+
	|   Sequence    |     Timestamp     |  Magnitude  |    Magnitudes     |
	|   (uint32)    | (ns since epoch)  |    Count    |   (N * float32)   |
	+---------------+-------------------+-------------+-------------------+
*/

// Publisher periodically fetches spectrum magnitudes, packs them into the
// binary packet format above, and sends them via a Sender. Start/Stop
// manage its goroutine.
type Publisher struct {
	sender   *Sender
	spectrum MagnitudeSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker/doneChan across Start/Stop

	sequenceNum uint32

	// Pre-allocated buffers keep the per-tick path allocation free.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher sending one packet per interval.
// Intervals <= 0 default to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender, spectrum MagnitudeSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if spectrum == nil {
		return nil, fmt.Errorf("udp publisher: magnitude source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("udp publisher: invalid interval, defaulting to %s", interval)
	}

	bins := spectrum.Bins()
	applog.Infof("udp publisher: initializing (interval: %s, bins: %d)", interval, bins)

	return &Publisher{
		sender:       sender,
		spectrum:     spectrum,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Safe to call on a running
// publisher; subsequent calls are no-ops.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Idempotent.
func (p *Publisher) Stop() error {
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
	return nil
}

// buildAndSendPacket fetches magnitudes, packs them, and sends one packet.
func (p *Publisher) buildAndSendPacket() {
	if err := p.spectrum.MagnitudesInto(p.magBuffer); err != nil {
		applog.Errorf("udp publisher: error getting magnitudes: %v", err)
		return
	}

	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	count := uint16(len(p.f32Buffer))

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, count)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		applog.Errorf("udp publisher: error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Debugf("udp publisher: send failed: %v", err)
	}
}

// Close stops the publisher. Implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}
