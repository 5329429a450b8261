// SPDX-License-Identifier: MIT
/*
Package linksync keeps a shared musical timeline (tempo, beat, phase)
across peers on the local network. Each process runs a session clock and
announces its tempo over UDP multicast; peers converge on whichever
tempo was set most recently.

The beat grid is derived, never stored: given a tempo anchor the current
beat position is pure clock math, so State() can be called at any rate
without drift.
*/
package linksync

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	applog "pulseviz/internal/log"
)

// State is a snapshot of the shared timeline, safe to hand to renderers.
type State struct {
	Enabled       bool    `json:"enabled"`
	Connected     bool    `json:"connected"`
	Peers         int     `json:"num_peers"`
	Tempo         float64 `json:"tempo"`
	Beat          float64 `json:"beat"`
	Phase         float64 `json:"phase"`
	Quantum       float64 `json:"quantum"`
	StartStopSync bool    `json:"start_stop_sync"`
	Playing       bool    `json:"is_playing"`
}

// Client maintains the local session clock and, when enabled, the peer
// discovery loop. All methods are safe for concurrent use.
type Client struct {
	mu sync.Mutex

	enabled       bool
	tempo         float64
	quantum       float64
	startStopSync bool
	playing       bool

	// Beat anchor: at anchorTime the timeline was at anchorBeat. Tempo
	// changes re-anchor so the beat count stays continuous.
	anchorBeat float64
	anchorTime time.Time
	tempoAt    time.Time

	sessionID  uint64
	discoverer *discoverer

	// now is swappable so timeline math is testable with a fixed clock.
	now func() time.Time
}

// New creates a disabled client with the given initial tempo and quantum.
func New(tempo, quantum float64) (*Client, error) {
	if tempo < 20 || tempo > 999 {
		return nil, fmt.Errorf("tempo must be in [20, 999] BPM, got %f", tempo)
	}
	if quantum <= 0 {
		return nil, fmt.Errorf("quantum must be positive, got %f", quantum)
	}

	c := &Client{
		tempo:     tempo,
		quantum:   quantum,
		sessionID: rand.Uint64(),
		now:       time.Now,
	}
	c.tempoAt = c.now()
	return c, nil
}

// Enable turns session participation on or off. Enabling starts the
// multicast discovery loop; disabling stops it and clears the peer table.
func (c *Client) Enable(enabled bool) error {
	c.mu.Lock()

	if enabled == c.enabled {
		c.mu.Unlock()
		return nil
	}

	if enabled {
		d, err := newDiscoverer(c)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to start peer discovery: %w", err)
		}
		c.enabled = true
		c.discoverer = d
		c.mu.Unlock()
		applog.Infof("linksync: enabled (session %x)", c.sessionID)
		return nil
	}

	c.enabled = false
	d := c.discoverer
	c.discoverer = nil
	c.mu.Unlock()

	// stop joins goroutines that re-enter the client under c.mu, so it
	// must run after the lock is released.
	if d != nil {
		d.stop()
	}
	applog.Infof("linksync: disabled")
	return nil
}

// SetTempo changes the session tempo, re-anchoring the beat grid so the
// current beat position does not jump. Propagated to peers on the next
// announce.
func (c *Client) SetTempo(bpm float64) error {
	if bpm < 20 || bpm > 999 {
		return fmt.Errorf("tempo must be in [20, 999] BPM, got %f", bpm)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTempoLocked(bpm, c.now())
	return nil
}

// setTempoLocked applies a tempo with its authorship timestamp. Caller
// holds c.mu.
func (c *Client) setTempoLocked(bpm float64, at time.Time) {
	now := c.now()
	c.anchorBeat = c.beatAtLocked(now)
	c.anchorTime = now
	c.tempo = bpm
	c.tempoAt = at
}

// SetQuantum sets the bar length in beats used for phase wrapping.
func (c *Client) SetQuantum(quantum float64) error {
	if quantum <= 0 {
		return fmt.Errorf("quantum must be positive, got %f", quantum)
	}
	c.mu.Lock()
	c.quantum = quantum
	c.mu.Unlock()
	return nil
}

// SetStartStopSync toggles whether transport start/stop follows peers.
func (c *Client) SetStartStopSync(enabled bool) {
	c.mu.Lock()
	c.startStopSync = enabled
	c.mu.Unlock()
}

// SetPlaying starts or stops the transport. Starting resets the beat
// grid to zero at the current instant.
func (c *Client) SetPlaying(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if playing == c.playing {
		return
	}
	c.playing = playing
	if playing {
		c.anchorBeat = 0
		c.anchorTime = c.now()
	} else {
		// Freeze the beat count where it stopped.
		c.anchorBeat = c.beatAtLocked(c.now())
	}
}

// beatAtLocked returns the beat position at t. Caller holds c.mu.
func (c *Client) beatAtLocked(t time.Time) float64 {
	if !c.playing {
		return c.anchorBeat
	}
	elapsed := t.Sub(c.anchorTime).Seconds()
	return c.anchorBeat + elapsed*c.tempo/60.0
}

// State returns the current timeline snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	beat := c.beatAtLocked(c.now())
	phase := math.Mod(beat, c.quantum) / c.quantum

	peers := 0
	if c.discoverer != nil {
		peers = c.discoverer.peerCount()
	}

	return State{
		Enabled:       c.enabled,
		Connected:     peers > 0,
		Peers:         peers,
		Tempo:         c.tempo,
		Beat:          beat,
		Phase:         phase,
		Quantum:       c.quantum,
		StartStopSync: c.startStopSync,
		Playing:       c.playing,
	}
}

// ForcePeersRescan drops the peer table; peers re-appear as their next
// announces arrive. Useful after a network change.
func (c *Client) ForcePeersRescan() {
	c.mu.Lock()
	d := c.discoverer
	c.mu.Unlock()

	if d != nil {
		d.clearPeers()
		applog.Debugf("linksync: peer table cleared")
	}
}

// adoptTempo applies a tempo received from a peer if its authorship
// timestamp is newer than ours. Latest writer wins.
func (c *Client) adoptTempo(bpm float64, at time.Time) {
	if bpm < 20 || bpm > 999 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !at.After(c.tempoAt) {
		return
	}
	applog.Debugf("linksync: adopting peer tempo %.1f BPM", bpm)
	c.setTempoLocked(bpm, at)
}

// adoptPlaying follows a peer transport change when start/stop sync is on.
func (c *Client) adoptPlaying(playing bool) {
	c.mu.Lock()
	follow := c.startStopSync
	current := c.playing
	c.mu.Unlock()

	if !follow || playing == current {
		return
	}
	applog.Infof("linksync: peer transport %s", map[bool]string{true: "started", false: "stopped"}[playing])
	c.SetPlaying(playing)
}

// announceState returns the fields the discovery loop broadcasts.
func (c *Client) announceState() (sessionID uint64, tempo float64, tempoAt time.Time, playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, c.tempo, c.tempoAt, c.playing
}

// Close disables the client and releases the discovery socket.
func (c *Client) Close() error {
	return c.Enable(false)
}
