// SPDX-License-Identifier: MIT
package linksync

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	applog "pulseviz/internal/log"
)

const (
	multicastGroup   = "224.0.0.251:20808"
	announceInterval = 1 * time.Second
	peerTimeout      = 3 * time.Second

	announceMagic = "PVLK"
	announceSize  = 4 + 1 + 8 + 8 + 8 + 1 // magic, version, session, tempo, tempoAt, playing
	protoVersion  = 1
)

// announce is the wire form of one peer heartbeat.
type announce struct {
	SessionID uint64
	Tempo     float64
	TempoAt   int64 // ns since epoch, tempo authorship time
	Playing   bool
}

func encodeAnnounce(a announce) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, announceSize))
	buf.WriteString(announceMagic)
	buf.WriteByte(protoVersion)
	binary.Write(buf, binary.BigEndian, a.SessionID)
	binary.Write(buf, binary.BigEndian, a.Tempo)
	binary.Write(buf, binary.BigEndian, a.TempoAt)
	if a.Playing {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func decodeAnnounce(data []byte) (announce, error) {
	var a announce
	if len(data) < announceSize {
		return a, fmt.Errorf("announce too short: %d bytes", len(data))
	}
	if string(data[0:4]) != announceMagic {
		return a, fmt.Errorf("bad announce magic")
	}
	if data[4] != protoVersion {
		return a, fmt.Errorf("unsupported announce version %d", data[4])
	}
	a.SessionID = binary.BigEndian.Uint64(data[5:13])
	a.Tempo = math.Float64frombits(binary.BigEndian.Uint64(data[13:21]))
	a.TempoAt = int64(binary.BigEndian.Uint64(data[21:29]))
	a.Playing = data[29] != 0
	return a, nil
}

// discoverer broadcasts announces for the owning client and tracks peers
// heard on the multicast group.
type discoverer struct {
	client *Client
	conn   *net.UDPConn
	group  *net.UDPAddr

	mu       sync.Mutex
	peers    map[uint64]time.Time // session ID -> last seen
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newDiscoverer(c *Client) (*discoverer, error) {
	group, err := net.ResolveUDPAddr("udp4", multicastGroup)
	if err != nil {
		return nil, err
	}

	// Listening on the group address receives peers' announces; sending
	// to it reaches them. One socket serves both directions.
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, err
	}
	conn.SetReadBuffer(4096)

	d := &discoverer{
		client:   c,
		conn:     conn,
		group:    group,
		peers:    make(map[uint64]time.Time),
		doneChan: make(chan struct{}),
	}

	d.wg.Add(2)
	go d.announceLoop()
	go d.readLoop()
	return d, nil
}

func (d *discoverer) announceLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(announceInterval)
	defer ticker.Stop()

	d.sendAnnounce()
	for {
		select {
		case <-ticker.C:
			d.sendAnnounce()
			d.prunePeers()
		case <-d.doneChan:
			return
		}
	}
}

func (d *discoverer) sendAnnounce() {
	sessionID, tempo, tempoAt, playing := d.client.announceState()
	packet := encodeAnnounce(announce{
		SessionID: sessionID,
		Tempo:     tempo,
		TempoAt:   tempoAt.UnixNano(),
		Playing:   playing,
	})
	if _, err := d.conn.WriteToUDP(packet, d.group); err != nil {
		applog.Debugf("linksync: announce failed: %v", err)
	}
}

func (d *discoverer) readLoop() {
	defer d.wg.Done()

	buf := make([]byte, 256)
	for {
		d.conn.SetReadDeadline(time.Now().Add(announceInterval))
		n, _, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-d.doneChan:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			applog.Warnf("linksync: read error: %v", err)
			continue
		}

		a, err := decodeAnnounce(buf[:n])
		if err != nil {
			continue // not ours
		}
		d.handleAnnounce(a)
	}
}

func (d *discoverer) handleAnnounce(a announce) {
	ownID, _, _, _ := d.client.announceState()
	if a.SessionID == ownID {
		return // our own multicast loopback
	}

	d.mu.Lock()
	_, known := d.peers[a.SessionID]
	d.peers[a.SessionID] = time.Now()
	d.mu.Unlock()
	if !known {
		applog.Infof("linksync: peer %x joined", a.SessionID)
	}

	d.client.adoptTempo(a.Tempo, time.Unix(0, a.TempoAt))
	d.client.adoptPlaying(a.Playing)
}

func (d *discoverer) prunePeers() {
	cutoff := time.Now().Add(-peerTimeout)

	d.mu.Lock()
	for id, seen := range d.peers {
		if seen.Before(cutoff) {
			delete(d.peers, id)
			applog.Infof("linksync: peer %x left", id)
		}
	}
	d.mu.Unlock()
}

func (d *discoverer) peerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.peers)
}

func (d *discoverer) clearPeers() {
	d.mu.Lock()
	d.peers = make(map[uint64]time.Time)
	d.mu.Unlock()
}

func (d *discoverer) stop() {
	d.stopOnce.Do(func() {
		close(d.doneChan)
		d.conn.Close()
	})
	d.wg.Wait()
}
