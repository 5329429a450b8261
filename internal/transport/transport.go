// SPDX-License-Identifier: MIT
// Package transport defines the boundary for fanning analysis output out
// of the process, with WebSocket and logging implementations. The UDP
// binary publisher lives in the udp subpackage.
package transport

// Transport sends processed analysis data or events to an external
// consumer. Implementations must be safe for concurrent calls and must
// not block the analysis loop: drop rather than wait.
type Transport interface {
	Send(data any) error
	Close() error
}
