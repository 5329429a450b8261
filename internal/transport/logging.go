// SPDX-License-Identifier: MIT
package transport

import applog "pulseviz/internal/log"

// LoggingTransport writes snapshots to the application log at debug
// level. Useful as a stand-in consumer when no network transport is
// configured.
type LoggingTransport struct{}

// NewLoggingTransport returns a LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the snapshot. Never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("transport: %+v", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
