// SPDX-License-Identifier: MIT
package transport

import (
	"scope/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of every frame at debug level.
type LoggingTransport struct {
	logger *log.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{logger: log.Named("transport")}
	lt.logger.Infof("using logging transport")
	return lt
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	switch f := data.(type) {
	case SpectrumFrame:
		lt.logger.Debugf("spectrum %d from stream %s: %d bins", f.Sequence, f.Stream, f.Bins)
	case *SpectrumFrame:
		lt.logger.Debugf("spectrum %d from stream %s: %d bins", f.Sequence, f.Stream, f.Bins)
	default:
		lt.logger.Debugf("received %T", data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	lt.logger.Debugf("logging transport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
