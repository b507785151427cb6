// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"scope/internal/log"
	"scope/internal/transport"
)

// MaxValues is the largest spectrum that fits one UDP datagram after the
// header. Longer spectra are truncated.
const MaxValues = (65507 - HeaderSize) / 4

// HeaderSize is the byte length of the packet header.
const HeaderSize = 4 + 8 + 2

// UDPPublisher periodically packs the newest spectrum into the binary format
// below and sends it with a UDPSender. Nothing is sent until a spectrum is
// available.
type UDPPublisher struct {
	sender   *UDPSender
	provider transport.SpectrumProvider
	interval time.Duration
	logger   *log.Logger

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Reused between packets.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 33ms.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, provider transport.SpectrumProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("UDPPublisher: spectrum provider cannot be nil")
	}

	logger := log.Named("udp")
	if interval <= 0 {
		interval = 33 * time.Millisecond
		logger.Warnf("invalid publish interval, defaulting to %s", interval)
	}

	return &UDPPublisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		logger:       logger,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.logger.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.logger.Infof("publisher started (interval %s)", p.interval)
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

// Stop signals the publisher goroutine to terminate and waits for it.
// It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Infof("publisher stopped")
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Value Count  |      Spectrum (dB)      |
|      (uint32)     |  (int64, ns, epoch)   |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

Non-finite bins are sent as IEEE Inf/NaN.
*/

// packPacket writes one packet into buf.
func packPacket(buf *bytes.Buffer, seq uint32, timestamp int64, values []float32) error {
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, values)
	}
	return err
}

func (p *UDPPublisher) buildAndSendPacket() {
	res, ok := p.provider.Spectrum()
	if !ok || len(res.Spectrum) == 0 {
		return
	}

	spectrum := res.Spectrum
	if len(spectrum) > MaxValues {
		p.logger.Warnf("spectrum of %d bins truncated to %d", len(spectrum), MaxValues)
		spectrum = spectrum[:MaxValues]
	}

	if cap(p.f32Buffer) < len(spectrum) {
		p.f32Buffer = make([]float32, len(spectrum))
	}
	p.f32Buffer = p.f32Buffer[:len(spectrum)]
	for i, v := range spectrum {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	if err := packPacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), p.f32Buffer); err != nil {
		p.logger.Errorf("error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		p.logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
