package rpi

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/roman-kulish/rocket-flight-control/internal/hw"
)

const spiSpeed = 1_000_000

// MCP3008 reads the proximity sensor through one channel of an MCP3008 ADC
type MCP3008 struct {
	mu      sync.Mutex
	channel uint8
}

// NewMCP3008 starts the SPI0 bus with chip select 0
func NewMCP3008(channel uint8) (*MCP3008, error) {
	if channel > 7 {
		return nil, hw.NewConfigError(fmt.Sprintf("rpi.MCP3008: channel must be between 0 and 7: %d given", channel))
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return nil, hw.NewRuntimeError("starting SPI", err)
	}

	rpio.SpiSpeed(spiSpeed)
	rpio.SpiChipSelect(0)

	return &MCP3008{channel: channel}, nil
}

// ReadProximity returns the raw 10 bit conversion of the channel
func (m *MCP3008) ReadProximity() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// start bit, single ended mode + channel, don't care
	buffer := []byte{1, (8 + m.channel) << 4, 0}
	rpio.SpiExchange(buffer)

	return int(buffer[1]&3)<<8 | int(buffer[2]), nil
}

// Close stops the SPI bus
func (m *MCP3008) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	return nil
}
