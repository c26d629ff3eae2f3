package telemetry

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

const DefaultBaudRate = 9600

// SerialOpener opens the altimeter serial port for each frame
type SerialOpener struct {
	Port     string
	BaudRate int
}

func (o SerialOpener) Open() (io.ReadCloser, error) {
	baudRate := o.BaudRate
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(o.Port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port '%s': %w", o.Port, err)
	}

	return port, nil
}
