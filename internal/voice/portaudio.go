package voice

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"flowdeck/pkg/audioconv"
)

const captureFrameSize = 320 // 20ms at 16kHz

// Microphone is the portaudio-backed CaptureDevice: default input
// device, 16 kHz mono float32.
type Microphone struct {
	stream *portaudio.Stream
	buf    []float32
}

func NewMicrophone() *Microphone {
	return &Microphone{buf: make([]float32, captureFrameSize)}
}

func (m *Microphone) Open() error {
	if m.stream != nil {
		return errors.New("microphone already open")
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audioconv.TargetSampleRate), len(m.buf), m.buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	m.stream = stream
	return nil
}

func (m *Microphone) Read() ([]float32, error) {
	if m.stream == nil {
		return nil, errors.New("microphone not open")
	}
	if err := m.stream.Read(); err != nil {
		return nil, err
	}
	return m.buf, nil
}

func (m *Microphone) Close() error {
	if m.stream == nil {
		return nil
	}
	if err := m.stream.Stop(); err != nil {
		m.stream.Close()
		m.stream = nil
		return err
	}
	err := m.stream.Close()
	m.stream = nil
	return err
}
