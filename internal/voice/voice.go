// Package voice runs the microphone capture pipeline: record PCM
// frames, meter loudness, assemble a WAV blob on stop and hand it to
// the emotion analyzer.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"flowdeck/internal/hume"
	"flowdeck/pkg/audioconv"
	"flowdeck/pkg/result"
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// CaptureDevice is one microphone stream. Open starts delivering
// frames through Read until Close.
type CaptureDevice interface {
	Open() error
	Read() ([]float32, error)
	Close() error
}

// Analyzer consumes a finished WAV blob.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, audio []byte) result.Result[hume.Analysis]
}

// LiveStream receives audio chunks while a recording is running.
type LiveStream interface {
	SendAudio(chunk []byte) error
	Close() error
}

// StreamOpener opens a live prediction stream; emotions arrive through
// the callback as they are computed.
type StreamOpener func(onEmotions func([]hume.EmotionScore)) (LiveStream, error)

// one streamed chunk is half a second of 16 kHz audio
const streamChunkSamples = audioconv.TargetSampleRate / 2

// Capture is the outcome of one recording session.
type Capture struct {
	Transcript string
	Emotions   []hume.EmotionScore
	Confidence float64
	Degraded   bool
	Duration   time.Duration
}

type Pipeline struct {
	device   CaptureDevice
	analyzer Analyzer
	autoStop time.Duration
	logger   *slog.Logger

	streamOpen StreamOpener

	mu           sync.Mutex
	state        State
	level        float64
	chunks       [][]float32
	startedAt    time.Time
	lastErr      error
	last         *Capture
	stream       LiveStream
	streamBuf    []float32
	liveEmotions []hume.EmotionScore

	stopCh    chan struct{}
	doneCh    chan struct{}
	autoTimer *time.Timer
}

func NewPipeline(device CaptureDevice, analyzer Analyzer, autoStop time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		device:   device,
		analyzer: analyzer,
		autoStop: autoStop,
		logger:   logger,
		state:    StateIdle,
	}
}

// WithLiveStream enables incremental emotion analysis while recording.
// A stream open failure is logged and batch analysis still runs.
func (p *Pipeline) WithLiveStream(open StreamOpener) *Pipeline {
	p.streamOpen = open
	return p
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Level reports the current input loudness in [0,1]. It is zero
// whenever no recording is running.
func (p *Pipeline) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRecording {
		return 0
	}
	return p.level
}

// LastError returns the error recorded by the most recent session, if any.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// LastCapture returns the most recent completed capture.
func (p *Pipeline) LastCapture() *Capture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// LiveEmotions returns the latest streamed emotion scores, if a live
// stream is enabled and has produced any.
func (p *Pipeline) LiveEmotions() []hume.EmotionScore {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]hume.EmotionScore, len(p.liveEmotions))
	copy(out, p.liveEmotions)
	return out
}

func (p *Pipeline) setLiveEmotions(emotions []hume.EmotionScore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liveEmotions = emotions
}

var ErrAlreadyRecording = errors.New("recording already in progress")

// Start opens the device and begins collecting frames. A device open
// failure leaves the pipeline idle with the error recorded.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrAlreadyRecording
	}

	if err := p.device.Open(); err != nil {
		p.lastErr = err
		p.mu.Unlock()
		p.logger.Error("microphone open failed", "error", err)
		return err
	}

	p.state = StateRecording
	p.level = 0
	p.chunks = nil
	p.streamBuf = nil
	p.liveEmotions = nil
	p.lastErr = nil
	p.startedAt = time.Now()
	if p.streamOpen != nil {
		if stream, err := p.streamOpen(p.setLiveEmotions); err != nil {
			p.logger.Warn("live stream unavailable", "error", err)
		} else {
			p.stream = stream
		}
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	if p.autoStop > 0 {
		p.autoTimer = time.AfterFunc(p.autoStop, func() {
			p.logger.Info("auto-stop fired", "after", p.autoStop)
			p.Stop(context.WithoutCancel(ctx))
		})
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	p.logger.Info("recording started", "auto_stop", p.autoStop)
	go p.captureLoop(stopCh, doneCh)
	return nil
}

func (p *Pipeline) captureLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, err := p.device.Read()
		if err != nil {
			p.mu.Lock()
			p.lastErr = err
			p.mu.Unlock()
			p.logger.Warn("frame read failed", "error", err)
			return
		}

		chunk := make([]float32, len(frame))
		copy(chunk, frame)

		p.mu.Lock()
		p.chunks = append(p.chunks, chunk)
		p.level = rmsLevel(chunk)
		var streamChunk []float32
		if p.stream != nil {
			p.streamBuf = append(p.streamBuf, chunk...)
			if len(p.streamBuf) >= streamChunkSamples {
				streamChunk = p.streamBuf
				p.streamBuf = nil
			}
		}
		p.mu.Unlock()

		if streamChunk != nil {
			p.sendStreamChunk(streamChunk)
		}
	}
}

func (p *Pipeline) sendStreamChunk(samples []float32) {
	blob, err := audioconv.EncodeWAV(samples)
	if err != nil {
		p.logger.Warn("stream chunk encode failed", "error", err)
		return
	}

	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	if stream == nil {
		return
	}
	if err := stream.SendAudio(blob); err != nil {
		p.logger.Warn("live stream send failed, disabling", "error", err)
		stream.Close()
		p.mu.Lock()
		p.stream = nil
		p.mu.Unlock()
	}
}

// Stop ends the session, releases the device, and submits the captured
// audio. It always returns the pipeline to idle. Calling it while idle
// is a no-op.
func (p *Pipeline) Stop(ctx context.Context) (*Capture, error) {
	p.mu.Lock()
	if p.state != StateRecording {
		p.mu.Unlock()
		return nil, nil
	}
	p.state = StateProcessing
	p.level = 0
	if p.autoTimer != nil {
		p.autoTimer.Stop()
		p.autoTimer = nil
	}
	close(p.stopCh)
	doneCh := p.doneCh
	duration := time.Since(p.startedAt)
	p.mu.Unlock()

	<-doneCh

	p.mu.Lock()
	stream := p.stream
	p.stream = nil
	p.streamBuf = nil
	p.mu.Unlock()
	if stream != nil {
		if err := stream.Close(); err != nil {
			p.logger.Warn("stream close failed", "error", err)
		}
	}

	if err := p.device.Close(); err != nil {
		p.logger.Warn("device close failed", "error", err)
	}

	p.mu.Lock()
	chunks := p.chunks
	p.chunks = nil
	p.mu.Unlock()

	capture, err := p.process(ctx, chunks, duration)

	p.mu.Lock()
	p.state = StateIdle
	p.lastErr = err
	p.last = capture
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("capture processing failed", "error", err)
		return nil, err
	}
	p.logger.Info("recording finished",
		"duration", duration, "emotions", len(capture.Emotions), "degraded", capture.Degraded)
	return capture, nil
}

func (p *Pipeline) process(ctx context.Context, chunks [][]float32, duration time.Duration) (*Capture, error) {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 {
		return nil, errors.New("no audio captured")
	}
	samples := make([]float32, 0, total)
	for _, c := range chunks {
		samples = append(samples, c...)
	}

	blob, err := audioconv.EncodeWAV(samples)
	if err != nil {
		return nil, err
	}

	analysis := p.analyzer.AnalyzeAudio(ctx, blob)
	return &Capture{
		Transcript: analysis.Value.Transcript,
		Emotions:   analysis.Value.Emotions,
		Confidence: analysis.Value.Confidence,
		Degraded:   analysis.Degraded(),
		Duration:   duration,
	}, nil
}

// Close tears down whatever is live. Safe to call at any time.
func (p *Pipeline) Close() {
	p.mu.Lock()
	recording := p.state == StateRecording
	p.mu.Unlock()

	if recording {
		if _, err := p.Stop(context.Background()); err != nil {
			p.logger.Warn("shutdown stop failed", "error", err)
		}
	}
}

func rmsLevel(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	level := math.Sqrt(sum / float64(len(frame)))
	if level > 1 {
		level = 1
	}
	return level
}
