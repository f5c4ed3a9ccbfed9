package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"flowdeck/internal/hume"
	"flowdeck/pkg/result"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDevice serves a fixed frame repeatedly and tracks lifecycle calls.
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	readErr error
	frame   []float32
	opened  bool
	closed  bool
	reads   int
}

func (d *fakeDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.opened = true
	d.closed = false
	return nil
}

func (d *fakeDevice) Read() ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return nil, d.readErr
	}
	d.reads++
	// Pace the capture loop so tests do not spin.
	time.Sleep(time.Millisecond)
	return d.frame, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.opened = false
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	blobs [][]byte
}

func (a *fakeAnalyzer) AnalyzeAudio(_ context.Context, audio []byte) result.Result[hume.Analysis] {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs = append(a.blobs, audio)
	return result.Fallback(hume.MockAnalysis())
}

func constantFrame(v float32) []float32 {
	out := make([]float32, 320)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRecordThenStop(t *testing.T) {
	dev := &fakeDevice{frame: constantFrame(0.25)}
	an := &fakeAnalyzer{}
	p := NewPipeline(dev, an, 0, discardLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.State() != StateRecording {
		t.Fatalf("expected recording state, got %s", p.State())
	}

	time.Sleep(20 * time.Millisecond)
	if lvl := p.Level(); lvl < 0.2 || lvl > 0.3 {
		t.Fatalf("expected level near 0.25, got %v", lvl)
	}

	capture, err := p.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", p.State())
	}
	if !dev.isClosed() {
		t.Fatal("device must be released after stop")
	}
	if p.Level() != 0 {
		t.Fatal("level must read 0 once stopped")
	}
	if len(an.blobs) != 1 {
		t.Fatalf("expected one analyzed blob, got %d", len(an.blobs))
	}
	if string(an.blobs[0][:4]) != "RIFF" {
		t.Fatal("analyzer must receive a WAV blob")
	}
	if capture.Transcript == "" || len(capture.Emotions) == 0 {
		t.Fatalf("expected analysis results, got %+v", capture)
	}
	if !capture.Degraded {
		t.Fatal("mock analysis must be marked degraded")
	}
}

func TestStartWhileRecording(t *testing.T) {
	dev := &fakeDevice{frame: constantFrame(0.1)}
	p := NewPipeline(dev, &fakeAnalyzer{}, 0, discardLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Close()

	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
}

func TestMicrophoneDenied(t *testing.T) {
	denied := errors.New("device unavailable")
	dev := &fakeDevice{openErr: denied}
	p := NewPipeline(dev, &fakeAnalyzer{}, 0, discardLogger())

	if err := p.Start(context.Background()); !errors.Is(err, denied) {
		t.Fatalf("expected open error, got %v", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("pipeline must stay idle, got %s", p.State())
	}
	if !errors.Is(p.LastError(), denied) {
		t.Fatal("open error must be recorded")
	}

	// A later attempt with a working device must succeed.
	dev.openErr = nil
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	p.Close()
}

func TestAutoStop(t *testing.T) {
	dev := &fakeDevice{frame: constantFrame(0.1)}
	an := &fakeAnalyzer{}
	p := NewPipeline(dev, an, 30*time.Millisecond, discardLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for p.State() != StateIdle {
		select {
		case <-deadline:
			t.Fatal("auto-stop never returned the pipeline to idle")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !dev.isClosed() {
		t.Fatal("auto-stop must release the device")
	}
	if len(an.blobs) != 1 {
		t.Fatalf("expected one analyzed blob, got %d", len(an.blobs))
	}
}

func TestManualStopCancelsAutoStop(t *testing.T) {
	dev := &fakeDevice{frame: constantFrame(0.1)}
	an := &fakeAnalyzer{}
	p := NewPipeline(dev, an, 50*time.Millisecond, discardLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Wait past the armed deadline: the timer must not fire a second stop.
	time.Sleep(80 * time.Millisecond)
	if got := len(an.blobs); got != 1 {
		t.Fatalf("expected exactly one analysis, got %d", got)
	}
}

type fakeStream struct {
	mu     sync.Mutex
	chunks int
	closed bool
}

func (f *fakeStream) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(chunk) < 4 || string(chunk[:4]) != "RIFF" {
		return errors.New("expected wav chunk")
	}
	f.chunks++
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestLiveStreamReceivesChunks(t *testing.T) {
	dev := &fakeDevice{frame: constantFrame(0.1)}
	stream := &fakeStream{}
	p := NewPipeline(dev, &fakeAnalyzer{}, 0, discardLogger()).
		WithLiveStream(func(on func([]hume.EmotionScore)) (LiveStream, error) {
			on([]hume.EmotionScore{{Emotion: "Interest", Value: 0.4}})
			return stream, nil
		})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 320-sample frames at ~1ms per read: wait for at least one 8000
	// sample chunk to flush.
	deadline := time.After(2 * time.Second)
	for {
		stream.mu.Lock()
		n := stream.chunks
		stream.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stream never received a chunk")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := p.LiveEmotions(); len(got) != 1 || got[0].Emotion != "Interest" {
		t.Fatalf("unexpected live emotions %v", got)
	}

	if _, err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	if !stream.closed {
		t.Fatal("stop must close the live stream")
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	p := NewPipeline(&fakeDevice{frame: constantFrame(0.1)}, &fakeAnalyzer{}, 0, discardLogger())

	capture, err := p.Stop(context.Background())
	if err != nil || capture != nil {
		t.Fatalf("idle stop must be a no-op, got %v %v", capture, err)
	}
}

func TestStopReleasesDeviceOnEmptyCapture(t *testing.T) {
	// Read errors immediately: no chunks are collected, but stop must
	// still close the device and land in idle.
	dev := &fakeDevice{readErr: errors.New("stream died")}
	p := NewPipeline(dev, &fakeAnalyzer{}, 0, discardLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := p.Stop(context.Background()); err == nil {
		t.Fatal("expected error for empty capture")
	}
	if p.State() != StateIdle {
		t.Fatalf("expected idle, got %s", p.State())
	}
	if !dev.isClosed() {
		t.Fatal("device must be released even when processing fails")
	}
}
