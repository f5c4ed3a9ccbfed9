// Package notify plays short audible cues around recording sessions.
package notify

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/generators"
	"github.com/faiface/beep/speaker"
)

const cueSampleRate = beep.SampleRate(44100)

var speakerOnce sync.Once

func initSpeaker() error {
	var err error
	speakerOnce.Do(func() {
		err = speaker.Init(cueSampleRate, cueSampleRate.N(time.Second/10))
	})
	return err
}

// StartCue marks the beginning of a recording.
func StartCue() error {
	return tone(880, 120*time.Millisecond)
}

// StopCue marks the end of a recording.
func StopCue() error {
	return tone(440, 120*time.Millisecond)
}

func tone(freq float64, dur time.Duration) error {
	if err := initSpeaker(); err != nil {
		return err
	}
	sine, err := generators.SinTone(cueSampleRate, int(freq))
	if err != nil {
		return err
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(beep.Take(cueSampleRate.N(dur), sine), beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
