package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
)

const (
	sampleRate = beep.SampleRate(48000)
)

// SoundManager plays countdown cues through a single mixer on the speaker
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
}

// NewSoundManager creates a sound manager with volume in [0, 1]
func NewSoundManager(volume float64) *SoundManager {
	return &SoundManager{
		mixer:  &beep.Mixer{},
		volume: volume,
	}
}

// Initialize opens the speaker; failure leaves the manager silent
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return errors.Wrap(err, "init speaker")
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup stops all sounds and closes the speaker
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	sm.initialized = false
}

// PlayExpiry plays the chime for a countdown reaching zero
func (sm *SoundManager) PlayExpiry() {
	sm.play(func(vol float64) beep.Streamer { return CreateExpirySound(vol, sampleRate) })
}

// PlayWarning plays the blip used for the final seconds
func (sm *SoundManager) PlayWarning() {
	sm.play(func(vol float64) beep.Streamer { return CreateWarningSound(vol, sampleRate) })
}

func (sm *SoundManager) play(build func(vol float64) beep.Streamer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	s := build(sm.volume)
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}
