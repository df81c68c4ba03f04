package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// WaveType selects the oscillator shape
type WaveType int

const (
	WaveSine   WaveType = iota // Expiry chime
	WaveSquare                 // Warning blip
)

const (
	expiryNoteDuration = 180 * time.Millisecond
	expiryNoteGap      = 60 * time.Millisecond
	expiryAttack       = 5 * time.Millisecond
	expiryRelease      = 120 * time.Millisecond

	warningDuration = 40 * time.Millisecond
	warningAttack   = 2 * time.Millisecond
	warningRelease  = 25 * time.Millisecond
)

// at returns the wave value for phase in [0, 1)
func (w WaveType) at(phase float64) float64 {
	if w == WaveSquare {
		if phase < 0.5 {
			return 1
		}
		return -1
	}
	return math.Sin(2 * math.Pi * phase)
}

// NewOscillator returns a mono tone of freq Hz on both channels, ending after duration
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	left := rate.N(duration)
	step := freq / float64(rate)
	phase := 0.0

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left <= 0 {
			return 0, false
		}
		n := min(len(samples), left)
		for i := range samples[:n] {
			v := wave.at(phase)
			samples[i] = [2]float64{v, v}
			_, phase = math.Modf(phase + step)
		}
		left -= n
		return n, true
	})
}

// NewEnvelope cuts s at duration and applies linear fades over attack and release
// With no room for a sustain the release takes over right after the attack
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	total, att, rel := rate.N(duration), rate.N(attack), rate.N(release)
	releaseStart := max(att, total-rel)

	gain := func(pos int) float64 {
		switch {
		case pos >= releaseStart && rel > 0:
			return max(0, float64(total-pos)/float64(rel))
		case pos < att:
			return float64(pos) / float64(att)
		default:
			return 1
		}
	}

	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n, ok := s.Stream(samples[:min(len(samples), total-pos)])
		for i := range samples[:n] {
			g := gain(pos)
			samples[i][0] *= g
			samples[i][1] *= g
			pos++
		}
		return n, ok
	})
}

// withVolume scales s linearly by vol, zero is silence
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	return &effects.Gain{Streamer: s, Gain: max(vol, 0) - 1}
}

// CreateExpirySound generates a descending two-note chime (E6 then B5)
func CreateExpirySound(volume float64, rate beep.SampleRate) beep.Streamer {
	hi := NewEnvelope(NewOscillator(1318.51, expiryNoteDuration, WaveSine, rate),
		expiryNoteDuration, expiryAttack, expiryRelease, rate)
	lo := NewEnvelope(NewOscillator(987.77, expiryNoteDuration, WaveSine, rate),
		expiryNoteDuration, expiryAttack, expiryRelease, rate)

	return withVolume(beep.Seq(hi, beep.Silence(rate.N(expiryNoteGap)), lo), volume)
}

// CreateWarningSound generates a short square blip for the final seconds
func CreateWarningSound(volume float64, rate beep.SampleRate) beep.Streamer {
	osc := NewOscillator(660, warningDuration, WaveSquare, rate)
	shaped := NewEnvelope(osc, warningDuration, warningAttack, warningRelease, rate)
	return withVolume(shaped, volume*0.4)
}
