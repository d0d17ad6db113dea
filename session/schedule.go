package session

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Timer is a pending delayed callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Implementations must not call f from
// within AfterFunc itself.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules callbacks on wall-clock timers.
var SystemScheduler Scheduler = systemScheduler{}

// Picker draws a uniform index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

func newPicker() Picker {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Delays control the pacing of bot messages. Filler, NextQuestion and
// Completion are all measured from the moment an answer is submitted.
type Delays struct {
	Greeting     time.Duration `yaml:"greeting"`
	Filler       time.Duration `yaml:"filler"`
	NextQuestion time.Duration `yaml:"next_question"`
	Completion   time.Duration `yaml:"completion"`
}

// DefaultDelays mirrors the pacing of a human typing a short reply.
func DefaultDelays() Delays {
	return Delays{
		Greeting:     time.Second,
		Filler:       time.Second,
		NextQuestion: 2500 * time.Millisecond,
		Completion:   3 * time.Second,
	}
}

var ErrInvalidDelays = errors.New("invalid delays")

// Validate requires the filler to land strictly before whatever follows it.
func (d Delays) Validate() error {
	if d.Greeting < 0 || d.Filler < 0 || d.NextQuestion < 0 || d.Completion < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidDelays)
	}
	if d.Filler >= d.NextQuestion {
		return fmt.Errorf("%w: filler (%s) must come before next question (%s)", ErrInvalidDelays, d.Filler, d.NextQuestion)
	}
	if d.Filler >= d.Completion {
		return fmt.Errorf("%w: filler (%s) must come before completion (%s)", ErrInvalidDelays, d.Filler, d.Completion)
	}
	return nil
}
