package entity

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator mints identifiers for chats, messages and events.
type IDGenerator interface {
	NewID() uuid.UUID
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type randomIDs struct{}

func (randomIDs) NewID() uuid.UUID { return uuid.New() }

type systemClock struct{}

// Now is truncated to microseconds so timestamps survive a Postgres round trip.
func (systemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() uuid.UUID

func (f IDGeneratorFunc) NewID() uuid.UUID { return f() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type env struct {
	ids   IDGenerator
	clock Clock
}

// Option overrides the identifier generator or clock used by constructors.
type Option func(*env)

func WithIDGenerator(g IDGenerator) Option {
	return func(e *env) {
		if g != nil {
			e.ids = g
		}
	}
}

func WithClock(c Clock) Option {
	return func(e *env) {
		if c != nil {
			e.clock = c
		}
	}
}

func newEnv(opts []Option) env {
	e := env{ids: randomIDs{}, clock: systemClock{}}
	for _, o := range opts {
		o(&e)
	}
	return e
}
