package tfa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state int
type event int

const (
	idle state = iota
	running
	done
)

const (
	begin event = iota
	stop
	unused
)

func newMachine() *Automaton[state, event] {
	a := New[state, event](idle)
	a.AddEventTransition(idle, begin, running)
	a.AddEventTransition(running, stop, idle)
	a.AddTimeoutTransition(running, 100*time.Millisecond, done)
	return a
}

func TestNew(t *testing.T) {
	a := New[state, event](running)
	assert.Equal(t, running, a.State())
	assert.Equal(t, running, a.Start())
	assert.Equal(t, time.Duration(0), a.SinceEntry())
	assert.False(t, a.Feed(begin))
	assert.False(t, a.Elapsed(time.Hour))
	assert.Equal(t, running, a.State())
}

func TestFeed(t *testing.T) {
	a := newMachine()

	assert.True(t, a.Feed(begin))
	assert.Equal(t, running, a.State())

	assert.True(t, a.Feed(stop))
	assert.Equal(t, idle, a.State())
}

func TestFeed_UnregisteredEventIsNoop(t *testing.T) {
	a := newMachine()
	a.Elapsed(30 * time.Millisecond)

	for _, e := range []event{stop, unused} {
		assert.False(t, a.Feed(e))
		assert.Equal(t, idle, a.State())
		assert.Equal(t, 30*time.Millisecond, a.SinceEntry())
	}
}

func TestElapsed_Timeout(t *testing.T) {
	a := newMachine()
	require.True(t, a.Feed(begin))

	// 99ms cumulative never fires
	for i := 0; i < 9; i++ {
		assert.False(t, a.Elapsed(11*time.Millisecond))
	}
	assert.Equal(t, running, a.State())
	assert.Equal(t, 99*time.Millisecond, a.SinceEntry())

	assert.True(t, a.Elapsed(time.Millisecond))
	assert.Equal(t, done, a.State())
	assert.Equal(t, time.Duration(0), a.SinceEntry())

	// done has no timeout, nothing else happens
	assert.False(t, a.Elapsed(time.Second))
	assert.Equal(t, done, a.State())
}

func TestElapsed_LateTimeoutFiresOnce(t *testing.T) {
	a := New[state, event](idle)
	a.AddTimeoutTransition(idle, 100*time.Millisecond, running)
	a.AddTimeoutTransition(running, 100*time.Millisecond, done)

	// A single long tick only takes one transition
	assert.True(t, a.Elapsed(time.Second))
	assert.Equal(t, running, a.State())
	assert.Equal(t, time.Duration(0), a.SinceEntry())
}

func TestElapsed_ZeroTimeout(t *testing.T) {
	a := New[state, event](idle)
	a.AddTimeoutTransition(idle, 0, running)

	assert.True(t, a.Elapsed(0))
	assert.Equal(t, running, a.State())
}

func TestFeed_ResetsSinceEntry(t *testing.T) {
	a := newMachine()
	a.Elapsed(50 * time.Millisecond)
	require.True(t, a.Feed(begin))
	assert.Equal(t, time.Duration(0), a.SinceEntry())

	// The time spent in idle does not count towards the running timeout
	assert.False(t, a.Elapsed(60*time.Millisecond))
	assert.Equal(t, running, a.State())
}

func TestAdd_Overwrites(t *testing.T) {
	a := newMachine()
	a.AddEventTransition(idle, begin, done)
	a.AddTimeoutTransition(running, time.Second, idle)

	require.True(t, a.Feed(begin))
	assert.Equal(t, done, a.State())

	b := newMachine()
	b.AddTimeoutTransition(running, time.Second, idle)
	require.True(t, b.Feed(begin))
	assert.False(t, b.Elapsed(500*time.Millisecond))
	assert.True(t, b.Elapsed(500*time.Millisecond))
	assert.Equal(t, idle, b.State())
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		table   []Transition[state, event]
		wantErr error
	}{
		{
			name: "valid",
			table: []Transition[state, event]{
				Event(idle, begin, running),
				Event(running, stop, idle),
				Timeout[state, event](running, time.Second, done),
			},
		},
		{
			name: "duplicate event",
			table: []Transition[state, event]{
				Event(idle, begin, running),
				Event(idle, begin, done),
			},
			wantErr: ErrDuplicateTransition,
		},
		{
			name: "duplicate timeout",
			table: []Transition[state, event]{
				Timeout[state, event](running, time.Second, done),
				Timeout[state, event](running, 2*time.Second, idle),
			},
			wantErr: ErrDuplicateTimeout,
		},
		{
			name: "negative timeout",
			table: []Transition[state, event]{
				Timeout[state, event](running, -time.Second, done),
			},
			wantErr: ErrNegativeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Build(idle, tt.table)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, idle, a.State())
			assert.True(t, a.Feed(begin))
			assert.True(t, a.Elapsed(time.Second))
			assert.Equal(t, done, a.State())
		})
	}
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustBuild(idle, []Transition[state, event]{
			Event(idle, begin, running),
			Event(idle, begin, running),
		})
	})
}
