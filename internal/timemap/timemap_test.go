package timemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositivePPQ(t *testing.T) {
	_, err := New(0, nil)
	require.Error(t, err)

	_, err = New(-480, nil)
	require.Error(t, err)
}

func TestNewDefaultsTickZeroTo120(t *testing.T) {
	m, err := New(480, nil)
	require.NoError(t, err)

	points := m.Breakpoints()
	require.Len(t, points, 1)
	assert.Equal(t, uint32(0), points[0].Tick)
	assert.Equal(t, 120.0, points[0].BPM)
}

func TestNewDeduplicatesByTickLastWins(t *testing.T) {
	m, err := New(480, []Breakpoint{
		{Tick: 960, BPM: 90},
		{Tick: 0, BPM: 100},
		{Tick: 960, BPM: 140},
	})
	require.NoError(t, err)

	points := m.Breakpoints()
	require.Len(t, points, 2)
	assert.Equal(t, 100.0, points[0].BPM)
	assert.Equal(t, uint32(960), points[1].Tick)
	assert.Equal(t, 140.0, points[1].BPM)
}

func TestNewDropsNonPositiveBPM(t *testing.T) {
	m, err := New(480, []Breakpoint{{Tick: 480, BPM: 0}, {Tick: 960, BPM: -5}})
	require.NoError(t, err)
	require.Len(t, m.Breakpoints(), 1)
}

func TestBeatsAt(t *testing.T) {
	m, err := New(480, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.BeatsAt(0))
	assert.Equal(t, 1.0, m.BeatsAt(480))
	assert.Equal(t, 2.5, m.BeatsAt(1200))
}

func TestBPMAt(t *testing.T) {
	m, err := New(480, []Breakpoint{{Tick: 960, BPM: 60}})
	require.NoError(t, err)

	assert.Equal(t, 120.0, m.BPMAt(0))
	assert.Equal(t, 120.0, m.BPMAt(959))
	assert.Equal(t, 60.0, m.BPMAt(960))
	assert.Equal(t, 60.0, m.BPMAt(5000))
}

func TestSecondsAt(t *testing.T) {
	tests := []struct {
		name   string
		ppq    int
		points []Breakpoint
		tick   uint32
		want   float64
	}{
		{
			name: "zero tick",
			ppq:  480,
			tick: 0,
			want: 0,
		},
		{
			name: "one beat at 120bpm",
			ppq:  480,
			tick: 480,
			want: 0.5,
		},
		{
			name:   "one beat at 60bpm",
			ppq:    480,
			points: []Breakpoint{{Tick: 0, BPM: 60}},
			tick:   480,
			want:   1.0,
		},
		{
			name:   "tempo change mid way",
			ppq:    480,
			points: []Breakpoint{{Tick: 0, BPM: 120}, {Tick: 480, BPM: 60}},
			tick:   960,
			// first beat at 120bpm = 0.5s, second beat at 60bpm = 1.0s
			want: 1.5,
		},
		{
			name:   "tick before later breakpoint",
			ppq:    480,
			points: []Breakpoint{{Tick: 0, BPM: 120}, {Tick: 960, BPM: 60}},
			tick:   480,
			want:   0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.ppq, tt.points)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, m.SecondsAt(tt.tick), 1e-9)
		})
	}
}
