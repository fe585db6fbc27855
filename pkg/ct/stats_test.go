package ct

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStats(t *testing.T) {
	s := NewStats(4, 100)

	assert.Equal(t, 4, s.Channels())
	assert.Equal(t, 1, s.Passes())
	for c := 0; c < 4; c++ {
		assert.Equal(t, 100.0, s.Min(c))
		assert.Equal(t, 0.0, s.Max(c))
		assert.Equal(t, 0.0, s.Avg(c))
		assert.Equal(t, 0.0, s.Sum(c))
		assert.Equal(t, 0.0, s.Last(c))
	}
}

func TestStats_FirstUpdate(t *testing.T) {
	s := NewStats(2, 100)

	s.Update(0, 7.25)

	// the pass counter is still 1 here
	assert.Equal(t, 7.25, s.Avg(0))
	assert.Equal(t, 7.25, s.Min(0))
	assert.Equal(t, 7.25, s.Max(0))
	assert.Equal(t, 7.25, s.Sum(0))
	assert.Equal(t, 0.0, s.Avg(1))
}

func TestStats_RunningValues(t *testing.T) {
	s := NewStats(1, 100)

	for _, v := range []float64{4, 8, 0, 12} {
		s.Update(0, v)
		s.Advance()
	}

	assert.Equal(t, 5, s.Passes())
	assert.Equal(t, 24.0, s.Sum(0))
	assert.Equal(t, 6.0, s.Avg(0))
	assert.Equal(t, 0.0, s.Min(0))
	assert.Equal(t, 12.0, s.Max(0))
	assert.Equal(t, 12.0, s.Last(0))
	assert.Equal(t, []float64{4, 8, 0, 12}, s.History(0))
}

func TestStats_MinAvgMaxOrdering(t *testing.T) {
	const maxCurrent = 100.0
	rng := rand.New(rand.NewSource(42))

	for seq := 0; seq < 50; seq++ {
		s := NewStats(2, maxCurrent)
		for pass := 0; pass < 40; pass++ {
			for c := 0; c < 2; c++ {
				s.Update(c, rng.Float64()*maxCurrent)
				// the average is a quotient and may exceed an equal max by an ulp
				assert.LessOrEqual(t, s.Min(c), s.Avg(c)+1e-9)
				assert.LessOrEqual(t, s.Avg(c), s.Max(c)+1e-9)
			}
			s.Advance()
		}
	}
}

func TestStats_Reset(t *testing.T) {
	s := NewStats(2, 50)
	s.Update(0, 3)
	s.Update(1, 4)
	s.Advance()

	s.Reset()
	once := *s
	s.Reset()

	assert.Equal(t, once, *s)
	assert.Equal(t, 1, s.Passes())
	assert.Equal(t, 50.0, s.Min(0))
	assert.Equal(t, 0.0, s.Max(1))
	assert.Empty(t, s.History(0))
}

func TestStats_ResetReplacesStorage(t *testing.T) {
	s := NewStats(1, 50)
	before := s.channels
	s.Update(0, 3)

	s.Reset()

	assert.Equal(t, 3.0, before[0].sum)
	assert.Equal(t, 0.0, s.channels[0].sum)
}

func TestStats_HistoryWrap(t *testing.T) {
	s := NewStats(1, 1000)

	total := HistoryCapacity + 10
	for i := 0; i < total; i++ {
		s.Update(0, float64(i))
		s.Advance()
	}

	history := s.History(0)
	require.Len(t, history, HistoryCapacity)
	assert.Equal(t, 10.0, history[0])
	assert.Equal(t, float64(total-1), history[len(history)-1])
	assert.Equal(t, float64(total-1), s.Last(0))
	// statistics are not bounded by the history
	assert.Equal(t, total+1, s.Passes())
	assert.Equal(t, 0.0, s.Min(0))
}

func TestStats_HistoryIsCopy(t *testing.T) {
	s := NewStats(1, 100)
	s.Update(0, 1)

	h := s.History(0)
	h[0] = 99

	assert.Equal(t, []float64{1}, s.History(0))
}
