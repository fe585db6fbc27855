package ct

// HistoryCapacity is the number of per-pass RMS values retained per channel.
// Older values are overwritten once the buffer is full.
const HistoryCapacity = 256

type channelStats struct {
	sum float64
	min float64
	max float64
	avg float64

	history  [HistoryCapacity]float64
	recorded int // total values ever written to history
}

// Stats accumulates running RMS statistics per channel across sampling passes.
//
// The pass counter starts at 1, so the average after the first Update equals the
// first value. Advance moves to the next pass.
type Stats struct {
	maxCurrent float64
	channels   []channelStats
	passes     int
}

// NewStats creates statistics for the given number of channels. maxCurrent is the
// initial minimum bound.
func NewStats(channels int, maxCurrent float64) *Stats {
	s := &Stats{
		maxCurrent: maxCurrent,
		channels:   make([]channelStats, channels),
	}
	s.Reset()
	return s
}

// Reset restores initial bounds on every channel and sets the pass counter to 1.
// The storage is replaced as a whole.
func (s *Stats) Reset() {
	channels := make([]channelStats, len(s.channels))
	for i := range channels {
		channels[i].min = s.maxCurrent
	}
	s.channels = channels
	s.passes = 1
}

// Update folds one pass's RMS value into the running statistics of channel.
func (s *Stats) Update(channel int, rms float64) {
	c := &s.channels[channel]

	c.history[c.recorded%HistoryCapacity] = rms
	c.recorded++

	c.sum += rms
	if c.min > rms {
		c.min = rms
	}
	if c.max < rms {
		c.max = rms
	}
	c.avg = c.sum / float64(s.passes)
}

// Advance increments the pass counter.
func (s *Stats) Advance() {
	s.passes++
}

// Passes returns the pass counter. It is 1 before the first pass completes.
func (s *Stats) Passes() int {
	return s.passes
}

// Channels returns the number of channels tracked.
func (s *Stats) Channels() int {
	return len(s.channels)
}

func (s *Stats) Min(channel int) float64 { return s.channels[channel].min }
func (s *Stats) Avg(channel int) float64 { return s.channels[channel].avg }
func (s *Stats) Max(channel int) float64 { return s.channels[channel].max }
func (s *Stats) Sum(channel int) float64 { return s.channels[channel].sum }

// Last returns the most recent RMS value of channel, or 0 if none was recorded.
func (s *Stats) Last(channel int) float64 {
	c := &s.channels[channel]
	if c.recorded == 0 {
		return 0
	}
	return c.history[(c.recorded-1)%HistoryCapacity]
}

// History returns the retained RMS values of channel, oldest first.
func (s *Stats) History(channel int) []float64 {
	c := &s.channels[channel]

	n := c.recorded
	if n > HistoryCapacity {
		n = HistoryCapacity
	}

	result := make([]float64, n)
	start := c.recorded - n
	for i := range n {
		result[i] = c.history[(start+i)%HistoryCapacity]
	}
	return result
}
