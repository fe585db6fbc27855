package sample

// Downsample reduces a series to at most maxPoints values for display.
// Uses simple decimation.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// Returns the destination slice (may be dst if reused, or a new slice if dst was too small).
func Downsample(dst []float64, src []float64, maxPoints int) []float64 {
	if len(src) <= maxPoints {
		if cap(dst) >= len(src) {
			dst = dst[:len(src)]
			copy(dst, src)
			return dst
		}
		result := make([]float64, len(src))
		copy(result, src)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]float64, 0, maxPoints)
	}

	step := float64(len(src)) / float64(maxPoints)

	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(src) {
			dst = append(dst, src[idx])
		}
	}

	return dst
}

// MovingAverage smooths src with a trailing window of the given size. The
// first values average over what is available so far.
// Destination-based like Downsample.
func MovingAverage(dst []float64, src []float64, window int) []float64 {
	if window <= 0 {
		window = 1 // No averaging if invalid
	}

	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]float64, len(src))
	}

	var sum float64
	for i, v := range src {
		sum += v
		if i >= window {
			sum -= src[i-window]
		}
		n := min(i+1, window)
		dst[i] = sum / float64(n)
	}

	return dst
}
