package backend

// The source format's backend represents a 64-bit PTS as a pair of
// 32-bit halves (spec.md §9 "64-bit timestamps"); since Go has a
// native int64 and astiav surfaces PTS as int64 directly, there is no
// split/join to do here — this file is the boundary spec.md §9 says
// such conversion belongs at, kept as its own file because every
// decoder/encoder timestamp computation funnels through it.

// VideoTimeBaseDen is the polyfill's fixed codec-context time base
// denominator for every decoder (audio and video) and for the video
// encoder: 1/1000, i.e. milliseconds (spec.md §4.E/§4.F).
const VideoTimeBaseDen = 1000

// USToMS converts a microsecond timestamp to the backend's
// millisecond-resolution time base: floor(timestamp/1000)
// (spec.md §4.E decode: "ptsFull = floor(timestamp/1000)").
func USToMS(us int64) int64 {
	if us >= 0 {
		return us / 1000
	}
	// floor division for negative values.
	q := us / 1000
	if us%1000 != 0 {
		q--
	}
	return q
}

// MSToUS converts a millisecond PTS back to microseconds:
// timestamp_us = pts * 1000 (spec.md §4.F.3 video packet mapping).
func MSToUS(ms int64) int64 { return ms * 1000 }

// SamplesToUS converts a sample-rate-scaled PTS to microseconds:
// floor(pts / sampleRate * 1e6) (spec.md §4.F.3 audio packet mapping).
func SamplesToUS(pts int64, sampleRate float64) int64 {
	if sampleRate <= 0 {
		return 0
	}
	v := float64(pts) / sampleRate * 1e6
	if v < 0 {
		return 0
	}
	return int64(v)
}
