package query

import "time"

// Stats is the per-query timing and volume breakdown surfaced both in
// debug logs and as response headers.
type Stats struct {
	EvalElapsed      time.Duration
	LoopElapsed      time.Duration
	SerializeElapsed time.Duration
	Rows             uint64
	BytesRead        uint64
}

// GBps is bytes read per second of scan-loop time, the zero-copy
// throughput figure. Symbol materialization cost is included in
// LoopElapsed but should not be read as part of the zero-copy figure.
func (s Stats) GBps() float64 {
	secs := s.LoopElapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesRead) / 1e9 / secs
}

// Mrowsps is rows scanned per second of scan-loop time.
func (s Stats) Mrowsps() float64 {
	secs := s.LoopElapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Rows) / 1e6 / secs
}
