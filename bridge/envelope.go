// ABOUTME: Uniform response envelope for every mediated operation
// ABOUTME: Tags results with live or synthetic origin and a creation timestamp
package bridge

import "time"

// Mode identifies where an envelope's data came from.
type Mode string

const (
	// ModeLive means the operation was served by the real backend.
	ModeLive Mode = "live"
	// ModeSynthetic means the operation was served by the fallback dataset.
	ModeSynthetic Mode = "synthetic"
)

// Envelope is the single result shape all mediated operations return.
// Created fresh per call and never mutated afterwards.
type Envelope struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     string  `json:"error,omitempty"`
	Mode      Mode    `json:"mode"`
	Timestamp float64 `json:"timestamp"`
}

// Ok wraps a successful result.
func Ok(mode Mode, data any) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Mode:      mode,
		Timestamp: now(),
	}
}

// Fail wraps an error. The error message becomes the caller-visible text.
func Fail(mode Mode, err error) Envelope {
	return Envelope{
		Success:   false,
		Error:     err.Error(),
		Mode:      mode,
		Timestamp: now(),
	}
}

// normalize turns a raw return value into an envelope. A value that is
// already an envelope passes through unchanged apart from the mode tag, so
// backends that speak the envelope shape natively keep their own success
// and error fields.
func normalize(mode Mode, v any) Envelope {
	switch env := v.(type) {
	case Envelope:
		env.Mode = mode
		return env
	case *Envelope:
		out := *env
		out.Mode = mode
		return out
	}
	return Ok(mode, v)
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
