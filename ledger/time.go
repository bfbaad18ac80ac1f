package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// TIMESTAMP / DURATION - Millisecond-resolution ledger time
// =============================================================================

// Timestamp is a point in ledger time, unix milliseconds.
type Timestamp int64

func TimestampFromTime(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

func (t Timestamp) Time() time.Time          { return time.UnixMilli(int64(t)).UTC() }
func (t Timestamp) Before(o Timestamp) bool  { return t < o }
func (t Timestamp) After(o Timestamp) bool   { return t > o }
func (t Timestamp) Add(d Duration) Timestamp { return t + Timestamp(d) }

func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }

// Duration is a nominal length of ledger time, milliseconds.
type Duration int64

func DurationFrom(d time.Duration) Duration { return Duration(d.Milliseconds()) }

// =============================================================================
// INTERVAL - Transaction validity window
// =============================================================================

// Interval is the closed time range [From, To] within which a transaction is
// considered to execute. The execution model never exposes a single current
// instant, only this declared window, so all temporal checks are expressed
// as interval containment.
type Interval struct {
	From Timestamp `json:"from"`
	To   Timestamp `json:"to"`
}

// Contains reports whether t lies within the interval.
func (iv Interval) Contains(t Timestamp) bool {
	return t >= iv.From && t <= iv.To
}

// Reaches reports whether the interval includes any time at or after t,
// i.e. whether the window extends to t or beyond.
func (iv Interval) Reaches(t Timestamp) bool {
	return iv.To >= t
}

// EntirelyBefore reports whether the whole interval lies strictly before t.
func (iv Interval) EntirelyBefore(t Timestamp) bool {
	return iv.To < t
}

// Validate rejects inverted windows.
func (iv Interval) Validate() error {
	if iv.From > iv.To {
		return fmt.Errorf("invalid interval: from %d after to %d", iv.From, iv.To)
	}
	return nil
}

func (iv Interval) String() string {
	return "[" + iv.From.String() + ", " + iv.To.String() + "]"
}
