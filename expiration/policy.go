package expiration

import (
	"math/rand/v2"
	"time"
)

// Policy reports whether an entry with the given deadline is expired at now.
type Policy interface {
	IsExpired(now, expiresAt time.Time) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(now, expiresAt time.Time) bool

// IsExpired calls f.
func (f PolicyFunc) IsExpired(now, expiresAt time.Time) bool {
	return f(now, expiresAt)
}

// Deadline expires an entry once now reaches its deadline.
type Deadline struct{}

var _ Policy = Deadline{}

// IsExpired reports whether now is not before expiresAt.
func (Deadline) IsExpired(now, expiresAt time.Time) bool {
	return !now.Before(expiresAt)
}

// Never keeps entries regardless of their deadline.
type Never struct{}

var _ Policy = Never{}

// IsExpired always returns false.
func (Never) IsExpired(time.Time, time.Time) bool {
	return false
}

// Leeway expires an entry the given duration before its deadline.
// Access tokens use it so that a token is never handed out moments before the server rejects it.
type Leeway time.Duration

var _ Policy = Leeway(0)

// IsExpired reports whether now+l is not before expiresAt.
func (l Leeway) IsExpired(now, expiresAt time.Time) bool {
	return !now.Add(time.Duration(l)).Before(expiresAt)
}

// Early expires a share of the reads up to Window before the deadline,
// so concurrent readers of a hot key do not all miss at the same instant.
type Early struct {
	// Window is how far ahead of the deadline an early expiration can happen.
	Window time.Duration

	// Probability is the chance, between 0 and 1, that a read uses the early deadline.
	Probability float64

	// Random is used instead of the global generator when set. It must be safe for concurrent use
	// if the policy is shared between goroutines.
	Random *rand.Rand
}

var _ Policy = (*Early)(nil)

// IsExpired applies Deadline, or Leeway(Window) for the sampled share of reads.
func (p *Early) IsExpired(now, expiresAt time.Time) bool {
	if p.float64() < p.Probability {
		return Leeway(p.Window).IsExpired(now, expiresAt)
	}
	return Deadline{}.IsExpired(now, expiresAt)
}

func (p *Early) float64() float64 {
	if p.Random != nil {
		return p.Random.Float64()
	}
	return rand.Float64()
}
