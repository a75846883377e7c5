package yield

// rng is mulberry32: a 32-bit generator with a fixed, portable output
// sequence for a given seed.
type rng struct {
	state uint32
}

func newRng(seed uint32) *rng {
	return &rng{state: seed}
}

func (r *rng) next() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// float64 returns a value in [0, 1).
func (r *rng) float64() float64 {
	return float64(r.next()) / 4294967296.0
}

// Oscillator salts. Each term of the multiplier draws from its own stream.
const (
	saltDaily  uint32 = 0
	saltMacro  uint32 = 1
	saltHourly uint32 = 2
	saltNoise  uint32 = 3
	saltMicro  uint32 = 4
)

// mixSeed is the single seed-mixing function for every random draw.
// Arithmetic wraps at 32 bits.
func mixSeed(userId int64, dayOfYear, hour, minute int, salt uint32) uint32 {
	return uint32(userId)*7919 +
		uint32(dayOfYear)*104729 +
		uint32(hour)*1299709 +
		uint32(minute)*15485863 +
		salt
}

func draw(userId int64, dayOfYear, hour, minute int, salt uint32) float64 {
	return newRng(mixSeed(userId, dayOfYear, hour, minute, salt)).float64()
}
