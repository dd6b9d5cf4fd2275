package media

// Rational is an exact time base or rate: the value of an integer timestamp
// ts is ts*Num/Den seconds.
type Rational struct {
	Num int64
	Den int64
}

// IsZero reports whether the rational is unset.
func (r Rational) IsZero() bool { return r.Num == 0 || r.Den == 0 }

// Seconds converts a timestamp in this time base to seconds.
// NoTimestamp maps to 0.
func (r Rational) Seconds(ts int64) float64 {
	if ts == NoTimestamp || r.IsZero() {
		return 0
	}
	return float64(ts) * float64(r.Num) / float64(r.Den)
}

// Inv returns the reciprocal, turning a rate into a time base and vice versa.
func (r Rational) Inv() Rational { return Rational{Num: r.Den, Den: r.Num} }

// Float returns the rational as a float64, 0 when unset.
func (r Rational) Float() float64 {
	if r.IsZero() {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Reduce returns the rational in lowest terms.
func (r Rational) Reduce() Rational {
	g := gcd(r.Num, r.Den)
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

// Rescale converts ts from one time base to another, rounding half away from
// zero. NoTimestamp passes through unchanged.
func Rescale(ts int64, from, to Rational) int64 {
	if ts == NoTimestamp {
		return NoTimestamp
	}
	if from == to || from.IsZero() || to.IsZero() {
		return ts
	}
	// ts * (from.Num*to.Den) / (from.Den*to.Num), reduced first to keep the
	// intermediate product inside int64 for the time bases containers use.
	f := Rational{Num: from.Num * to.Den, Den: from.Den * to.Num}.Reduce()
	n := ts * f.Num
	if n >= 0 {
		return (n + f.Den/2) / f.Den
	}
	return (n - f.Den/2) / f.Den
}

// RescalePacket converts a packet's timestamps and duration between time
// bases in place, the way the splitter and stitcher rebase packets onto
// their output streams.
func RescalePacket(p *Packet, from, to Rational) {
	p.PTS = Rescale(p.PTS, from, to)
	p.DTS = Rescale(p.DTS, from, to)
	if p.Duration > 0 {
		p.Duration = Rescale(p.Duration, from, to)
	}
}
