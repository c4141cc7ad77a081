// Package tier maps attestation scores to risk tiers. Every ledger derives
// tiers through FromScore so that the score bands can not diverge.
package tier

import "fmt"

// Tier is a risk bucket, A is the best and D the worst. None means the subject
// has never been graded.
type Tier uint8

const (
	None Tier = iota
	A
	B
	C
	D
)

// Count is the number of gradable tiers, use Index to address per-tier tables.
const Count = 4

const (
	BandA uint64 = 900_000
	BandB uint64 = 850_000
	BandC uint64 = 750_000
)

// FromScore returns the tier for a score scaled by 1e6.
func FromScore(score uint64) Tier {
	switch {
	case score >= BandA:
		return A
	case score >= BandB:
		return B
	case score >= BandC:
		return C
	default:
		return D
	}
}

// Valid returns true for the gradable tiers A..D.
func (t Tier) Valid() bool {
	return t >= A && t <= D
}

// Index returns zero based index of the tier in per-tier parameter tables.
// Must only be called for valid tiers.
func (t Tier) Index() int {
	return int(t) - 1
}

func (t Tier) String() string {
	switch t {
	case None:
		return "none"
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	case D:
		return "D"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Parse converts the string form back to a Tier.
func Parse(s string) (Tier, error) {
	switch s {
	case "A", "a":
		return A, nil
	case "B", "b":
		return B, nil
	case "C", "c":
		return C, nil
	case "D", "d":
		return D, nil
	case "none", "":
		return None, nil
	}
	return None, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
