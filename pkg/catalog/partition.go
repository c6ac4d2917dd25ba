package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Partition is an expansion code such as "OP01" or "ST10".
type Partition string

// Sequence is the fixed traversal order of expansions in sequential mode.
type Sequence []Partition

var (
	// ErrEmptySequence is returned when a sequence has no partitions
	ErrEmptySequence = errors.New("partition sequence is empty")

	// ErrInvalidPartition is returned for blank or duplicated partitions
	ErrInvalidPartition = errors.New("invalid partition")
)

// Booster, extra booster and starter deck codes, in release order.
var (
	BoosterCodes = []Partition{
		"OP01", "OP02", "OP03", "OP04", "OP05", "OP06", "OP07", "OP08", "OP09",
	}

	ExtraBoosterCode Partition = "EB01"

	StarterCodes = []Partition{
		"ST01", "ST02", "ST03", "ST04", "ST05", "ST06", "ST07",
		"ST08", "ST09", "ST10", "ST11", "ST12", "ST13", "ST14",
	}
)

// DefaultSequence returns boosters, then the extra booster, then starter decks.
func DefaultSequence() Sequence {
	seq := make(Sequence, 0, len(BoosterCodes)+1+len(StarterCodes))
	seq = append(seq, BoosterCodes...)
	seq = append(seq, ExtraBoosterCode)
	seq = append(seq, StarterCodes...)
	return seq
}

// ParseSequence builds a sequence from raw codes, trimming whitespace.
func ParseSequence(codes []string) (Sequence, error) {
	seq := make(Sequence, 0, len(codes))
	for _, code := range codes {
		seq = append(seq, Partition(strings.TrimSpace(code)))
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Validate checks that the sequence is non-empty with unique, non-blank codes.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}

	seen := make(map[Partition]int, len(s))
	for i, p := range s {
		if strings.TrimSpace(string(p)) == "" {
			return fmt.Errorf("%w: blank code at position %d", ErrInvalidPartition, i)
		}
		if prev, ok := seen[p]; ok {
			return fmt.Errorf("%w: %q at positions %d and %d", ErrInvalidPartition, p, prev, i)
		}
		seen[p] = i
	}
	return nil
}

// Len returns the number of partitions.
func (s Sequence) Len() int {
	return len(s)
}

// At returns the partition at index i, or false when i is out of bounds.
func (s Sequence) At(i int) (Partition, bool) {
	if i < 0 || i >= len(s) {
		return "", false
	}
	return s[i], true
}

// Clone returns a copy so callers cannot mutate a controller's sequence.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Strings returns the codes as plain strings.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}
