package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// JobID identifies a distributed job. It renders as 32 lowercase hex
// characters, which is the form embedded into instance directory names.
type JobID [16]byte

// NewJobID returns a random JobID.
func NewJobID() JobID {
	return JobID(uuid.New())
}

// ParseJobID accepts the 32-character hex form produced by String as well as
// the dashed UUID form.
func ParseJobID(s string) (JobID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return JobID{}, fmt.Errorf("invalid job id %q: %w", s, err)
	}
	return JobID(u), nil
}

func (id JobID) String() string {
	return hex.EncodeToString(id[:])
}

func (id JobID) IsZero() bool {
	return id == JobID{}
}

// SanitizeOperatorID strips every whitespace rune from an operator identifier
// so it can be embedded into a directory name.
func SanitizeOperatorID(operatorID string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, operatorID)
}
