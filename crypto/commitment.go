package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CommitmentSize is the byte length of an answer commitment.
const CommitmentSize = 32

// AnswerEncodingV1 identifies the canonical answer-string layout. The
// encoding is part of the wire format: commitments computed under one
// version never verify under another.
const AnswerEncodingV1 = "v1"

// AnswerDelimiter separates the fields of a canonical answer string. It
// must not appear inside any field.
const AnswerDelimiter = '|'

// Commitment is a SHA-256 digest binding an answer string.
type Commitment [CommitmentSize]byte

// AnswerSet holds one respondent's answers for a single survey, prior to
// canonical encoding.
type AnswerSet struct {
	SurveyID   string
	CourseCode string
	ScopeID    string
	Answers    []int // one value per question, each in 1..5
}

// CanonicalAnswerString produces the v1 canonical encoding of an answer
// set: surveyID|courseCode|scopeID|digits, one ASCII digit per answer.
// Every implementation of the protocol must reproduce this byte-for-byte.
func CanonicalAnswerString(a AnswerSet) (string, error) {
	for _, f := range []string{a.SurveyID, a.CourseCode, a.ScopeID} {
		if strings.ContainsRune(f, AnswerDelimiter) {
			return "", fmt.Errorf("field %q contains the delimiter %q", f, AnswerDelimiter)
		}
	}
	if len(a.Answers) == 0 {
		return "", fmt.Errorf("answer set has no answers")
	}

	var sb strings.Builder
	sb.WriteString(a.SurveyID)
	sb.WriteByte(AnswerDelimiter)
	sb.WriteString(a.CourseCode)
	sb.WriteByte(AnswerDelimiter)
	sb.WriteString(a.ScopeID)
	sb.WriteByte(AnswerDelimiter)
	for _, v := range a.Answers {
		if v < 1 || v > 5 {
			return "", fmt.Errorf("answer value %d out of range 1..5", v)
		}
		sb.WriteByte(byte('0' + v))
	}
	return sb.String(), nil
}

// Commit computes the hash commitment over a canonical answer string.
func Commit(answer []byte) Commitment {
	return sha256.Sum256(answer)
}

// VerifyCommitment recomputes the commitment for answer and compares it
// against the stored digest. Both sides are public once revealed, so exact
// recomputation is what matters here, not timing.
func VerifyCommitment(answer []byte, digest Commitment) bool {
	return Commit(answer) == digest
}

// Bytes returns the commitment as a byte slice.
func (c Commitment) Bytes() []byte {
	return c[:]
}

// String returns the commitment as lowercase hex without a prefix, the
// representation used on the wire.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// NewCommitmentFromBytes creates a Commitment from a byte slice. The slice
// must be exactly CommitmentSize bytes.
func NewCommitmentFromBytes(data []byte) (Commitment, error) {
	var c Commitment
	if len(data) != CommitmentSize {
		return c, fmt.Errorf("commitment must be %d bytes, got %d", CommitmentSize, len(data))
	}
	copy(c[:], data)
	return c, nil
}

// NewCommitmentFromString creates a Commitment from a lowercase hex string.
func NewCommitmentFromString(s string) (Commitment, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Commitment{}, err
	}
	return NewCommitmentFromBytes(raw)
}
