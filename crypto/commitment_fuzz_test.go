package crypto

import (
	"strings"
	"testing"
)

func FuzzCanonicalAnswerString(f *testing.F) {
	// Add seed corpus with various parameters
	f.Add("S1", "COURSE-101", "2026-fall", []byte{5, 4, 3, 2, 1})
	f.Add("", "", "", []byte{1})
	f.Add("a|b", "c", "d", []byte{3})
	f.Add("survey", "course", "scope", []byte{0, 6})

	f.Fuzz(func(t *testing.T, surveyID, courseCode, scopeID string, rawAnswers []byte) {
		answers := make([]int, len(rawAnswers))
		for i, b := range rawAnswers {
			answers[i] = int(b)
		}
		set := AnswerSet{
			SurveyID:   surveyID,
			CourseCode: courseCode,
			ScopeID:    scopeID,
			Answers:    answers,
		}

		encoded, err := CanonicalAnswerString(set)

		wantErr := len(answers) == 0 ||
			strings.ContainsRune(surveyID, AnswerDelimiter) ||
			strings.ContainsRune(courseCode, AnswerDelimiter) ||
			strings.ContainsRune(scopeID, AnswerDelimiter)
		for _, v := range answers {
			if v < 1 || v > 5 {
				wantErr = true
			}
		}

		// Invariant 1: Encoding fails exactly on delimiter collisions,
		// empty answer lists, and out-of-range answer values
		if wantErr {
			if err == nil {
				t.Errorf("expected error for %+v, got %q", set, encoded)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", set, err)
		}

		// Invariant 2: Exactly three delimiters, fields in order
		parts := strings.Split(encoded, string(AnswerDelimiter))
		if len(parts) != 4 {
			t.Fatalf("expected 4 parts, got %d: %q", len(parts), encoded)
		}
		if parts[0] != surveyID || parts[1] != courseCode || parts[2] != scopeID {
			t.Errorf("field mismatch in %q", encoded)
		}

		// Invariant 3: One digit in '1'..'5' per answer
		if len(parts[3]) != len(answers) {
			t.Errorf("digit count mismatch: got %d, want %d", len(parts[3]), len(answers))
		}
		for i, c := range parts[3] {
			if c < '1' || c > '5' {
				t.Errorf("digit %d out of range: %q", i, c)
			}
		}

		// Invariant 4: Determinism - same inputs produce same outputs
		again, err := CanonicalAnswerString(set)
		if err != nil || again != encoded {
			t.Errorf("non-deterministic encoding: %q vs %q (err %v)", encoded, again, err)
		}

		// Invariant 5: The commitment binds the encoding
		digest := Commit([]byte(encoded))
		if !VerifyCommitment([]byte(encoded), digest) {
			t.Errorf("commitment does not verify for %q", encoded)
		}
		if len(encoded) > 0 {
			mutated := []byte(encoded)
			mutated[0] ^= 0x01
			if VerifyCommitment(mutated, digest) {
				t.Errorf("commitment verified for mutated encoding of %q", encoded)
			}
		}
	})
}
