package ledger

import (
	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/merkle"
)

// Legacy single-survey flow. One account per evaluation instance with a
// hard response cap; superseded by campaign batch submission but kept on
// the instruction surface.

// CreateSurveyParams carries the fields of the create survey instruction.
type CreateSurveyParams struct {
	SurveyID    string
	CampaignID  string
	QuestionIDs []string
	Submitter   crypto.PublicKey
}

// CreateSurvey initializes a legacy single-survey account.
func (l *Ledger) CreateSurvey(authority crypto.PublicKey, p CreateSurveyParams) (Handle, error) {
	if len(p.SurveyID) == 0 || len(p.SurveyID) > MaxSurveyIDLen {
		return "", errf(CodeFieldTooLong, "survey id must be 1..%d chars, got %d", MaxSurveyIDLen, len(p.SurveyID))
	}
	if len(p.CampaignID) > MaxCampaignIDLen {
		return "", errf(CodeFieldTooLong, "campaign id must be at most %d chars, got %d", MaxCampaignIDLen, len(p.CampaignID))
	}
	for _, q := range p.QuestionIDs {
		if len(q) == 0 || len(q) > MaxQuestionIDLen {
			return "", errf(CodeFieldTooLong, "question id must be 1..%d chars, got %d", MaxQuestionIDLen, len(q))
		}
	}

	submitter := p.Submitter
	if len(submitter) == 0 {
		submitter = authority
	}

	now := l.now()
	account := &SurveyAccount{
		Authority:          crypto.NewPublicKeyFromBytes(authority),
		Submitter:          crypto.NewPublicKeyFromBytes(submitter),
		SurveyID:           p.SurveyID,
		CampaignID:         p.CampaignID,
		QuestionIDs:        append([]string(nil), p.QuestionIDs...),
		Commitments:        make([]crypto.Commitment, 0, MaxSurveyResponses),
		EncryptedResponses: make([]crypto.Ciphertext, 0, MaxSurveyResponses),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	handle := deriveHandle("survey", authority, p.SurveyID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.surveyIDs[p.SurveyID]; exists {
		return "", errf(CodeAlreadyExists, "survey %q already exists", p.SurveyID)
	}
	l.surveys[handle] = account
	l.surveyIDs[p.SurveyID] = handle
	return handle, nil
}

// LookupSurvey resolves a survey id through the mapping table.
func (l *Ledger) LookupSurvey(surveyID string) (Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.surveyIDs[surveyID]
	return h, ok
}

func (l *Ledger) survey(handle Handle) (*SurveyAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.surveys[handle]
	if !ok {
		return nil, errf(CodeNotFound, "no survey account for handle %s", handle)
	}
	return s, nil
}

// GetSurvey returns a read-only snapshot of the survey account.
func (l *Ledger) GetSurvey(handle Handle) (SurveySnapshot, error) {
	s, err := l.survey(handle)
	if err != nil {
		return SurveySnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// SubmitResponse appends a single commitment/ciphertext pair to a legacy
// survey account. Rejected once the cap is reached, once published, or when
// the caller is not the recognized submitter.
func (l *Ledger) SubmitResponse(caller crypto.PublicKey, handle Handle, commitment crypto.Commitment, ciphertext crypto.Ciphertext) error {
	s, err := l.survey(handle)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsPublished {
		return errf(CodeAlreadyPublished, "survey %q is already published", s.SurveyID)
	}
	if !s.Submitter.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the recognized submitter")
	}
	if len(s.Commitments) >= MaxSurveyResponses {
		return errf(CodeCapacityExceeded, "survey %q is at capacity %d", s.SurveyID, MaxSurveyResponses)
	}

	s.Commitments = append(s.Commitments, commitment)
	s.EncryptedResponses = append(s.EncryptedResponses, ciphertext)
	s.TotalResponses++
	s.UpdatedAt = l.now()
	return nil
}

// PublishResults stores the survey's Merkle root, clears its ciphertexts
// and freezes it, mirroring the campaign publish semantics.
func (l *Ledger) PublishResults(caller crypto.PublicKey, handle Handle, root merkle.Root) error {
	s, err := l.survey(handle)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Authority.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the survey authority")
	}
	if s.IsPublished {
		return errf(CodeAlreadyPublished, "survey %q is already published", s.SurveyID)
	}
	if s.TotalResponses == 0 {
		return errf(CodeNoResponsesSubmitted, "survey %q has no responses", s.SurveyID)
	}

	leaves := make([][merkle.HashSize]byte, len(s.Commitments))
	for i, cm := range s.Commitments {
		leaves[i] = [merkle.HashSize]byte(cm)
	}
	expected, err := merkle.BuildRoot(leaves)
	if err != nil {
		return errf(CodeNoResponsesSubmitted, "survey %q has no commitments", s.SurveyID)
	}
	if expected != root {
		return errf(CodeMerkleMismatch, "claimed root does not match the stored commitments")
	}

	s.MerkleRoot = root
	s.IsPublished = true
	s.EncryptedResponses = nil
	s.UpdatedAt = l.now()
	return nil
}
