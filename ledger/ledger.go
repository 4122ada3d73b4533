package ledger

import (
	"sync"
	"time"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/merkle"
)

// Ledger holds all accounts and exposes the instruction surface. Accounts
// are independently locked; the ledger-level lock only guards the mapping
// tables.
type Ledger struct {
	mu sync.RWMutex

	campaigns    map[Handle]*CampaignAccount
	surveys      map[Handle]*SurveyAccount
	universities map[Handle]*UniversityPerformance

	// Explicit long-id to handle mapping tables.
	campaignIDs   map[string]Handle
	surveyIDs     map[string]Handle
	universityIDs map[string]Handle

	now func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		campaigns:     make(map[Handle]*CampaignAccount),
		surveys:       make(map[Handle]*SurveyAccount),
		universities:  make(map[Handle]*UniversityPerformance),
		campaignIDs:   make(map[string]Handle),
		surveyIDs:     make(map[string]Handle),
		universityIDs: make(map[string]Handle),
		now:           time.Now,
	}
}

// CreateCampaignParams carries the fields of the create campaign
// instruction. Submitter defaults to Authority when empty.
type CreateCampaignParams struct {
	CampaignID              string
	Semester                string
	CampaignType            CampaignType
	BlindSignaturePublicKey []byte
	EncryptionPublicKey     []byte
	Submitter               crypto.PublicKey
	// Capacity overrides DefaultCampaignCapacity when non-zero.
	Capacity uint32
}

// CreateCampaign initializes a campaign account in draft status and maps
// its id to a fresh handle.
func (l *Ledger) CreateCampaign(authority crypto.PublicKey, p CreateCampaignParams) (Handle, error) {
	if len(p.CampaignID) == 0 || len(p.CampaignID) > MaxCampaignIDLen {
		return "", errf(CodeFieldTooLong, "campaign id must be 1..%d chars, got %d", MaxCampaignIDLen, len(p.CampaignID))
	}
	if len(p.Semester) > MaxSemesterLen {
		return "", errf(CodeFieldTooLong, "semester must be at most %d chars, got %d", MaxSemesterLen, len(p.Semester))
	}
	if !p.CampaignType.Valid() {
		return "", errf(CodeInvalidEnum, "campaign type %d not in {0,1}", p.CampaignType)
	}
	if len(p.BlindSignaturePublicKey) == 0 || len(p.BlindSignaturePublicKey) > crypto.MaxPublicKeySize {
		return "", errf(CodeFieldTooLong, "blind signature public key must be 1..%d bytes, got %d", crypto.MaxPublicKeySize, len(p.BlindSignaturePublicKey))
	}
	if len(p.EncryptionPublicKey) == 0 || len(p.EncryptionPublicKey) > crypto.MaxPublicKeySize {
		return "", errf(CodeFieldTooLong, "encryption public key must be 1..%d bytes, got %d", crypto.MaxPublicKeySize, len(p.EncryptionPublicKey))
	}

	submitter := p.Submitter
	if len(submitter) == 0 {
		submitter = authority
	}
	capacity := p.Capacity
	if capacity == 0 {
		capacity = DefaultCampaignCapacity
	}

	now := l.now()
	account := &CampaignAccount{
		Authority:               crypto.NewPublicKeyFromBytes(authority),
		Submitter:               crypto.NewPublicKeyFromBytes(submitter),
		CampaignID:              p.CampaignID,
		Semester:                p.Semester,
		CampaignType:            p.CampaignType,
		Status:                  StatusDraft,
		CreatedAt:               now,
		UpdatedAt:               now,
		Commitments:             make([]crypto.Commitment, 0, capacity),
		EncryptedResponses:      make([]crypto.Ciphertext, 0, capacity),
		BlindSignaturePublicKey: append([]byte(nil), p.BlindSignaturePublicKey...),
		EncryptionPublicKey:     append([]byte(nil), p.EncryptionPublicKey...),
		Capacity:                capacity,
	}

	handle := deriveHandle("campaign", authority, p.CampaignID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.campaignIDs[p.CampaignID]; exists {
		return "", errf(CodeAlreadyExists, "campaign %q already exists", p.CampaignID)
	}
	l.campaigns[handle] = account
	l.campaignIDs[p.CampaignID] = handle
	return handle, nil
}

// LookupCampaign resolves a campaign id through the mapping table.
func (l *Ledger) LookupCampaign(campaignID string) (Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.campaignIDs[campaignID]
	return h, ok
}

func (l *Ledger) campaign(handle Handle) (*CampaignAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.campaigns[handle]
	if !ok {
		return nil, errf(CodeNotFound, "no campaign account for handle %s", handle)
	}
	return c, nil
}

// GetCampaign returns a read-only snapshot of the campaign account.
func (l *Ledger) GetCampaign(handle Handle) (CampaignSnapshot, error) {
	c, err := l.campaign(handle)
	if err != nil {
		return CampaignSnapshot{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(), nil
}

// transitionCampaign applies a status transition after checking the
// authority and current status.
func (l *Ledger) transitionCampaign(caller crypto.PublicKey, handle Handle, from, to CampaignStatus) error {
	c, err := l.campaign(handle)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Authority.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the campaign authority")
	}
	if c.Status != from {
		return errf(CodeInvalidTransition, "campaign %q is %s, expected %s", c.CampaignID, c.Status, from)
	}
	c.Status = to
	c.UpdatedAt = l.now()
	return nil
}

// OpenCampaign moves a draft campaign into the teachers input phase.
func (l *Ledger) OpenCampaign(caller crypto.PublicKey, handle Handle) error {
	return l.transitionCampaign(caller, handle, StatusDraft, StatusTeachersInput)
}

// CloseInput ends the teachers input phase and opens the campaign for
// collection.
func (l *Ledger) CloseInput(caller crypto.PublicKey, handle Handle) error {
	return l.transitionCampaign(caller, handle, StatusTeachersInput, StatusOpen)
}

// CloseCampaign ends the collection window.
func (l *Ledger) CloseCampaign(caller crypto.PublicKey, handle Handle) error {
	return l.transitionCampaign(caller, handle, StatusOpen, StatusClosed)
}

// CheckLaunchGate verifies that survey and token generation may proceed for
// this campaign. Generation itself is external to the ledger; this guard is
// what gates it.
func (l *Ledger) CheckLaunchGate(caller crypto.PublicKey, handle Handle) error {
	c, err := l.campaign(handle)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Authority.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the campaign authority")
	}
	if c.Status != StatusOpen {
		return errf(CodeInvalidTransition, "campaign %q is %s, launch requires %s", c.CampaignID, c.Status, StatusOpen)
	}
	return nil
}

// SubmitBatchResponses appends commitments paired 1:1 with ciphertexts.
// The batch is all-or-nothing: every guard is checked before the first
// append, so a failed batch leaves the account untouched.
func (l *Ledger) SubmitBatchResponses(caller crypto.PublicKey, handle Handle, commitments []crypto.Commitment, ciphertexts []crypto.Ciphertext) error {
	c, err := l.campaign(handle)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsPublished {
		return errf(CodeAlreadyPublished, "campaign %q is already published", c.CampaignID)
	}
	if !c.Submitter.Equal(caller) {
		return errf(CodeUnauthorized, "caller does not hold the submitter capability")
	}
	if len(commitments) != len(ciphertexts) {
		return errf(CodeLengthMismatch, "%d commitments vs %d ciphertexts", len(commitments), len(ciphertexts))
	}
	if len(commitments) == 0 {
		return errf(CodeLengthMismatch, "empty batch")
	}
	if uint32(len(c.Commitments)+len(commitments)) > c.Capacity {
		return errf(CodeCapacityExceeded, "batch of %d would exceed capacity %d (stored %d)", len(commitments), c.Capacity, len(c.Commitments))
	}

	c.Commitments = append(c.Commitments, commitments...)
	c.EncryptedResponses = append(c.EncryptedResponses, ciphertexts...)
	c.TotalResponses += uint32(len(commitments))
	c.UpdatedAt = l.now()
	return nil
}

// PublishCampaignResults stores the Merkle root, clears ciphertext storage
// while retaining the commitments, and freezes the campaign. The provided
// root is recomputed over the stored commitments before anything mutates;
// a mismatch rejects the publish.
func (l *Ledger) PublishCampaignResults(caller crypto.PublicKey, handle Handle, root merkle.Root) error {
	c, err := l.campaign(handle)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Authority.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the campaign authority")
	}
	if c.IsPublished {
		return errf(CodeAlreadyPublished, "campaign %q is already published", c.CampaignID)
	}
	if c.TotalResponses == 0 {
		return errf(CodeNoResponsesSubmitted, "campaign %q has no responses", c.CampaignID)
	}

	leaves := make([][merkle.HashSize]byte, len(c.Commitments))
	for i, cm := range c.Commitments {
		leaves[i] = [merkle.HashSize]byte(cm)
	}
	expected, err := merkle.BuildRoot(leaves)
	if err != nil {
		return errf(CodeNoResponsesSubmitted, "campaign %q has no commitments", c.CampaignID)
	}
	if expected != root {
		return errf(CodeMerkleMismatch, "claimed root does not match the stored commitments")
	}

	c.MerkleRoot = root
	c.IsPublished = true
	c.Status = StatusPublished
	c.EncryptedResponses = nil
	c.UpdatedAt = l.now()
	return nil
}

// InitializeFinalRoot creates the one-time university performance record.
func (l *Ledger) InitializeFinalRoot(authority crypto.PublicKey, universityID string) (Handle, error) {
	if len(universityID) == 0 || len(universityID) > MaxUniversityIDLen {
		return "", errf(CodeFieldTooLong, "university id must be 1..%d chars, got %d", MaxUniversityIDLen, len(universityID))
	}

	now := l.now()
	record := &UniversityPerformance{
		Authority:    crypto.NewPublicKeyFromBytes(authority),
		UniversityID: universityID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	handle := deriveHandle("university_performance", authority, universityID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.universityIDs[universityID]; exists {
		return "", errf(CodeAlreadyExists, "university record %q already exists", universityID)
	}
	l.universities[handle] = record
	l.universityIDs[universityID] = handle
	return handle, nil
}

// LookupUniversity resolves a university id through the mapping table.
func (l *Ledger) LookupUniversity(universityID string) (Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.universityIDs[universityID]
	return h, ok
}

func (l *Ledger) university(handle Handle) (*UniversityPerformance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.universities[handle]
	if !ok {
		return nil, errf(CodeNotFound, "no university record for handle %s", handle)
	}
	return u, nil
}

// GetUniversity returns a read-only snapshot of the university record.
func (l *Ledger) GetUniversity(handle Handle) (UniversitySnapshot, error) {
	u, err := l.university(handle)
	if err != nil {
		return UniversitySnapshot{}, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.snapshot(), nil
}

// UpdateFinalMerkleRoot overwrites the university root of roots.
// totalCampaigns records how many published campaign roots were folded in.
func (l *Ledger) UpdateFinalMerkleRoot(caller crypto.PublicKey, handle Handle, finalRoot merkle.Root, totalCampaigns uint32) error {
	u, err := l.university(handle)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.Authority.Equal(caller) {
		return errf(CodeUnauthorized, "caller is not the university authority")
	}
	u.FinalMerkleRoot = finalRoot
	u.TotalCampaigns = totalCampaigns
	u.UpdatedAt = l.now()
	return nil
}

// PublishedCampaignRoots returns the roots of every published campaign in
// campaign id order, the input to the university-wide fold.
func (l *Ledger) PublishedCampaignRoots() []merkle.Root {
	l.mu.RLock()
	accounts := make([]*CampaignAccount, 0, len(l.campaigns))
	ids := make([]string, 0, len(l.campaigns))
	for id, h := range l.campaignIDs {
		accounts = append(accounts, l.campaigns[h])
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	// Sort by id for a deterministic fold order.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
			accounts[j], accounts[j-1] = accounts[j-1], accounts[j]
		}
	}

	roots := make([]merkle.Root, 0, len(accounts))
	for _, c := range accounts {
		c.mu.Lock()
		if c.IsPublished {
			roots = append(roots, c.MerkleRoot)
		}
		c.mu.Unlock()
	}
	return roots
}
