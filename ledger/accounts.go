package ledger

import (
	"sync"
	"time"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/merkle"
)

// Field size limits. Account storage is pre-sized; a write that would
// exceed its allocation fails cleanly before any mutation.
const (
	MaxCampaignIDLen   = 50
	MaxSemesterLen     = 20
	MaxUniversityIDLen = 50
	MaxSurveyIDLen     = 50
	MaxQuestionIDLen   = 50

	// DefaultCampaignCapacity is the response capacity a campaign account
	// is pre-sized for unless created with an explicit capacity.
	DefaultCampaignCapacity = 10

	// MaxSurveyResponses caps the legacy single-survey account.
	MaxSurveyResponses = 10
)

// CampaignType discriminates what a campaign evaluates.
type CampaignType uint8

const (
	CourseSurvey CampaignType = 0
	EventSurvey  CampaignType = 1
)

// Valid reports whether the discriminant is in range.
func (t CampaignType) Valid() bool {
	return t == CourseSurvey || t == EventSurvey
}

// CampaignStatus is the campaign lifecycle state.
type CampaignStatus string

const (
	StatusDraft         CampaignStatus = "draft"
	StatusTeachersInput CampaignStatus = "teachers_input"
	StatusOpen          CampaignStatus = "open"
	StatusClosed        CampaignStatus = "closed"
	StatusPublished     CampaignStatus = "published"
)

// CampaignAccount is the per-campaign ledger account. The commitment list
// is append-only and its insertion order is the Merkle leaf order; the
// ciphertext list pairs 1:1 with it by index until publication clears it.
type CampaignAccount struct {
	mu sync.Mutex

	// Authority holds the fee/authorization capability: lifecycle
	// transitions and publication check against it. Submitter holds the
	// separate submission capability so a different payer can be swapped in
	// without conflating identities.
	Authority crypto.PublicKey
	Submitter crypto.PublicKey

	CampaignID   string
	Semester     string
	CampaignType CampaignType
	Status       CampaignStatus

	TotalResponses uint32
	CreatedAt      time.Time
	UpdatedAt      time.Time

	IsPublished bool
	MerkleRoot  merkle.Root

	Commitments        []crypto.Commitment
	EncryptedResponses []crypto.Ciphertext

	BlindSignaturePublicKey []byte
	EncryptionPublicKey     []byte

	// Capacity is the pre-sized response allocation, exposed instead of a
	// magic number. Writes past it are rejected, never silently grown.
	Capacity uint32
}

// CampaignSnapshot is a read-only copy of campaign state handed to callers.
type CampaignSnapshot struct {
	Authority               crypto.PublicKey
	Submitter               crypto.PublicKey
	CampaignID              string
	Semester                string
	CampaignType            CampaignType
	Status                  CampaignStatus
	TotalResponses          uint32
	IsPublished             bool
	MerkleRoot              merkle.Root
	Commitments             []crypto.Commitment
	EncryptedResponses      []crypto.Ciphertext
	BlindSignaturePublicKey []byte
	EncryptionPublicKey     []byte
	Capacity                uint32
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (c *CampaignAccount) snapshot() CampaignSnapshot {
	return CampaignSnapshot{
		Authority:               crypto.NewPublicKeyFromBytes(c.Authority),
		Submitter:               crypto.NewPublicKeyFromBytes(c.Submitter),
		CampaignID:              c.CampaignID,
		Semester:                c.Semester,
		CampaignType:            c.CampaignType,
		Status:                  c.Status,
		TotalResponses:          c.TotalResponses,
		IsPublished:             c.IsPublished,
		MerkleRoot:              c.MerkleRoot,
		Commitments:             append([]crypto.Commitment(nil), c.Commitments...),
		EncryptedResponses:      append([]crypto.Ciphertext(nil), c.EncryptedResponses...),
		BlindSignaturePublicKey: append([]byte(nil), c.BlindSignaturePublicKey...),
		EncryptionPublicKey:     append([]byte(nil), c.EncryptionPublicKey...),
		Capacity:                c.Capacity,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
	}
}

// UniversityPerformance is the aggregate record keyed by institution id.
// Its final root folds every published campaign root together; it is never
// read as part of any single-campaign flow.
type UniversityPerformance struct {
	mu sync.Mutex

	Authority       crypto.PublicKey
	UniversityID    string
	TotalCampaigns  uint32
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FinalMerkleRoot merkle.Root
}

// UniversitySnapshot is a read-only copy of a university record.
type UniversitySnapshot struct {
	UniversityID    string
	TotalCampaigns  uint32
	FinalMerkleRoot merkle.Root
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *UniversityPerformance) snapshot() UniversitySnapshot {
	return UniversitySnapshot{
		UniversityID:    u.UniversityID,
		TotalCampaigns:  u.TotalCampaigns,
		FinalMerkleRoot: u.FinalMerkleRoot,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// SurveyAccount is the legacy single-survey account: one evaluation
// instance with a hard response cap bounded by its fixed account size.
type SurveyAccount struct {
	mu sync.Mutex

	Authority  crypto.PublicKey
	Submitter  crypto.PublicKey
	SurveyID   string
	CampaignID string
	// QuestionIDs is the ordered template reference.
	QuestionIDs []string

	TotalResponses uint32
	IsPublished    bool
	MerkleRoot     merkle.Root

	Commitments        []crypto.Commitment
	EncryptedResponses []crypto.Ciphertext

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SurveySnapshot is a read-only copy of survey state.
type SurveySnapshot struct {
	SurveyID           string
	CampaignID         string
	QuestionIDs        []string
	TotalResponses     uint32
	IsPublished        bool
	MerkleRoot         merkle.Root
	Commitments        []crypto.Commitment
	EncryptedResponses []crypto.Ciphertext
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s *SurveyAccount) snapshot() SurveySnapshot {
	return SurveySnapshot{
		SurveyID:           s.SurveyID,
		CampaignID:         s.CampaignID,
		QuestionIDs:        append([]string(nil), s.QuestionIDs...),
		TotalResponses:     s.TotalResponses,
		IsPublished:        s.IsPublished,
		MerkleRoot:         s.MerkleRoot,
		Commitments:        append([]crypto.Commitment(nil), s.Commitments...),
		EncryptedResponses: append([]crypto.Ciphertext(nil), s.EncryptedResponses...),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}
