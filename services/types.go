package services

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/meomun1/anonsurvey/tokens"
)

// HexBytes is a byte slice that travels as lowercase hex (no prefix) in
// JSON, the wire representation every binary field uses.
type HexBytes []byte

// MarshalJSON encodes the bytes as a lowercase hex string.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

// UnmarshalJSON decodes a hex string into bytes.
func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*h = raw
	return nil
}

// CreateCampaignRequest is the signed admin request creating a campaign.
type CreateCampaignRequest struct {
	CampaignID              string   `json:"campaign_id"`
	Semester                string   `json:"semester"`
	CampaignType            uint8    `json:"campaign_type"`
	BlindSignaturePublicKey HexBytes `json:"blind_signature_public_key,omitempty"`
	EncryptionPublicKey     HexBytes `json:"encryption_public_key,omitempty"`
	Capacity                uint32   `json:"capacity,omitempty"`
}

// CreateCampaignResponse returns the new campaign handle and its public
// key material.
type CreateCampaignResponse struct {
	Handle                  string   `json:"handle"`
	BlindSignaturePublicKey HexBytes `json:"blind_signature_public_key"`
	EncryptionPublicKey     HexBytes `json:"encryption_public_key"`
}

// CampaignTransitionRequest is a signed lifecycle transition.
type CampaignTransitionRequest struct {
	CampaignID string `json:"campaign_id"`
	// Transition is one of "open", "close_input", "close".
	Transition string `json:"transition"`
}

// CampaignResponse is the public view of a campaign account.
type CampaignResponse struct {
	CampaignID              string     `json:"campaign_id"`
	Semester                string     `json:"semester"`
	CampaignType            uint8      `json:"campaign_type"`
	Status                  string     `json:"status"`
	TotalResponses          uint32     `json:"total_responses"`
	IsPublished             bool       `json:"is_published"`
	MerkleRoot              HexBytes   `json:"merkle_root"`
	BlindSignaturePublicKey HexBytes   `json:"blind_signature_public_key"`
	EncryptionPublicKey     HexBytes   `json:"encryption_public_key"`
	Capacity                uint32     `json:"capacity"`
	Commitments             []HexBytes `json:"commitments,omitempty"`
}

// BlindSignRequest asks the issuer to sign a blinded message. The token is
// consumed by this call.
type BlindSignRequest struct {
	Token          string   `json:"token"`
	BlindedMessage HexBytes `json:"blinded_message"`
}

// BlindSignResponse carries the blind signature back to the client.
type BlindSignResponse struct {
	BlindSignature HexBytes `json:"blind_signature"`
}

// SubmitRequest delivers one prepared (commitment, ciphertext) pair. The
// token must be in the used state; a successful submit completes it.
type SubmitRequest struct {
	Token      string   `json:"token"`
	CampaignID string   `json:"campaign_id"`
	Commitment HexBytes `json:"commitment"`
	Ciphertext HexBytes `json:"ciphertext"`
}

// SubmitResponse acknowledges a queued submission.
type SubmitResponse struct {
	Accepted bool `json:"accepted"`
	// Pending is the number of pairs queued for the next ledger batch.
	Pending int `json:"pending"`
}

// FlushRequest is the signed admin request pushing queued submissions to
// the ledger as one batch.
type FlushRequest struct {
	CampaignID string `json:"campaign_id"`
}

// FlushResponse reports the batch outcome.
type FlushResponse struct {
	Submitted      int    `json:"submitted"`
	TotalResponses uint32 `json:"total_responses"`
}

// PublishRequest is the signed admin request publishing campaign results.
type PublishRequest struct {
	CampaignID string `json:"campaign_id"`
}

// PublishResponse returns the stored Merkle root.
type PublishResponse struct {
	MerkleRoot HexBytes `json:"merkle_root"`
}

// ProofResponse is an inclusion proof for one commitment.
type ProofResponse struct {
	Index int         `json:"index"`
	Steps []ProofStep `json:"steps"`
	Root  HexBytes    `json:"root"`
	Leaf  HexBytes    `json:"leaf"`
}

// ProofStep mirrors merkle.ProofStep with hex-encoded hashes.
type ProofStep struct {
	Sibling HexBytes `json:"sibling"`
	Left    bool     `json:"left"`
}

// TokenBatchRequest is the signed admin request minting tokens for a
// campaign's recipients.
type TokenBatchRequest struct {
	CampaignID string   `json:"campaign_id"`
	Recipients []string `json:"recipients"`
}

// TokenBatchResponse returns the per-recipient token values.
type TokenBatchResponse struct {
	Tokens []tokens.IssuedToken `json:"tokens"`
}

// TokenStateRequest addresses a token by its raw value.
type TokenStateRequest struct {
	Token string `json:"token"`
}

// TokenStateResponse reports a token's current flags.
type TokenStateResponse struct {
	CampaignID string `json:"campaign_id"`
	Used       bool   `json:"used"`
	Completed  bool   `json:"completed"`
}

// UniversityInitRequest is the signed one-time request creating the
// university performance record.
type UniversityInitRequest struct {
	UniversityID string `json:"university_id"`
}

// UniversityRootRequest is the signed request folding all published
// campaign roots into the final root.
type UniversityRootRequest struct {
	UniversityID string `json:"university_id"`
}

// UniversityResponse is the public view of the university record.
type UniversityResponse struct {
	UniversityID    string   `json:"university_id"`
	TotalCampaigns  uint32   `json:"total_campaigns"`
	FinalMerkleRoot HexBytes `json:"final_merkle_root"`
}

// CreateSurveyRequest is the signed admin request creating a legacy
// single-survey account.
type CreateSurveyRequest struct {
	SurveyID    string   `json:"survey_id"`
	CampaignID  string   `json:"campaign_id"`
	QuestionIDs []string `json:"question_ids"`
}

// SurveySubmitRequest appends one response to a legacy survey account.
type SurveySubmitRequest struct {
	SurveyID   string   `json:"survey_id"`
	Commitment HexBytes `json:"commitment"`
	Ciphertext HexBytes `json:"ciphertext"`
}

// SurveyPublishRequest is the signed admin request publishing a legacy
// survey's results.
type SurveyPublishRequest struct {
	SurveyID string `json:"survey_id"`
}

// SurveyResponse is the public view of a legacy survey account.
type SurveyResponse struct {
	SurveyID       string   `json:"survey_id"`
	CampaignID     string   `json:"campaign_id"`
	QuestionIDs    []string `json:"question_ids"`
	TotalResponses uint32   `json:"total_responses"`
	IsPublished    bool     `json:"is_published"`
	MerkleRoot     HexBytes `json:"merkle_root"`
}

// ErrorResponse carries the stable error code alongside the message.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
