// Package services exposes the survey core over HTTP.
//
// Public routes serve campaign state, inclusion proofs, blind signing and
// submission. Admin routes carry signed requests: the service recovers the
// Ed25519 signer and hands it to the ledger as the caller identity its
// guards check, so authorization is decided by the account, not by the
// transport.
package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meomun1/anonsurvey/aggregator"
	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/issuer"
	"github.com/meomun1/anonsurvey/ledger"
	"github.com/meomun1/anonsurvey/metrics"
	"github.com/meomun1/anonsurvey/tokens"
)

// Service wires the ledger, issuer, token manager and publisher behind
// HTTP routes.
type Service struct {
	ledger    *ledger.Ledger
	issuer    *issuer.Issuer
	tokens    *tokens.Manager
	publisher *aggregator.Publisher
	queue     *SubmissionQueue
	log       *slog.Logger
}

// New creates the HTTP service.
func New(l *ledger.Ledger, iss *issuer.Issuer, tokenManager *tokens.Manager, pub *aggregator.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		ledger:    l,
		issuer:    iss,
		tokens:    tokenManager,
		publisher: pub,
		queue:     NewSubmissionQueue(),
		log:       log,
	}
}

// RegisterRoutes registers both route groups. It satisfies the server's
// RouteRegistrar interface.
func (s *Service) RegisterRoutes(r chi.Router) {
	s.RegisterPublicRoutes(r)
	s.RegisterAdminRoutes(r)
}

// RegisterPublicRoutes registers the respondent-facing routes.
func (s *Service) RegisterPublicRoutes(r chi.Router) {
	r.Get("/campaigns/{campaign_id}", s.handleGetCampaign)
	r.Get("/campaigns/{campaign_id}/proof/{index}", s.handleGetProof)
	r.Post("/blind-sign", s.handleBlindSign)
	r.Post("/submissions", s.handleSubmit)
	r.Post("/tokens/validate", s.handleValidateToken)
	r.Get("/university/{university_id}", s.handleGetUniversity)
	r.Get("/surveys/{survey_id}", s.handleGetSurvey)
}

// RegisterAdminRoutes registers the authority-facing routes. Every request
// body is a signed envelope.
func (s *Service) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/campaigns", s.handleCreateCampaign)
	r.Post("/admin/campaigns/transition", s.handleCampaignTransition)
	r.Post("/admin/campaigns/flush", s.handleFlush)
	r.Post("/admin/campaigns/publish", s.handlePublish)
	r.Post("/admin/tokens/batch", s.handleTokenBatch)
	r.Post("/admin/university", s.handleUniversityInit)
	r.Post("/admin/university/root", s.handleUniversityRoot)
	r.Post("/admin/surveys", s.handleCreateSurvey)
	r.Post("/admin/surveys/submit", s.handleSurveySubmit)
	r.Post("/admin/surveys/publish", s.handleSurveyPublish)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps core errors onto stable code strings and HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := "Internal"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, tokens.ErrTokenNotFound):
		code, status = "TokenNotFound", http.StatusNotFound
	case errors.Is(err, tokens.ErrTokenAlreadyUsed):
		code, status = "TokenAlreadyUsed", http.StatusConflict
	case errors.Is(err, tokens.ErrTokenAlreadyCompleted):
		code, status = "TokenAlreadyCompleted", http.StatusConflict
	case errors.Is(err, tokens.ErrTokenNotUsed):
		code, status = "TokenNotUsed", http.StatusConflict
	case errors.Is(err, crypto.ErrSignatureInvalid):
		code, status = string(ledger.CodeSignatureVerification), http.StatusBadRequest
	}

	if c := ledger.CodeOf(err); c != "" {
		code = string(c)
		switch c {
		case ledger.CodeFieldTooLong, ledger.CodeInvalidEnum, ledger.CodeLengthMismatch, ledger.CodeMerkleMismatch:
			status = http.StatusBadRequest
		case ledger.CodeUnauthorized:
			status = http.StatusForbidden
		case ledger.CodeNotFound:
			status = http.StatusNotFound
		default:
			status = http.StatusConflict
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&ErrorResponse{Code: code, Message: err.Error()})
}

// recoverSigned decodes a signed envelope and returns the object with the
// authenticated caller.
func recoverSigned[T any](r *http.Request) (*T, crypto.PublicKey, error) {
	var signed ledger.Signed[T]
	if err := json.NewDecoder(r.Body).Decode(&signed); err != nil {
		return nil, nil, err
	}
	return signed.Recover()
}

func (s *Service) campaignHandle(campaignID string) (ledger.Handle, error) {
	handle, ok := s.ledger.LookupCampaign(campaignID)
	if !ok {
		return "", &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown campaign " + campaignID}
	}
	return handle, nil
}

func (s *Service) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	handle, err := s.campaignHandle(chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.ledger.GetCampaign(handle)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := &CampaignResponse{
		CampaignID:              snap.CampaignID,
		Semester:                snap.Semester,
		CampaignType:            uint8(snap.CampaignType),
		Status:                  string(snap.Status),
		TotalResponses:          snap.TotalResponses,
		IsPublished:             snap.IsPublished,
		MerkleRoot:              snap.MerkleRoot.Bytes(),
		BlindSignaturePublicKey: snap.BlindSignaturePublicKey,
		EncryptionPublicKey:     snap.EncryptionPublicKey,
		Capacity:                snap.Capacity,
	}
	if snap.IsPublished {
		for _, c := range snap.Commitments {
			resp.Commitments = append(resp.Commitments, HexBytes(c.Bytes()))
		}
	}
	writeJSON(w, resp)
}

func (s *Service) handleGetProof(w http.ResponseWriter, r *http.Request) {
	handle, err := s.campaignHandle(chi.URLParam(r, "campaign_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	snap, err := s.ledger.GetCampaign(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	if index < 0 || index >= len(snap.Commitments) {
		http.Error(w, "index out of range", http.StatusBadRequest)
		return
	}

	proof, root, err := s.publisher.ProveInclusion(handle, index)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := &ProofResponse{
		Index: proof.Index,
		Root:  root.Bytes(),
		Leaf:  snap.Commitments[index].Bytes(),
	}
	for _, step := range proof.Steps {
		resp.Steps = append(resp.Steps, ProofStep{Sibling: step.Sibling[:], Left: step.Left})
	}
	writeJSON(w, resp)
}

func (s *Service) handleBlindSign(w http.ResponseWriter, r *http.Request) {
	req, err := ledger.DecodeMessage[BlindSignRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signature, err := s.issuer.RequestBlindSignature(r.Context(), req.Token, req.BlindedMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.BlindSignaturesIssued.Inc()
	writeJSON(w, &BlindSignResponse{BlindSignature: signature})
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := ledger.DecodeMessage[SubmitRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	commitment, err := crypto.NewCommitmentFromBytes(req.Commitment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ciphertext, err := crypto.NewCiphertextFromBytes(req.Ciphertext)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := s.tokens.Validate(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	if t.CampaignID != req.CampaignID {
		writeError(w, &ledger.Error{Code: ledger.CodeUnauthorized, Message: "token was issued for a different campaign"})
		return
	}

	handle, err := s.campaignHandle(req.CampaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	snap, err := s.ledger.GetCampaign(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	if snap.IsPublished {
		writeError(w, &ledger.Error{Code: ledger.CodeAlreadyPublished, Message: "campaign is already published"})
		return
	}

	// The used -> completed swap is what makes one token good for exactly
	// one submission; the enqueue only happens for the winner.
	if err := s.tokens.MarkCompleted(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}

	pending := s.queue.Enqueue(req.CampaignID, commitment, ciphertext, req.Token)
	metrics.SubmissionsAccepted.Inc()
	writeJSON(w, &SubmitResponse{Accepted: true, Pending: pending})
}

func (s *Service) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	req, err := ledger.DecodeMessage[TokenStateRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, err := s.tokens.Validate(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, &TokenStateResponse{CampaignID: t.CampaignID, Used: t.Used, Completed: t.Completed})
}

func (s *Service) handleGetUniversity(w http.ResponseWriter, r *http.Request) {
	universityID := chi.URLParam(r, "university_id")
	handle, ok := s.ledger.LookupUniversity(universityID)
	if !ok {
		writeError(w, &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown university " + universityID})
		return
	}
	snap, err := s.ledger.GetUniversity(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, &UniversityResponse{
		UniversityID:    snap.UniversityID,
		TotalCampaigns:  snap.TotalCampaigns,
		FinalMerkleRoot: snap.FinalMerkleRoot.Bytes(),
	})
}

func (s *Service) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID := chi.URLParam(r, "survey_id")
	handle, ok := s.ledger.LookupSurvey(surveyID)
	if !ok {
		writeError(w, &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown survey " + surveyID})
		return
	}
	snap, err := s.ledger.GetSurvey(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, &SurveyResponse{
		SurveyID:       snap.SurveyID,
		CampaignID:     snap.CampaignID,
		QuestionIDs:    snap.QuestionIDs,
		TotalResponses: snap.TotalResponses,
		IsPublished:    snap.IsPublished,
		MerkleRoot:     snap.MerkleRoot.Bytes(),
	})
}
