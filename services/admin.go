package services

import (
	"net/http"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/ledger"
	"github.com/meomun1/anonsurvey/metrics"
)

func (s *Service) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[CreateCampaignRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	blindDER := []byte(req.BlindSignaturePublicKey)
	encDER := []byte(req.EncryptionPublicKey)

	// When the request carries no key material the issuer generates the
	// campaign key pairs and keeps the private halves in its custody.
	if len(blindDER) == 0 && len(encDER) == 0 {
		keys, err := s.issuer.GenerateCampaignKeys(req.CampaignID)
		if err != nil {
			writeError(w, err)
			return
		}
		blindDER, encDER, err = keys.PublicKeys()
		if err != nil {
			writeError(w, err)
			return
		}
	}

	handle, err := s.ledger.CreateCampaign(caller, ledger.CreateCampaignParams{
		CampaignID:              req.CampaignID,
		Semester:                req.Semester,
		CampaignType:            ledger.CampaignType(req.CampaignType),
		BlindSignaturePublicKey: blindDER,
		EncryptionPublicKey:     encDER,
		Capacity:                req.Capacity,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("campaign created", "campaign", req.CampaignID, "handle", handle.String())
	writeJSON(w, &CreateCampaignResponse{
		Handle:                  handle.String(),
		BlindSignaturePublicKey: blindDER,
		EncryptionPublicKey:     encDER,
	})
}

func (s *Service) handleCampaignTransition(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[CampaignTransitionRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, herr := s.campaignHandle(req.CampaignID)
	if herr != nil {
		writeError(w, herr)
		return
	}

	switch req.Transition {
	case "open":
		err = s.ledger.OpenCampaign(caller, handle)
	case "close_input":
		err = s.ledger.CloseInput(caller, handle)
	case "close":
		err = s.ledger.CloseCampaign(caller, handle)
	default:
		http.Error(w, "unknown transition "+req.Transition, http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleFlush(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[FlushRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, herr := s.campaignHandle(req.CampaignID)
	if herr != nil {
		writeError(w, herr)
		return
	}

	pairs := s.queue.Drain(req.CampaignID)
	if len(pairs) == 0 {
		writeJSON(w, &FlushResponse{Submitted: 0})
		return
	}

	commitments := make([]crypto.Commitment, len(pairs))
	ciphertexts := make([]crypto.Ciphertext, len(pairs))
	for i, p := range pairs {
		commitments[i] = p.commitment
		ciphertexts[i] = p.ciphertext
	}

	if err := s.ledger.SubmitBatchResponses(caller, handle, commitments, ciphertexts); err != nil {
		// The batch did not land; the pairs stay queued.
		s.queue.Requeue(req.CampaignID, pairs)
		writeError(w, err)
		return
	}

	snap, err := s.ledger.GetCampaign(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("flushed submissions", "campaign", req.CampaignID, "batch", len(pairs))
	writeJSON(w, &FlushResponse{Submitted: len(pairs), TotalResponses: snap.TotalResponses})
}

func (s *Service) handlePublish(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[PublishRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, herr := s.campaignHandle(req.CampaignID)
	if herr != nil {
		writeError(w, herr)
		return
	}

	root, err := s.publisher.PublishCampaign(caller, handle)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.CampaignsPublished.Inc()
	writeJSON(w, &PublishResponse{MerkleRoot: root.Bytes()})
}

func (s *Service) handleTokenBatch(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[TokenBatchRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, herr := s.campaignHandle(req.CampaignID)
	if herr != nil {
		writeError(w, herr)
		return
	}

	// Token generation is gated on the campaign being open for collection.
	if err := s.ledger.CheckLaunchGate(caller, handle); err != nil {
		writeError(w, err)
		return
	}

	issued, err := s.tokens.IssueBatch(r.Context(), req.CampaignID, req.Recipients)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("issued token batch", "campaign", req.CampaignID, "count", len(issued))
	writeJSON(w, &TokenBatchResponse{Tokens: issued})
}

func (s *Service) handleUniversityInit(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[UniversityInitRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if _, err := s.ledger.InitializeFinalRoot(caller, req.UniversityID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleUniversityRoot(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[UniversityRootRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, ok := s.ledger.LookupUniversity(req.UniversityID)
	if !ok {
		writeError(w, &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown university " + req.UniversityID})
		return
	}

	finalRoot, err := s.publisher.UpdateUniversityRoot(caller, handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, &PublishResponse{MerkleRoot: finalRoot.Bytes()})
}

func (s *Service) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[CreateSurveyRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, err := s.ledger.CreateSurvey(caller, ledger.CreateSurveyParams{
		SurveyID:    req.SurveyID,
		CampaignID:  req.CampaignID,
		QuestionIDs: req.QuestionIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"handle": handle.String()})
}

func (s *Service) handleSurveySubmit(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[SurveySubmitRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
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

	handle, ok := s.ledger.LookupSurvey(req.SurveyID)
	if !ok {
		writeError(w, &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown survey " + req.SurveyID})
		return
	}

	if err := s.ledger.SubmitResponse(caller, handle, commitment, ciphertext); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleSurveyPublish(w http.ResponseWriter, r *http.Request) {
	req, caller, err := recoverSigned[SurveyPublishRequest](r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	handle, ok := s.ledger.LookupSurvey(req.SurveyID)
	if !ok {
		writeError(w, &ledger.Error{Code: ledger.CodeNotFound, Message: "unknown survey " + req.SurveyID})
		return
	}

	root, err := s.publisher.PublishSurvey(caller, handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, &PublishResponse{MerkleRoot: root.Bytes()})
}
