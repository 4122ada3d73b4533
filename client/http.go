package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/merkle"
	"github.com/meomun1/anonsurvey/services"
)

// HTTPClient talks to the survey service's public routes. It implements
// Signer, so it can drive BuildSubmission end to end.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, http: &http.Client{}}
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return decodeServiceError(httpResp)
	}
	if resp == nil {
		return nil
	}
	return json.NewDecoder(httpResp.Body).Decode(resp)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, resp any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return decodeServiceError(httpResp)
	}
	return json.NewDecoder(httpResp.Body).Decode(resp)
}

func decodeServiceError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var svcErr services.ErrorResponse
	if err := json.Unmarshal(body, &svcErr); err == nil && svcErr.Code != "" {
		return fmt.Errorf("%s: %s", svcErr.Code, svcErr.Message)
	}
	return fmt.Errorf("service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

// FetchCampaignKeys retrieves and parses a campaign's public key material.
func (c *HTTPClient) FetchCampaignKeys(ctx context.Context, campaignID string) (*CampaignKeys, error) {
	var resp services.CampaignResponse
	if err := c.getJSON(ctx, "/campaigns/"+campaignID, &resp); err != nil {
		return nil, err
	}
	return ParseCampaignKeys(resp.BlindSignaturePublicKey, resp.EncryptionPublicKey)
}

// RequestBlindSignature implements Signer over the /blind-sign route.
func (c *HTTPClient) RequestBlindSignature(ctx context.Context, token string, blindedMessage []byte) ([]byte, error) {
	var resp services.BlindSignResponse
	err := c.postJSON(ctx, "/blind-sign", &services.BlindSignRequest{
		Token:          token,
		BlindedMessage: blindedMessage,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.BlindSignature, nil
}

// Submit delivers a prepared submission for a campaign. Only the
// commitment and ciphertext leave the client.
func (c *HTTPClient) Submit(ctx context.Context, token, campaignID string, sub *Submission) error {
	return c.postJSON(ctx, "/submissions", &services.SubmitRequest{
		Token:      token,
		CampaignID: campaignID,
		Commitment: sub.Commitment.Bytes(),
		Ciphertext: sub.Ciphertext.Bytes(),
	}, nil)
}

// FetchProof retrieves the inclusion proof for the commitment at index.
func (c *HTTPClient) FetchProof(ctx context.Context, campaignID string, index int) (crypto.Commitment, merkle.Proof, merkle.Root, error) {
	var resp services.ProofResponse
	if err := c.getJSON(ctx, "/campaigns/"+campaignID+"/proof/"+strconv.Itoa(index), &resp); err != nil {
		return crypto.Commitment{}, merkle.Proof{}, merkle.Root{}, err
	}

	leaf, err := crypto.NewCommitmentFromBytes(resp.Leaf)
	if err != nil {
		return crypto.Commitment{}, merkle.Proof{}, merkle.Root{}, err
	}

	proof := merkle.Proof{Index: resp.Index}
	for _, step := range resp.Steps {
		if len(step.Sibling) != merkle.HashSize {
			return crypto.Commitment{}, merkle.Proof{}, merkle.Root{}, fmt.Errorf("sibling hash must be %d bytes", merkle.HashSize)
		}
		var sibling [merkle.HashSize]byte
		copy(sibling[:], step.Sibling)
		proof.Steps = append(proof.Steps, merkle.ProofStep{Sibling: sibling, Left: step.Left})
	}

	if len(resp.Root) != merkle.HashSize {
		return crypto.Commitment{}, merkle.Proof{}, merkle.Root{}, fmt.Errorf("root must be %d bytes", merkle.HashSize)
	}
	var root merkle.Root
	copy(root[:], resp.Root)

	return leaf, proof, root, nil
}
