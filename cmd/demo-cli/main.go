// Command demo-cli drives a full campaign against a running authority.
//
// The flow mirrors a real collection period end to end: create the
// campaign, advance it to the open status, issue one token per respondent,
// build and submit a blinded response for each token, flush the queue into
// the ledger, publish the Merkle root, and verify an inclusion proof.
//
//	go run ./cmd/demo-cli --authority=http://localhost:8080 --responses=5
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/meomun1/anonsurvey/client"
	"github.com/meomun1/anonsurvey/cmd/common"
	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/ledger"
	"github.com/meomun1/anonsurvey/services"
)

func main() {
	var (
		authorityURL = flag.String("authority", "http://localhost:8080", "Authority base URL")
		campaignID   = flag.String("campaign", "demo-campaign", "Campaign identifier")
		semester     = flag.String("semester", "2026-fall", "Semester label")
		responses    = flag.Int("responses", 3, "Number of respondents to simulate")
		signingKey   = flag.String("signing-key", "", "Authority Ed25519 private key in hex (generated if empty)")
		timeout      = flag.Duration("timeout", time.Minute, "Overall run timeout")
	)
	flag.Parse()

	if err := run(*authorityURL, *campaignID, *semester, *signingKey, *responses, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(authorityURL, campaignID, semester, signingKey string, responses int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	authority, err := common.LoadOrGenerateSigningKey(signingKey)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	admin := &adminClient{baseURL: authorityURL, key: authority}
	public := client.NewHTTPClient(authorityURL)

	// Create the campaign. The authority generates and keeps the blind
	// signing and encryption key pairs.
	var created services.CreateCampaignResponse
	err = postSigned(ctx, admin, "/admin/campaigns", &services.CreateCampaignRequest{
		CampaignID:   campaignID,
		Semester:     semester,
		CampaignType: 0,
	}, &created)
	if err != nil {
		return fmt.Errorf("creating campaign: %w", err)
	}
	fmt.Printf("Created campaign %s (handle %s)\n", campaignID, created.Handle)

	// Advance draft -> teachers_input -> open so tokens can be issued.
	for _, transition := range []string{"open", "close_input"} {
		err = postSigned(ctx, admin, "/admin/campaigns/transition", &services.CampaignTransitionRequest{
			CampaignID: campaignID,
			Transition: transition,
		}, nil)
		if err != nil {
			return fmt.Errorf("transition %s: %w", transition, err)
		}
	}

	recipients := make([]string, responses)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("respondent-%d", i+1)
	}
	var batch services.TokenBatchResponse
	err = postSigned(ctx, admin, "/admin/tokens/batch", &services.TokenBatchRequest{
		CampaignID: campaignID,
		Recipients: recipients,
	}, &batch)
	if err != nil {
		return fmt.Errorf("issuing tokens: %w", err)
	}
	fmt.Printf("Issued %d tokens\n", len(batch.Tokens))

	keys, err := public.FetchCampaignKeys(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("fetching campaign keys: %w", err)
	}

	// Each respondent blinds, signs, encrypts and submits independently.
	submissions := make([]*client.Submission, len(batch.Tokens))
	for i, issued := range batch.Tokens {
		answers := crypto.AnswerSet{
			SurveyID:   campaignID,
			CourseCode: "COURSE-101",
			ScopeID:    semester,
			Answers:    []int{1 + i%5, 1 + (i+2)%5, 1 + (i+4)%5},
		}
		sub, err := client.BuildSubmission(ctx, public, issued.Value, keys, answers)
		if err != nil {
			return fmt.Errorf("building submission %d: %w", i, err)
		}
		if err := public.Submit(ctx, issued.Value, campaignID, sub); err != nil {
			return fmt.Errorf("submitting response %d: %w", i, err)
		}
		submissions[i] = sub
	}
	fmt.Printf("Submitted %d responses\n", len(submissions))

	var flushed services.FlushResponse
	err = postSigned(ctx, admin, "/admin/campaigns/flush", &services.FlushRequest{CampaignID: campaignID}, &flushed)
	if err != nil {
		return fmt.Errorf("flushing queue: %w", err)
	}
	fmt.Printf("Flushed %d pairs, ledger holds %d responses\n", flushed.Submitted, flushed.TotalResponses)

	err = postSigned(ctx, admin, "/admin/campaigns/transition", &services.CampaignTransitionRequest{
		CampaignID: campaignID,
		Transition: "close",
	}, nil)
	if err != nil {
		return fmt.Errorf("closing campaign: %w", err)
	}

	var published services.PublishResponse
	err = postSigned(ctx, admin, "/admin/campaigns/publish", &services.PublishRequest{CampaignID: campaignID}, &published)
	if err != nil {
		return fmt.Errorf("publishing results: %w", err)
	}
	fmt.Printf("Published Merkle root %x\n", []byte(published.MerkleRoot))

	// Verify the first respondent's commitment is under the root.
	leaf, proof, root, err := public.FetchProof(ctx, campaignID, 0)
	if err != nil {
		return fmt.Errorf("fetching proof: %w", err)
	}
	if !client.VerifyInclusion(leaf, proof, root) {
		return fmt.Errorf("inclusion proof for index 0 did not verify")
	}
	fmt.Println("Inclusion proof for index 0 verified")
	return nil
}

// adminClient posts signed envelopes to the authority's admin routes.
type adminClient struct {
	baseURL string
	key     crypto.PrivateKey
	http    http.Client
}

// postSigned wraps the request in a signed envelope, posts it, and decodes
// the response into out when out is non-nil.
func postSigned[T any](ctx context.Context, c *adminClient, path string, req *T, out any) error {
	signed, err := ledger.NewSigned(c.key, req)
	if err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	body, err := json.Marshal(signed)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		var errResp services.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Code != "" {
			return fmt.Errorf("%s: %s", errResp.Code, errResp.Message)
		}
		return fmt.Errorf("authority returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
