// Package aggregator assembles Merkle roots over stored commitments and
// drives the publish instructions of the ledger.
//
// The aggregator is the off-ledger half of publication: it reads a
// campaign's commitments in insertion order, computes the root, and hands
// it to the ledger's publish instruction, which re-verifies it before
// freezing the account. It also serves inclusion proofs against published
// roots and folds campaign roots into the university-wide final root.
package aggregator

import (
	"log/slog"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/ledger"
	"github.com/meomun1/anonsurvey/merkle"
)

// Publisher computes roots over ledger state and publishes them.
type Publisher struct {
	ledger *ledger.Ledger
	log    *slog.Logger
}

// NewPublisher creates a publisher over the given ledger.
func NewPublisher(l *ledger.Ledger, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{ledger: l, log: log}
}

func leavesOf(commitments []crypto.Commitment) [][merkle.HashSize]byte {
	leaves := make([][merkle.HashSize]byte, len(commitments))
	for i, c := range commitments {
		leaves[i] = [merkle.HashSize]byte(c)
	}
	return leaves
}

// CampaignRoot computes the Merkle root over a campaign's stored
// commitments in insertion order, without mutating anything.
func (p *Publisher) CampaignRoot(handle ledger.Handle) (merkle.Root, error) {
	snap, err := p.ledger.GetCampaign(handle)
	if err != nil {
		return merkle.Root{}, err
	}
	return merkle.BuildRoot(leavesOf(snap.Commitments))
}

// PublishCampaign computes the root and submits the publish instruction,
// which clears ciphertext storage and freezes the campaign.
func (p *Publisher) PublishCampaign(caller crypto.PublicKey, handle ledger.Handle) (merkle.Root, error) {
	root, err := p.CampaignRoot(handle)
	if err != nil {
		return merkle.Root{}, err
	}
	if err := p.ledger.PublishCampaignResults(caller, handle, root); err != nil {
		return merkle.Root{}, err
	}
	p.log.Info("published campaign results", "handle", handle.String(), "root", root)
	return root, nil
}

// ProveInclusion returns the inclusion proof for the commitment at index
// against the campaign's commitment list. Leaf order is the stored
// insertion order; reordering for display would invalidate every proof.
func (p *Publisher) ProveInclusion(handle ledger.Handle, index int) (merkle.Proof, merkle.Root, error) {
	snap, err := p.ledger.GetCampaign(handle)
	if err != nil {
		return merkle.Proof{}, merkle.Root{}, err
	}
	leaves := leavesOf(snap.Commitments)
	proof, err := merkle.Prove(leaves, index)
	if err != nil {
		return merkle.Proof{}, merkle.Root{}, err
	}
	root, err := merkle.BuildRoot(leaves)
	if err != nil {
		return merkle.Proof{}, merkle.Root{}, err
	}
	return proof, root, nil
}

// SurveyRoot computes the root over a legacy survey's commitments.
func (p *Publisher) SurveyRoot(handle ledger.Handle) (merkle.Root, error) {
	snap, err := p.ledger.GetSurvey(handle)
	if err != nil {
		return merkle.Root{}, err
	}
	return merkle.BuildRoot(leavesOf(snap.Commitments))
}

// PublishSurvey publishes a legacy single-survey account.
func (p *Publisher) PublishSurvey(caller crypto.PublicKey, handle ledger.Handle) (merkle.Root, error) {
	root, err := p.SurveyRoot(handle)
	if err != nil {
		return merkle.Root{}, err
	}
	if err := p.ledger.PublishResults(caller, handle, root); err != nil {
		return merkle.Root{}, err
	}
	return root, nil
}

// UpdateUniversityRoot folds every published campaign root into the
// university record's root of roots. Run once all campaigns for a cycle
// have published.
func (p *Publisher) UpdateUniversityRoot(caller crypto.PublicKey, handle ledger.Handle) (merkle.Root, error) {
	roots := p.ledger.PublishedCampaignRoots()
	finalRoot, err := merkle.FoldRoots(roots)
	if err != nil {
		return merkle.Root{}, err
	}
	if err := p.ledger.UpdateFinalMerkleRoot(caller, handle, finalRoot, uint32(len(roots))); err != nil {
		return merkle.Root{}, err
	}
	p.log.Info("updated university final root", "campaigns", len(roots))
	return finalRoot, nil
}
