package governance

import (
	"errors"
	"fmt"

	"github.com/stake-plus/council-treasury/src/council/ledger"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// SignerRecord is a co-signature presented with a release: Signature must
// be Principal's signature over ReleaseMessage.
type SignerRecord struct {
	Principal string `json:"principal"`
	Signature string `json:"signature"`
}

// ReleaseMessage is the payload co-signers sign to authorize the release
// of p's funds. It binds the proposal, destination and amount.
func ReleaseMessage(p *types.Proposal) []byte {
	return []byte(fmt.Sprintf("council-release:%s:%s:%s:%d",
		p.DaoAddress, p.Address, p.TargetTreasury, p.AmountRequired))
}

// authorizeRelease is the treasury guard. It checks the destination, the
// treasury balance and the signer quorum, then moves exactly
// AmountRequired from the treasury to the destination. It returns the
// number of counted signers.
func (e *Engine) authorizeRelease(tx store.Tx, reg *types.Registry, resolver *types.Member, p *types.Proposal, in ResolveInput) (int, error) {
	if in.TargetTreasury != p.TargetTreasury {
		return 0, ErrMismatchedTreasuryAccount
	}

	balance, err := tx.Balance(reg.Treasury)
	if err != nil {
		return 0, err
	}
	if balance <= p.AmountRequired {
		return 0, ErrInsufficientTreasuryBalance
	}

	signers, council, err := e.countSigners(tx, reg, resolver, p, in.Signers)
	if err != nil {
		return 0, err
	}
	if !council {
		return 0, ErrNoCouncilMemberSigned
	}
	if signers < uint64(reg.MinMultisigSigners) {
		return 0, ErrInsufficientMultisigSigners
	}

	if p.AmountRequired > 0 {
		if err := ledger.Transfer(tx, reg.Treasury, p.TargetTreasury, p.AmountRequired, ledger.ReasonRelease, p.Address); err != nil {
			return 0, err
		}
	}
	return int(signers), nil
}

// countSigners starts from the resolver and adds every distinct supplied
// signer who is a member and whose signature verifies. Scanning stops once
// a council signer is present and the minimum is reached.
func (e *Engine) countSigners(tx store.Tx, reg *types.Registry, resolver *types.Member, p *types.Proposal, records []SignerRecord) (uint64, bool, error) {
	count := uint64(1)
	council := resolver.IsCouncil
	need := uint64(reg.MinMultisigSigners)
	seen := map[string]bool{resolver.Owner: true}
	msg := ReleaseMessage(p)

	for _, rec := range records {
		if council && count >= need {
			break
		}
		if seen[rec.Principal] {
			continue
		}
		m, err := loadMember(tx, reg.Address, rec.Principal)
		if errors.Is(err, ErrNotMember) {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if e.verifier == nil || e.verifier.Verify(rec.Principal, rec.Signature, msg) != nil {
			continue
		}
		seen[rec.Principal] = true
		if err := incr(&count); err != nil {
			return 0, false, err
		}
		if m.IsCouncil {
			council = true
		}
	}
	return count, council, nil
}
