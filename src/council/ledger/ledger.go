package ledger

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("balance overflow")
	ErrZeroAmount        = errors.New("amount must be positive")
)

// Journal reasons.
const (
	ReasonFund    = "fund"
	ReasonRelease = "release"
	ReasonDeposit = "deposit"
)

// Transfer moves amount between custody accounts inside the caller's unit
// of work and journals it. Both balances are checked before either is
// written.
func Transfer(tx store.Tx, from, to string, amount uint64, reason, ref string) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if from == to {
		return fmt.Errorf("transfer to self: %s", from)
	}
	src, err := tx.Balance(from)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, src, amount)
	}
	dst, err := tx.Balance(to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(dst, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	if err := tx.SetBalance(from, src-amount); err != nil {
		return err
	}
	if err := tx.SetBalance(to, sum); err != nil {
		return err
	}
	return tx.AppendEntry(&types.LedgerEntry{From: from, To: to, Amount: amount, Reason: reason, Ref: ref})
}

// Credit books an inflow from outside the ledger (a patron's contribution
// or a retired record's deposit).
func Credit(tx store.Tx, from, to string, amount uint64, reason, ref string) error {
	if amount == 0 {
		return nil
	}
	bal, err := tx.Balance(to)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(bal, amount, 0)
	if carry != 0 {
		return ErrOverflow
	}
	if err := tx.SetBalance(to, sum); err != nil {
		return err
	}
	return tx.AppendEntry(&types.LedgerEntry{From: from, To: to, Amount: amount, Reason: reason, Ref: ref})
}
