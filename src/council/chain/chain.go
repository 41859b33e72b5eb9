// Package chain reads custody balances from a substrate node so the
// treasury journal can be reconciled against the account that actually
// holds the funds.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/identity"
)

var ErrShortAccountInfo = errors.New("account info too short")

type Client struct {
	api *gsrpc.SubstrateAPI
}

func Dial(url string) (*Client, error) {
	api, err := gsrpc.NewSubstrateAPI(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Client{api: api}, nil
}

// SystemAccountKey is the storage key of System.Account for pub.
func SystemAccountKey(pub []byte) []byte {
	key := append(addr.Twox128([]byte("System")), addr.Twox128([]byte("Account"))...)
	key = append(key, addr.Blake2_128(pub)...)
	return append(key, pub...)
}

// DecodeFree extracts the free balance from a SCALE encoded AccountInfo:
// four u32 counters followed by the u128 free balance.
func DecodeFree(raw []byte) (*big.Int, error) {
	const off = 16
	if len(raw) < off+16 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortAccountInfo, len(raw))
	}
	le := raw[off : off+16]
	be := make([]byte, 16)
	for i := range le {
		be[15-i] = le[i]
	}
	return new(big.Int).SetBytes(be), nil
}

// FreeBalance returns the free balance of account (SS58 or 0x-hex) at the
// best block. Accounts without storage hold zero.
func (c *Client) FreeBalance(ctx context.Context, account string) (*big.Int, error) {
	pub, err := identity.PublicKey(account)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw types.StorageDataRaw
	ok, err := c.api.RPC.State.GetStorageLatest(types.NewStorageKey(SystemAccountKey(pub)), &raw)
	if err != nil {
		return nil, fmt.Errorf("get storage %s: %w", codec.HexEncodeToString(SystemAccountKey(pub)), err)
	}
	if !ok {
		return new(big.Int), nil
	}
	return DecodeFree(raw)
}

// BalanceSource reads the free balance of an on-chain account.
type BalanceSource interface {
	FreeBalance(ctx context.Context, account string) (*big.Int, error)
}

// LedgerSource reads the journal balance of a DAO treasury.
type LedgerSource interface {
	TreasuryBalance(ctx context.Context, dao string) (uint64, error)
}

type Report struct {
	Dao     string   `json:"dao"`
	Account string   `json:"account"`
	Ledger  uint64   `json:"ledger"`
	OnChain *big.Int `json:"on_chain"`
	// Drift is on-chain minus ledger; negative means the journal promises
	// more than the account holds.
	Drift *big.Int `json:"drift"`
}

func (r Report) Balanced() bool { return r.Drift.Sign() == 0 }

// Reconcile compares the treasury journal of dao with the on-chain account
// that custodies it.
func Reconcile(ctx context.Context, ledger LedgerSource, src BalanceSource, dao, account string) (Report, error) {
	booked, err := ledger.TreasuryBalance(ctx, dao)
	if err != nil {
		return Report{}, err
	}
	held, err := src.FreeBalance(ctx, account)
	if err != nil {
		return Report{}, err
	}
	drift := new(big.Int).Sub(held, new(big.Int).SetUint64(booked))
	return Report{Dao: dao, Account: account, Ledger: booked, OnChain: held, Drift: drift}, nil
}
