package identity

import (
	"context"
	"strings"

	"github.com/itering/substrate-api-rpc/client"
	"github.com/itering/substrate-api-rpc/expand"
	"go.uber.org/zap"
)

// StartRemarkWatcher follows new heads and confirms airgap challenges whose
// nonce was posted on-chain as a system.remark by the challenged account.
func StartRemarkWatcher(ctx context.Context, rpcURL string, nonces RedisNonces, log *zap.Logger) {
	api, err := client.ConnectSub(rpcURL)
	if err != nil {
		log.Warn("remark watcher connect", zap.String("rpc", rpcURL), zap.Error(err))
		return
	}

	sub, err := api.RPC.Chain.SubscribeNewHeads()
	if err != nil {
		log.Warn("remark watcher head sub", zap.Error(err))
		return
	}

	go func() {
		for {
			select {
			case head := <-sub.Chan():
				block, err := api.RPC.Chain.GetBlock(head.Hash())
				if err != nil {
					continue
				}

				for _, ext := range block.Block.Extrinsics {
					remarkBytes, err := expand.DecodeRemark(ext.Method.Args)
					if err != nil || len(remarkBytes) == 0 {
						continue
					}
					nonce := strings.TrimSpace(string(remarkBytes))
					if len(nonce) < 8 {
						continue
					}

					addr := strings.ToLower(ext.Signature.Signer.AsID.ToHexString())
					if err := nonces.Confirm(ctx, addr, nonce); err != nil {
						log.Warn("confirm remark", zap.String("addr", addr), zap.Error(err))
					}
				}

			case <-ctx.Done():
				sub.Unsubscribe()
				return
			}
		}
	}()
}
