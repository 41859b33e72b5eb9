package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
	"go.uber.org/zap"
)

var ErrBadSignature = errors.New("signature verification failed")

// signing context used by substrate wallets
var substrateCtx = []byte("substrate")

// Sr25519 verifies wallet signatures over arbitrary messages.
type Sr25519 struct {
	log *zap.Logger
}

func NewSr25519(log *zap.Logger) Sr25519 {
	if log == nil {
		log = zap.NewNop()
	}
	return Sr25519{log: log}
}

// Verify checks sigHex against message for addr. Browser extensions sign
// the payload wrapped in <Bytes>..</Bytes>; both forms are accepted.
func (v Sr25519) Verify(addr, sigHex string, message []byte) error {
	pubKeyBytes, err := PublicKey(addr)
	if err != nil {
		v.log.Debug("decode address", zap.String("addr", addr), zap.Error(err))
		return err
	}

	sigBytes, err := hex.DecodeString(strip0x(sigHex))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if len(sigBytes) != 64 {
		return fmt.Errorf("%w: invalid signature length %d", ErrBadSignature, len(sigBytes))
	}

	var pkRaw [32]byte
	copy(pkRaw[:], pubKeyBytes)
	var sigRaw [64]byte
	copy(sigRaw[:], sigBytes)

	var pk schnorrkel.PublicKey
	if err = pk.Decode(pkRaw); err != nil {
		return fmt.Errorf("%w: %v", ErrBadAddress, err)
	}

	var sig schnorrkel.Signature
	if err = sig.Decode(sigRaw); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	for _, msg := range [][]byte{message, WrapBytes(message)} {
		ok, err := pk.Verify(&sig, schnorrkel.NewSigningContext(substrateCtx, msg))
		if err == nil && ok {
			return nil
		}
	}
	v.log.Debug("signature rejected", zap.String("addr", addr))
	return ErrBadSignature
}

// WrapBytes applies the polkadot.js signRaw envelope.
func WrapBytes(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+15)
	out = append(out, "<Bytes>"...)
	out = append(out, msg...)
	return append(out, "</Bytes>"...)
}
