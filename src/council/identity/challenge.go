package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	noncePrefix = "council:nonce:"
	nonceTTL    = 5 * time.Minute

	// Confirmed marks a nonce settled on-chain through system.remark.
	Confirmed = "CONFIRMED"
)

var ErrNoChallenge = errors.New("challenge expired")

// NonceStore keeps one outstanding login challenge per principal.
type NonceStore interface {
	Set(ctx context.Context, addr, nonce string) error
	GetAndDel(ctx context.Context, addr string) (string, error)
}

type RedisNonces struct {
	rdb *redis.Client
}

func NewRedisNonces(rdb *redis.Client) RedisNonces { return RedisNonces{rdb: rdb} }

func (r RedisNonces) Set(ctx context.Context, addr, nonce string) error {
	return r.rdb.Set(ctx, noncePrefix+addr, nonce, nonceTTL).Err()
}

func (r RedisNonces) GetAndDel(ctx context.Context, addr string) (string, error) {
	v, err := r.rdb.GetDel(ctx, noncePrefix+addr).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoChallenge
	}
	return v, err
}

// Confirm marks the pending challenge of addr as settled, keeping its TTL
// window. Unknown principals are ignored.
func (r RedisNonces) Confirm(ctx context.Context, addr, nonce string) error {
	cur, err := r.rdb.Get(ctx, noncePrefix+addr).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur != nonce {
		return nil
	}
	return r.rdb.Set(ctx, noncePrefix+addr, Confirmed, nonceTTL).Err()
}

// Authenticator runs the challenge/response login.
type Authenticator struct {
	nonces   NonceStore
	verifier Sr25519
	secret   []byte
	ttl      time.Duration
}

func NewAuthenticator(nonces NonceStore, verifier Sr25519, secret []byte, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{nonces: nonces, verifier: verifier, secret: secret, ttl: ttl}
}

// Challenge issues a fresh nonce for addr and returns it with the
// canonical principal.
func (a *Authenticator) Challenge(ctx context.Context, addr string) (principal, nonce string, err error) {
	principal, err = Canonical(addr)
	if err != nil {
		return "", "", err
	}
	nonce = uuid.NewString()
	if err := a.nonces.Set(ctx, principal, nonce); err != nil {
		return "", "", err
	}
	return principal, nonce, nil
}

// Verify consumes the challenge and issues a session token. Airgap logins
// pass an empty signature and rely on the remark watcher's confirmation.
func (a *Authenticator) Verify(ctx context.Context, addr, method, signature string) (string, error) {
	principal, err := Canonical(addr)
	if err != nil {
		return "", err
	}
	nonce, err := a.nonces.GetAndDel(ctx, principal)
	if err != nil {
		return "", ErrNoChallenge
	}
	switch method {
	case "airgap":
		if nonce != Confirmed {
			return "", ErrBadSignature
		}
	default:
		if nonce == Confirmed {
			return "", ErrBadSignature
		}
		if err := a.verifier.Verify(principal, signature, []byte(nonce)); err != nil {
			return "", err
		}
	}
	return IssueJWT(principal, a.secret, a.ttl)
}

func (a *Authenticator) Secret() []byte { return a.secret }
