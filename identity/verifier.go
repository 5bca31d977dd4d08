package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier resolves a bearer credential to a stable subject id.
// Token issuance lives elsewhere; this side only validates.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type RedisVerifier struct {
	rdb *redis.Client
}

func NewRedisVerifier(rdb *redis.Client) *RedisVerifier {
	return &RedisVerifier{rdb: rdb}
}

func tokenKey(token string) string { return fmt.Sprintf("auth:token:%s", token) }

func (v *RedisVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	userID, err := v.rdb.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
