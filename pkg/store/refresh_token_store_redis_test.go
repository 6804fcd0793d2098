package store

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisRefreshTokenStoreRotateAndDelete(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(redis.Addr(), "")

	token, err := s.NewToken(1, time.Minute)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	userID, nextToken, err := s.RotateToken(token, time.Minute)
	if err != nil {
		t.Fatalf("rotate token: %v", err)
	}
	if userID != 1 {
		t.Fatalf("unexpected user id: %d", userID)
	}
	if nextToken == "" || nextToken == token {
		t.Fatalf("expected rotated token")
	}

	if err := s.DeleteToken(nextToken); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if _, _, err := s.RotateToken(nextToken, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid token after delete, got: %v", err)
	}
}

func TestRedisRefreshTokenStoreDetectsReplay(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(redis.Addr(), "")

	token, err := s.NewToken(2, time.Minute)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	_, nextToken, err := s.RotateToken(token, time.Minute)
	if err != nil {
		t.Fatalf("first rotate: %v", err)
	}

	if _, _, err := s.RotateToken(token, time.Minute); !errors.Is(err, ErrRefreshTokenReplay) {
		t.Fatalf("expected replay detection, got: %v", err)
	}
	if _, _, err := s.RotateToken(nextToken, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected family revoked after replay, got: %v", err)
	}
}

func TestRedisRefreshTokenStoreRevokeUserRefreshTokens(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(redis.Addr(), "")

	tokenA, err := s.NewToken(3, time.Minute)
	if err != nil {
		t.Fatalf("new token a: %v", err)
	}
	tokenB, err := s.NewToken(3, time.Minute)
	if err != nil {
		t.Fatalf("new token b: %v", err)
	}
	other, err := s.NewToken(4, time.Minute)
	if err != nil {
		t.Fatalf("new token other: %v", err)
	}

	if err := s.RevokeUserRefreshTokens(3); err != nil {
		t.Fatalf("revoke user tokens: %v", err)
	}
	if _, _, err := s.RotateToken(tokenA, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected token a revoked, got: %v", err)
	}
	if _, _, err := s.RotateToken(tokenB, time.Minute); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected token b revoked, got: %v", err)
	}
	if _, _, err := s.RotateToken(other, time.Minute); err != nil {
		t.Fatalf("other user's token should survive: %v", err)
	}
}
