package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"vidtube/internal/models"
)

// UserStore is the slice of the credential store the token service needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRefreshTokenHash(ctx context.Context, id, tokenHash string) error
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	ErrInvalidRefreshToken = fmt.Errorf("invalid refresh token")
	ErrRefreshTokenUsed    = fmt.Errorf("refresh token is expired or used")
)

// TokenService issues access/refresh token pairs and rotates refresh tokens.
// Exactly one refresh token is valid per user at a time: issuing a new pair
// overwrites the stored token, which invalidates the previous one.
type TokenService struct {
	jwt   *JWTService
	users UserStore
}

func NewTokenService(jwt *JWTService, users UserStore) *TokenService {
	return &TokenService{jwt: jwt, users: users}
}

// IssueTokenPair mints a new access/refresh pair for the user and persists
// the refresh token digest onto the user record in a single write.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user for token issuance: %w", err)
	}

	accessToken, err := s.jwt.SignAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwt.SignRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, HashRefreshToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RotateRefreshToken exchanges a presented refresh token for a fresh pair.
// A token that has been superseded by a later issuance is rejected even when
// its signature and expiry still verify, so reuse of a rotated-out token
// fails and theft becomes detectable.
func (s *TokenService) RotateRefreshToken(ctx context.Context, presented string) (*TokenPair, error) {
	if strings.TrimSpace(presented) == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.jwt.VerifyRefreshToken(presented)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRefreshToken, err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidRefreshToken)
	}

	if user.RefreshTokenHash == nil {
		return nil, ErrRefreshTokenUsed
	}

	presentedHash := HashRefreshToken(presented)
	if subtle.ConstantTimeCompare([]byte(presentedHash), []byte(*user.RefreshTokenHash)) != 1 {
		return nil, ErrRefreshTokenUsed
	}

	return s.IssueTokenPair(ctx, user.ID)
}
