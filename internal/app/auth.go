package app

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"challengehub/pkg/auth"
	"challengehub/pkg/domain"
	"challengehub/pkg/store"
)

// Register creates a new account and issues a token pair. The first
// registered account becomes an admin.
func (a *App) Register(nickname, email, password string) (domain.User, string, string, error) {
	nickname = strings.TrimSpace(nickname)
	email = strings.TrimSpace(strings.ToLower(email))
	if nickname == "" {
		return domain.User{}, "", "", fmt.Errorf("nickname required: %w", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", "", fmt.Errorf("valid email required: %w", ErrValidation)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", "", fmt.Errorf("%v: %w", err, ErrValidation)
	}

	emailTaken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("check email: %w", err)
	}
	if emailTaken {
		return domain.User{}, "", "", ErrEmailAlreadyExists
	}
	nicknameTaken, err := a.store.HasUserNickname(nickname)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("check nickname: %w", err)
	}
	if nicknameTaken {
		return domain.User{}, "", "", ErrNicknameAlreadyExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("hash password: %w", err)
	}
	role := domain.RoleUser
	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("count users: %w", err)
	}
	if count == 0 {
		role = domain.RoleAdmin
	}

	user := domain.User{
		Nickname:     nickname,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Grade:        domain.GradeNormal,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}
	if err := a.store.SaveUser(&user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, "", "", ErrEmailAlreadyExists
		}
		return domain.User{}, "", "", fmt.Errorf("save user: %w", err)
	}
	return a.issueUserTokens(user)
}

// Login verifies credentials and issues a token pair.
func (a *App) Login(email, password string) (domain.User, string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", "", ErrInvalidCredentials
	}
	return a.issueUserTokens(user)
}

// Refresh rotates a refresh token and issues a fresh token pair.
// Reuse of an already-rotated token revokes the whole family.
func (a *App) Refresh(refreshToken string) (domain.User, string, string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.User{}, "", "", ErrRefreshTokenRequired
	}
	userID, newRefresh, err := a.refreshTokens.RotateToken(refreshToken, a.refreshTTL)
	if err != nil {
		if errors.Is(err, store.ErrInvalidRefreshToken) || errors.Is(err, store.ErrRefreshTokenReplay) {
			return domain.User{}, "", "", ErrInvalidRefreshToken
		}
		return domain.User{}, "", "", fmt.Errorf("rotate refresh token: %w", err)
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", "", ErrInvalidRefreshToken
	}
	accessToken, err := a.sessions.NewSession(store.SessionClaims{UserID: user.ID, Role: user.Role})
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("issue session: %w", err)
	}
	return user, accessToken, newRefresh, nil
}

// Logout revokes the session token and the refresh token family.
func (a *App) Logout(sessionToken, refreshToken string) error {
	if sessionToken != "" {
		if err := a.sessions.DeleteSession(sessionToken); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	if refreshToken != "" {
		if err := a.refreshTokens.DeleteToken(refreshToken); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}
	return nil
}

// UserFromToken resolves the authenticated user from a session token.
func (a *App) UserFromToken(token string) (domain.User, error) {
	claims, ok, err := a.sessions.GetSession(token)
	if err != nil || !ok {
		return domain.User{}, ErrUnauthorized
	}
	user, found, err := a.store.GetUserByID(claims.UserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.User{}, ErrUnauthorized
	}
	return user, nil
}

// GetUser returns a user profile by ID.
func (a *App) GetUser(id uint) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return user, nil
}

func (a *App) issueUserTokens(user domain.User) (domain.User, string, string, error) {
	accessToken, err := a.sessions.NewSession(store.SessionClaims{UserID: user.ID, Role: user.Role})
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("issue session: %w", err)
	}
	refreshToken, err := a.refreshTokens.NewToken(user.ID, a.refreshTTL)
	if err != nil {
		return domain.User{}, "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return user, accessToken, refreshToken, nil
}
