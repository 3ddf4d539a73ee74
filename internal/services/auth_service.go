package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/repositories"
	"closet/internal/session"

	"golang.org/x/crypto/bcrypt"
)

// Identity is the user and session a request is authenticated as.
type Identity struct {
	UserID    uint
	SessionID string
}

// AuthService handles registration, login and session lookup.
type AuthService struct {
	userRepo repositories.UserRepository
	sessions session.Store
	tokens   *session.TokenCodec
	ttl      time.Duration
	events   EventPublisher
}

// NewAuthService creates a new AuthService. Sessions live for ttl; events
// may be nil.
func NewAuthService(userRepo repositories.UserRepository, sessions session.Store, tokens *session.TokenCodec, ttl time.Duration, events EventPublisher) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		tokens:   tokens,
		ttl:      ttl,
		events:   events,
	}
}

// RegisterUser hashes the password and saves a new user. No session is
// created.
func (s *AuthService) RegisterUser(username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, apperrors.Validation("username, email and password are required")
	}

	if err := s.ensureFree("username", username, s.userRepo.GetByUsername); err != nil {
		return nil, err
	}
	if err := s.ensureFree("email", email, s.userRepo.GetByEmail); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperrors.Validation("password is too long")
		}
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &models.User{Username: username, Email: email, Password: string(hashedPassword)}
	if err := s.userRepo.Create(user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("username or email already exists")
		}
		return nil, apperrors.Internal("failed to register user", err)
	}

	log.Printf("Registered user %d (%s)", user.ID, user.Username)
	publish(s.events, EventUserRegistered, map[string]interface{}{"user_id": user.ID, "username": user.Username})
	return user, nil
}

func (s *AuthService) ensureFree(field, value string, lookup func(string) (*models.User, error)) error {
	_, err := lookup(value)
	switch {
	case err == nil:
		return apperrors.Conflict(fmt.Sprintf("%s already exists", field))
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	default:
		return apperrors.Internal(fmt.Sprintf("failed to check %s", field), err)
	}
}

// LoginUser verifies the credentials, opens a session and returns the token
// that identifies it. Unknown users and wrong passwords fail the same way.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, apperrors.Authentication("invalid credentials")
		}
		return "", nil, apperrors.Internal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperrors.Authentication("invalid credentials")
	}

	sid, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		return "", nil, apperrors.Internal("failed to create session", err)
	}
	token, err := s.tokens.Issue(sid, user.ID)
	if err != nil {
		_ = s.sessions.Delete(ctx, sid)
		return "", nil, apperrors.Internal("failed to issue session token", err)
	}
	return token, user, nil
}

// Authenticate resolves a token to a live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperrors.Authentication("authentication required")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Authentication("invalid or expired session")
	}

	userID, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.Authentication("invalid or expired session")
		}
		return nil, apperrors.Internal("failed to load session", err)
	}
	if userID != claims.UserID {
		return nil, apperrors.Authentication("invalid or expired session")
	}
	return &Identity{UserID: userID, SessionID: claims.SessionID}, nil
}

// Logout ends the session.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return apperrors.Internal("failed to end session", err)
	}
	return nil
}

// CurrentUser returns the user bound to a session.
func (s *AuthService) CurrentUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Authentication("session user no longer exists")
		}
		return nil, apperrors.Internal("failed to load user", err)
	}
	return user, nil
}
