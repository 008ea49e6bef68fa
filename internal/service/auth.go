package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/hash"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/repo"
	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/tokens"
)

const (
	EventUserRegistered = "user_registered"
	EventUserLoggedIn   = "user_logged_in"

	publishTimeout = 5 * time.Second
)

type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	TouchLastLogin(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	DeactivateUser(ctx context.Context, id string) error
	SetRole(ctx context.Context, id, role string) error
}

type RefreshStore interface {
	StoreRefresh(ctx context.Context, userID, token string, ttl time.Duration) error
	ValidateRefresh(ctx context.Context, token string) (string, bool, error)
	RevokeRefresh(ctx context.Context, token string) error
	RotateRefresh(ctx context.Context, oldToken, userID, newToken string, ttl time.Duration) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Validator interface {
	Validate(i any) error
}

type Deps struct {
	Users     UserDirectory
	Tokens    RefreshStore
	Codec     *tokens.Codec
	Hasher    *hash.Hasher
	Validator Validator
	Events    EventPublisher
	UserTopic string
}

type AuthService struct {
	users     UserDirectory
	store     RefreshStore
	codec     *tokens.Codec
	hasher    *hash.Hasher
	validator Validator
	events    EventPublisher
	userTopic string
	dummyHash string
}

type RegisterInput struct {
	Name        string  `json:"name" validate:"required,min=2,max=100,personname"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8,maxbytes=72,hasupper,haslower,hasdigit"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func NewAuthService(d Deps) (*AuthService, error) {
	if d.Users == nil || d.Tokens == nil || d.Codec == nil || d.Hasher == nil {
		return nil, errors.New("service: users, tokens, codec and hasher are required")
	}
	// Compared against on unknown emails so both login failures cost one bcrypt run.
	dummy, err := d.Hasher.Hash("timing-equaliser-Passw0rd")
	if err != nil {
		return nil, fmt.Errorf("service: prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     d.Users,
		store:     d.Tokens,
		codec:     d.Codec,
		hasher:    d.Hasher,
		validator: d.Validator,
		events:    d.Events,
		userTopic: d.UserTopic,
		dummyHash: dummy,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth_register")

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.CompanyName != nil {
		trimmed := strings.TrimSpace(*in.CompanyName)
		in.CompanyName = &trimmed
	}
	if s.validator != nil {
		if err := s.validator.Validate(&in); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrNotFound) {
		l.Error("register_lookup_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	pwHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		CompanyName:  in.CompanyName,
		Role:         models.RoleUser,
		IsVerified:   false,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		l.Error("register_create_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":    EventUserRegistered,
		"user_id": user.ID,
		"email":   user.Email,
	})
	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth_login")

	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.hasher.Check(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		l.Error("login_lookup_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.StoreRefresh(ctx, user.ID, pair.RefreshToken, s.codec.RefreshTTL()); err != nil {
		l.Error("login_store_refresh_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		l.Warn("login_touch_failed", "user_id", user.ID, "error", err)
	}

	s.publish(ctx, user.ID, map[string]any{
		"type":    EventUserLoggedIn,
		"user_id": user.ID,
	})
	l.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a usable refresh token for a new pair. The presented token is
// revoked in the same transaction that stores its successor.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth_refresh")

	claims, err := s.codec.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	userID, ok, err := s.store.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		l.Error("refresh_validate_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok || userID != claims.Subject {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !user.IsActive {
		return nil, ErrInvalidOrExpiredToken
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.RotateRefresh(ctx, refreshToken, user.ID, pair.RefreshToken, s.codec.RefreshTTL()); err != nil {
		if errors.Is(err, repo.ErrTokenNotUsable) {
			return nil, ErrInvalidOrExpiredToken
		}
		l.Error("refresh_rotate_failed", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	l.Info("refresh_success", "user_id", user.ID)
	return pair, nil
}

// Logout never fails: unknown or already revoked tokens are accepted.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.RevokeRefresh(ctx, refreshToken); err != nil {
		logging.FromContext(ctx).With("svc", "auth_logout").Error("logout_revoke_failed", "error", err)
	}
	return nil
}

// Authorize resolves an access token to an active user.
func (s *AuthService) Authorize(ctx context.Context, bearer string) (*models.User, error) {
	if bearer == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.codec.DecodeAccess(bearer)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return user, nil
}

func (s *AuthService) RequireAdmin(user *models.User) error {
	if user == nil || !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// SetUserActive toggles the account flag; deactivation also revokes every refresh token atomically.
func (s *AuthService) SetUserActive(ctx context.Context, id string, active bool) (*models.User, error) {
	var err error
	if active {
		err = s.users.SetActive(ctx, id, true)
	} else {
		err = s.users.DeactivateUser(ctx, id)
	}
	if err != nil {
		return nil, mapDirectoryErr(err)
	}
	return s.reload(ctx, id)
}

func (s *AuthService) SetUserRole(ctx context.Context, id, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: role must be one of: user admin", ErrValidation)
	}
	if err := s.users.SetRole(ctx, id, role); err != nil {
		return nil, mapDirectoryErr(err)
	}
	return s.reload(ctx, id)
}

func (s *AuthService) reload(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, mapDirectoryErr(err)
	}
	return user, nil
}

func (s *AuthService) issuePair(user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(user.ID, user.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("service: issue access token: %w", err)
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service: issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// publish is best effort; a broker outage never fails an auth flow.
func (s *AuthService) publish(ctx context.Context, key string, event map[string]any) {
	if s.events == nil || s.userTopic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.PublishEvent(ctx, s.userTopic, key, event); err != nil {
		logging.FromContext(ctx).Warn("kafka_publish_failed", "topic", s.userTopic, "type", event["type"], "error", err)
	}
}

func mapDirectoryErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
