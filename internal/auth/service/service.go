package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tripforms_backend/internal/auth/password"
	"tripforms_backend/internal/auth/repository"
	"tripforms_backend/internal/events"
	"tripforms_backend/internal/policy"
	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
	"tripforms_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountDisabled = errors.New("account disabled")

// Service implements sign-in, profile reads, password changes and
// client account provisioning.
type Service struct {
	repo repository.Store
	cfg  config.AuthServiceConfig
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.Store, cfg config.AuthServiceConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log}
}

// SignInResult carries the issued token and the account it belongs to.
type SignInResult struct {
	AccessToken        string
	User               repository.User
	MustChangePassword bool
}

// SignIn verifies credentials and issues an access token. Disabled
// accounts are rejected before the password check leaks timing.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (SignInResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown email")
		return SignInResult{}, ErrInvalidCredentials
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return SignInResult{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "account disabled")
		return SignInResult{}, ErrAccountDisabled
	}

	accessToken, err := s.signJWT(user.ID, user.Role)
	if err != nil {
		return SignInResult{}, err
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to record last login", "userId", user.ID, "error", err)
	}

	s.log.AuthEvent("sign_in", email, true, "")
	s.bus.Publish(ctx, events.UserSignedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
	})

	return SignInResult{
		AccessToken:        accessToken,
		User:               user,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// Me returns the account for the authenticated user.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return user, err
}

// ChangePassword verifies the current password and sets a new one,
// clearing the must-change flag.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return apperr.NotFound("user not found")
	}

	if err := password.Compare(user.PasswordHash, current); err != nil {
		return apperr.BadRequest("current password is incorrect")
	}

	hash, err := password.Hash(next)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash, false); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.PasswordChanged{
		BaseEvent: events.NewBaseEvent(),
		UserID:    userID,
	})
	return nil
}

// ProvisionResult reports the account backing a dispatch, plus the
// temporary password when the account was created by this call.
type ProvisionResult struct {
	User         repository.User
	TempPassword string
	Created      bool
}

// ProvisionClient returns the CLIENT account for the given email,
// creating one with a temporary password if none exists. The temp
// password is only populated on creation; it is never recoverable
// afterwards.
func (s *Service) ProvisionClient(ctx context.Context, email, fullName string) (ProvisionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return ProvisionResult{User: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return ProvisionResult{}, err
	}

	tempPassword, err := password.GenerateTemp()
	if err != nil {
		return ProvisionResult{}, err
	}
	hash, err := password.Hash(tempPassword)
	if err != nil {
		return ProvisionResult{}, err
	}

	user, err := s.repo.CreateUser(ctx, email, hash, fullName, policy.RoleClient, true)
	if errors.Is(err, repository.ErrEmailTaken) {
		// Lost a race with a concurrent dispatch; reuse the winner.
		user, err = s.repo.GetUserByEmail(ctx, email)
		if err != nil {
			return ProvisionResult{}, err
		}
		return ProvisionResult{User: user}, nil
	}
	if err != nil {
		return ProvisionResult{}, err
	}

	return ProvisionResult{User: user, TempPassword: tempPassword, Created: true}, nil
}

// ResetPassword generates a new temporary password for the account and
// returns it for delivery. The must-change flag is set.
func (s *Service) ResetPassword(ctx context.Context, userID uuid.UUID) (string, error) {
	tempPassword, err := password.GenerateTemp()
	if err != nil {
		return "", err
	}
	hash, err := password.Hash(tempPassword)
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("user not found")
		}
		return "", err
	}
	return tempPassword, nil
}

// EnsureMaster creates the bootstrap MASTER account if it does not
// exist yet. A blank email or password disables bootstrapping.
func (s *Service) EnsureMaster(ctx context.Context, email, plainPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plainPassword == "" {
		return nil
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return err
	}

	if _, err := s.repo.CreateUser(ctx, email, hash, "Master", policy.RoleMaster, true); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil
		}
		return err
	}
	s.log.Info("bootstrap master account created", "email", email)
	return nil
}

func (s *Service) signJWT(userID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}
	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
