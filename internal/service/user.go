package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/auth"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

// UserService handles accounts: registration, login, profile and the
// password-reset flow.
type UserService struct {
	users  *repository.UserRepository
	tokens *auth.TokenManager
	resets *auth.ResetTokenStore
	logger zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	users *repository.UserRepository,
	tokens *auth.TokenManager,
	resets *auth.ResetTokenStore,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		resets: resets,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// RegisterInput is the command to create an account.
type RegisterInput struct {
	Name       string
	Surname    string
	Email      string
	Password   string
	Role       model.Role // ignored unless the caller is an admin
	Department *uint
}

// Register creates an account. Self-registration always yields the USER
// role; admins may set any role.
func (s *UserService) Register(ctx context.Context, input RegisterInput, byAdmin bool) (*model.User, error) {
	if len(input.Password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}
	role := model.RoleUser
	if byAdmin && input.Role != "" {
		if !input.Role.Valid() {
			return nil, apperror.Validation("invalid role")
		}
		role = input.Role
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         input.Name,
		Surname:      input.Surname,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		DepartmentID: input.Department,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*auth.TokenPair, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return nil, nil, apperror.Unauthenticated("invalid credentials")
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, nil, err
	}
	pair, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a refresh token into a fresh pair.
func (s *UserService) Refresh(_ context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.tokens.Refresh(refreshToken)
}

// Get retrieves a user.
func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns users, newest first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	return s.users.List(ctx, limit, offset)
}

// ChangeRole sets a user's role. Admin-gated at the API layer.
func (s *UserService) ChangeRole(ctx context.Context, id uint, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.Validation("invalid role")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Uint("user_id", id).Str("role", string(role)).Msg("role changed")
	return user, nil
}

// RequestPasswordReset issues an opaque single-use token for the account.
// An unknown email yields no error and no token, to avoid enumeration.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return "", nil
		}
		return "", err
	}
	return s.resets.Issue(user.ID), nil
}

// ConfirmPasswordReset consumes a reset token and replaces the password.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperror.Validation("password must be at least 8 characters")
	}
	userID, ok := s.resets.Consume(token)
	if !ok {
		return apperror.Unauthenticated("invalid or expired reset token")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info().Uint("user_id", userID).Msg("password reset")
	return nil
}
