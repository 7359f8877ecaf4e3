package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"filenet-backend/models"
	"filenet-backend/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles registration, login and session tokens.
type AuthService struct {
	userRepo repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// AuthServiceOption is a functional option for AuthService
type AuthServiceOption func(*AuthService)

// AuthWithUserRepository sets the user repository
func AuthWithUserRepository(repo repository.UserRepository) AuthServiceOption {
	return func(s *AuthService) {
		s.userRepo = repo
	}
}

// AuthWithSecret sets the token signing secret
func AuthWithSecret(secret []byte) AuthServiceOption {
	return func(s *AuthService) {
		s.secret = secret
	}
}

// AuthWithTokenTTL sets the session token lifetime
func AuthWithTokenTTL(ttl time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.tokenTTL = ttl
	}
}

// NewAuthService creates a new auth service
func NewAuthService(opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		tokenTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = []byte(os.Getenv("SESSION_SECRET"))
	}
	if ttl := os.Getenv("SESSION_TTL_MINUTES"); ttl != "" {
		if minutes, err := strconv.Atoi(ttl); err == nil && minutes > 0 {
			s.tokenTTL = time.Duration(minutes) * time.Minute
		}
	}
	return s
}

// RegisterRequest represents a registration submission.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Register creates a new active, non-admin account. Username and email
// must both be unused.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username taken", ErrUserExists)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email taken", ErrUserExists)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks credentials against username or email, records the login
// time and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, login)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, ErrUserInactive
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return "", nil, fmt.Errorf("failed to record login: %w", err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the user ID it carries.
func (s *AuthService) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// CurrentUser loads the account a parsed token refers to. Deactivated
// accounts are treated as logged out.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// UpdateProfileRequest carries a profile edit. Password change requires
// the current password.
type UpdateProfileRequest struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile applies an email and/or password change for the user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
			return nil, fmt.Errorf("%w: email taken", ErrUserExists)
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		user.Email = req.Email
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, fmt.Errorf("%w: current password is required to set a new password", ErrInvalidInput)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ToggleAdmin flips the admin flag on the target account. Accounts can
// never change their own flag.
func (s *AuthService) ToggleAdmin(ctx context.Context, actorID uuid.UUID, targetID uuid.UUID) (*models.User, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot change your own admin status", ErrInvalidInput)
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.IsAdmin = !user.IsAdmin
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ListUsers returns all accounts; admin-only at the handler layer.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.userRepo.List(ctx)
}
