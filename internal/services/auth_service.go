package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gamestore/internal/models"
	"gamestore/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Identity is what a validated token says about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsOwner reports whether the bearer holds the admin role.
func (i Identity) IsOwner() bool { return i.Role == models.RoleOwner }

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	log        *slog.Logger
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(log *slog.Logger, userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		log:        log,
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
	}
}

// RegisterUser creates a User-role account with a bcrypt-hashed password.
func (s *AuthService) RegisterUser(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, repositories.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Password: string(hashedPassword), Role: models.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Unknown email and wrong password look the same to the caller.
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, then reloads the bearer from the user
// store. A deleted account fails with ErrInvalidToken, and the role comes from the store so
// role changes apply to tokens already issued.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: account %s no longer exists", ErrInvalidToken, userID)
		}
		return nil, fmt.Errorf("failed to load token subject: %w", err)
	}
	return &Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// SeedOwner makes sure an Owner account exists for email. Running it again changes nothing.
func (s *AuthService) SeedOwner(ctx context.Context, email, password string) error {
	const op = "services.AuthService.SeedOwner"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	owner, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrRecordNotFound):
		owner, err = s.RegisterUser(ctx, email, password)
		if err != nil {
			return fmt.Errorf("%s: failed to create owner user: %w", op, err)
		}
		logger.Info("owner account created")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	if owner.Role != models.RoleOwner {
		if err := s.userRepo.UpdateRole(ctx, owner.ID, models.RoleOwner); err != nil {
			return fmt.Errorf("%s: failed to grant owner role: %w", op, err)
		}
		logger.Info("owner role granted")
	}
	return nil
}
