package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
	"github.com/vnkhanh/podstream-backend/utils"
)

const (
	minUsernameLen = 5
	maxUsernameLen = 30
	minPasswordLen = 6
)

type AuthService struct {
	src    StoreSource
	secret []byte
	log    *logrus.Entry
	now    func() time.Time
}

func NewAuthService(src StoreSource, jwtSecret string, log *logrus.Entry) *AuthService {
	return &AuthService{src: src, secret: []byte(jwtSecret), log: log, now: time.Now}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	User  *models.User
	Token string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, Validation("All fields are required")
	}
	if len(username) < minUsernameLen {
		return nil, Validation("Username must have five characters")
	}
	if len(username) > maxUsernameLen {
		return nil, Validation("Username cannot exceed 30 characters")
	}
	if len(in.Password) < minPasswordLen {
		return nil, Validation("Password must have 6 characters")
	}

	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	users := store.Users()
	if taken, err := identityTaken(ctx, users, email, username); err != nil {
		return nil, storeErr(err, "User not found")
	} else if taken {
		authEvents.WithLabelValues("register", "duplicate").Inc()
		return nil, Conflict("Username or Email already exist")
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, Internal("Internal server error", err)
	}
	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		Role:        models.RoleUser,
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			authEvents.WithLabelValues("register", "duplicate").Inc()
			return nil, Conflict("Username or Email already exist")
		}
		return nil, storeErr(err, "User not found")
	}
	authEvents.WithLabelValues("register", "ok").Inc()
	s.log.WithField("user_id", user.ID).Info("account created")
	return user, nil
}

func identityTaken(ctx context.Context, users repository.UserRepository, email, username string) (bool, error) {
	for _, find := range []func() (*models.User, error){
		func() (*models.User, error) { return users.FindByEmail(ctx, email) },
		func() (*models.User, error) { return users.FindByUsername(ctx, username) },
	} {
		_, err := find()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}
	}
	return false, nil
}

// Authenticate checks email and password and issues a session. Unknown
// accounts and wrong passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, Validation("All fields are required")
	}
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	user, err := store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			authEvents.WithLabelValues("login", "invalid").Inc()
			return nil, Validation("Invalid credentials")
		}
		return nil, storeErr(err, "User not found")
	}
	if !utils.CheckPassword(user.Password, password) {
		authEvents.WithLabelValues("login", "invalid").Inc()
		return nil, Validation("Invalid credentials")
	}
	if !user.IsActive {
		authEvents.WithLabelValues("login", "inactive").Inc()
		return nil, Forbidden("Account is deactivated")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := store.Users().Update(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}

	token, err := s.IssueSession(user)
	if err != nil {
		return nil, err
	}
	authEvents.WithLabelValues("login", "ok").Inc()
	return &Session{User: user, Token: token}, nil
}

func (s *AuthService) IssueSession(user *models.User) (string, error) {
	token, err := utils.GenerateToken(s.secret, user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", Internal("Internal server error", err)
	}
	return token, nil
}

func (s *AuthService) VerifySession(token string) (*utils.Claims, error) {
	claims, err := utils.VerifyToken(s.secret, token)
	if err != nil {
		return nil, Unauthenticated("Unauthorized")
	}
	return claims, nil
}

// CurrentAccount loads the account behind a verified session and rejects
// deleted or deactivated ones.
func (s *AuthService) CurrentAccount(ctx context.Context, userID string) (*models.User, error) {
	store, err := openStore(ctx, s.src)
	if err != nil {
		return nil, err
	}
	user, err := store.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, Unauthenticated("Unauthorized")
		}
		return nil, storeErr(err, "User not found")
	}
	if !user.IsActive {
		return nil, Forbidden("Account is deactivated")
	}
	return user, nil
}

// SeedAdmin makes sure an admin account exists for email. An existing account
// with that email is promoted and its password reset. It reports whether a new
// account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, username, password string) (bool, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" || password == "" {
		return false, Validation("Admin email and password are required")
	}
	if username == "" {
		username = "admin"
	}
	if len(password) < minPasswordLen {
		return false, Validation("Password must have 6 characters")
	}

	store, err := openStore(ctx, s.src)
	if err != nil {
		return false, err
	}
	users := store.Users()
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return false, Internal("Internal server error", err)
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = models.RoleAdmin
		existing.Password = hashed
		existing.IsActive = true
		existing.IsVerified = true
		if err := users.Update(ctx, existing); err != nil {
			return false, storeErr(err, "User not found")
		}
		s.log.WithField("user_id", existing.ID).Info("admin account updated")
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, storeErr(err, "User not found")
	}

	admin := &models.User{
		Username:    username,
		Email:       email,
		Password:    hashed,
		Role:        models.RoleAdmin,
		Preferences: models.DefaultPreferences(),
		IsActive:    true,
		IsVerified:  true,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, Conflict("Username " + username + " is already taken by another account")
		}
		return false, storeErr(err, "User not found")
	}
	s.log.WithField("user_id", admin.ID).Info("admin account created")
	return true, nil
}
