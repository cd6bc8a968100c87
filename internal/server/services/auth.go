package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/mailer"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService drives the account-security flow: registration, email
// verification, login with lockout and session tokens.
type AuthService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	hasher               auth.PasswordHasher
	lockout              auth.LockoutPolicy
	tokens               *auth.TokenIssuer
	mailer               mailer.Mailer
	clock                clock.Clock
	logger               logging.Logger
	appURL               string
	verificationValidity time.Duration
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	hasher auth.PasswordHasher, ml mailer.Mailer, clk clock.Clock, l logging.Logger) *AuthService {
	return &AuthService{
		db:                   db,
		repomanager:          m,
		hasher:               hasher,
		lockout:              auth.NewLockoutPolicy(cfg.LockoutThreshold, cfg.LockoutDuration),
		tokens:               auth.NewTokenIssuer(cfg.SecretKey, cfg.SessionTokenValidity, clk),
		mailer:               ml,
		clock:                clk,
		logger:               l.With("module", "auth"),
		appURL:               cfg.AppURL,
		verificationValidity: cfg.VerificationTokenValidity,
	}
}

func (s *AuthService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func validatePassword(password string) error {
	if len(password) > maxPasswordBytes {
		return common.NewValidationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// Register creates an unverified account and sends the verification email.
// A failed delivery is logged and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, s.internal(ctx, "duplicate check failed", err)
	}
	if exists {
		return nil, common.ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internal(ctx, "password hashing failed", err)
	}

	token, err := auth.NewVerificationToken()
	if err != nil {
		return nil, s.internal(ctx, "verification token generation failed", err)
	}
	expires := s.clock.Now().Add(s.verificationValidity)

	user, err := repo.Create(ctx, &models.User{
		Username:                 in.Username,
		Email:                    in.Email,
		PasswordHash:             hash,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
		Role:                     models.RoleStaff,
	})
	if errors.Is(err, common.ErrDuplicateAccount) {
		return nil, err
	}
	if err != nil {
		return nil, s.internal(ctx, "user insert failed", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	s.sendVerification(ctx, user, token)

	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User, token string) {
	msg, err := mailer.VerificationEmail(user.Email, user.Username, s.appURL, token, humanDuration(s.verificationValidity))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.logger.Warn(ctx, "verification email not delivered, share the link manually",
			"user_id", user.ID, "email", user.Email,
			"link", mailer.VerificationLink(s.appURL, token), "error", err)
		return
	}
	s.logger.Info(ctx, "verification email sent", "user_id", user.ID)
}

// VerifyEmail consumes a verification token. It reports alreadyVerified when
// the account was verified before.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (alreadyVerified bool, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, common.ErrTokenNotFound
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if errors.Is(err, common.ErrorNotFound) {
		return false, common.ErrTokenNotFound
	}
	if err != nil {
		return false, s.internal(ctx, "verification token lookup failed", err)
	}

	if auth.VerificationExpired(user.VerificationTokenExpires, s.clock.Now()) {
		return false, common.ErrTokenExpired
	}
	if user.EmailVerified {
		return true, nil
	}

	if err := repo.MarkEmailVerified(ctx, user.ID); err != nil {
		return false, s.internal(ctx, "mark verified failed", err)
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return false, nil
}

// Login checks the credentials of identifier (username or email) and issues
// a session token. Locked accounts are rejected before the password is
// checked; expired locks are cleared first.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)

	verr := &common.ValidationError{}
	if identifier == "" {
		verr.Add("identifier", "is required")
	}
	if password == "" {
		verr.Add("password", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByIdentifier(ctx, identifier)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.internal(ctx, "user lookup failed", err)
	}

	now := s.clock.Now()
	state := user.LockoutState()

	if err := s.lockout.Check(state, now); err != nil {
		s.logger.Warn(ctx, "login attempt on locked account", "user_id", user.ID)
		return nil, err
	}

	if s.lockout.Expired(state, now) {
		if err := repo.UpdateLockout(ctx, user.ID, 0, nil); err != nil {
			return nil, s.internal(ctx, "lock reset failed", err)
		}
		state = models.LockoutState{}
	}

	if !user.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, "password verification failed", err)
	}

	if !ok {
		next, loginErr := s.lockout.RegisterFailure(state, now)
		if err := repo.UpdateLockout(ctx, user.ID, next.FailedAttempts, next.LockedUntil); err != nil {
			return nil, s.internal(ctx, "failure counter update failed", err)
		}
		if next.LockedUntil != nil {
			s.logger.Warn(ctx, "account locked", "user_id", user.ID, "until", *next.LockedUntil)
		}
		return nil, loginErr
	}

	if state.FailedAttempts != 0 || state.LockedUntil != nil {
		if err := repo.UpdateLockout(ctx, user.ID, 0, nil); err != nil {
			return nil, s.internal(ctx, "failure counter reset failed", err)
		}
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	token, expires, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, s.internal(ctx, "token issue failed", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// ResendVerification issues a fresh verification token for email and mails
// it. Unknown addresses succeed silently; verified accounts yield
// common.ErrAlreadyVerified.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	in := struct {
		Email string `json:"email" validate:"required,email"`
	}{email}
	if err := validateStruct(&in); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return s.internal(ctx, "user lookup failed", err)
	}
	if user.EmailVerified {
		return common.ErrAlreadyVerified
	}

	token, err := auth.NewVerificationToken()
	if err != nil {
		return s.internal(ctx, "verification token generation failed", err)
	}
	if err := repo.SetVerificationToken(ctx, user.ID, token, s.clock.Now().Add(s.verificationValidity)); err != nil {
		return s.internal(ctx, "verification token update failed", err)
	}

	s.sendVerification(ctx, user, token)
	return nil
}

// Authenticate parses a session token.
func (s *AuthService) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Parse(token)
}

// Me returns the account of userID.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.internal(ctx, "user lookup failed", err)
	}
	return user, nil
}

// VerificationLink returns the pending verification link of email. It is
// the recovery path when the verification email never arrived.
func (s *AuthService) VerificationLink(ctx context.Context, email string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	if err != nil {
		return "", s.internal(ctx, "user lookup failed", err)
	}

	if user.EmailVerified {
		return "", common.ErrAlreadyVerified
	}
	if user.VerificationToken == nil {
		return "", common.ErrTokenNotFound
	}
	if auth.VerificationExpired(user.VerificationTokenExpires, s.clock.Now()) {
		return "", common.ErrTokenExpired
	}

	return mailer.VerificationLink(s.appURL, *user.VerificationToken), nil
}

// humanDuration renders d as "24 hours" or "30 minutes".
func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	if m := int(d / time.Minute); m != 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "1 minute"
}
