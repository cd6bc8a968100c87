package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
)

// CreateUserInput is the payload of an administrator-created account.
type CreateUserInput struct {
	Username string      `json:"username" validate:"required,min=3,max=50"`
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=admin staff"`
}

// UserAdminService holds the account operations reserved to administrators
// and the admin CLI.
type UserAdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	logger      logging.Logger
}

func NewUserAdminService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, l logging.Logger) *UserAdminService {
	return &UserAdminService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		logger:      l.With("module", "admin"),
	}
}

func (s *UserAdminService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

// passThrough keeps not-found errors and turns anything else into an
// internal error.
func (s *UserAdminService) passThrough(ctx context.Context, msg string, err error) error {
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return s.internal(ctx, msg, err)
}

// RequireAdmin loads userID and checks its role. A missing user is
// unauthorized, a non-admin is forbidden.
func (s *UserAdminService) RequireAdmin(ctx context.Context, userID int64) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorUnauthorized
	}
	if err != nil {
		return s.internal(ctx, "user lookup failed", err)
	}
	if user.Role != models.RoleAdmin {
		return common.ErrForbidden
	}
	return nil
}

func (s *UserAdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "user list failed", err)
	}
	return list, nil
}

// FindUser resolves a username or email.
func (s *UserAdminService) FindUser(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, s.passThrough(ctx, "user lookup failed", err)
	}
	return user, nil
}

// DeleteUser removes targetID. Administrators cannot delete themselves.
func (s *UserAdminService) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return common.ErrSelfModification
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, targetID); err != nil {
		return s.passThrough(ctx, "user delete failed", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", targetID, "by", actorID)
	return nil
}

// UpdateRole changes the role of targetID. Administrators cannot change
// their own role. actorID 0 means the CLI.
func (s *UserAdminService) UpdateRole(ctx context.Context, actorID, targetID int64, role models.Role) error {
	if !role.Valid() {
		return common.NewValidationError("role", "must be one of: admin staff")
	}
	if actorID == targetID {
		return common.ErrSelfModification
	}
	if err := s.repomanager.Users(s.db).UpdateRole(ctx, targetID, role); err != nil {
		return s.passThrough(ctx, "role update failed", err)
	}
	s.logger.Info(ctx, "role updated", "user_id", targetID, "role", role, "by", actorID)
	return nil
}

// Unlock clears the failure counter and lock of userID.
func (s *UserAdminService) Unlock(ctx context.Context, userID int64) error {
	if err := s.repomanager.Users(s.db).UpdateLockout(ctx, userID, 0, nil); err != nil {
		return s.passThrough(ctx, "unlock failed", err)
	}
	s.logger.Info(ctx, "user unlocked", "user_id", userID)
	return nil
}

// ResetPassword sets a new password for identifier and clears its lock.
func (s *UserAdminService) ResetPassword(ctx context.Context, identifier, password string) error {
	in := struct {
		Password string `json:"password" validate:"required,min=6"`
	}{password}
	if err := validateStruct(&in); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	user, err := s.FindUser(ctx, identifier)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return s.internal(ctx, "password hashing failed", err)
	}
	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, user.ID, hash); err != nil {
		return s.passThrough(ctx, "password update failed", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// ManualVerify marks the account of email verified and clears its lock.
func (s *UserAdminService) ManualVerify(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, s.passThrough(ctx, "user lookup failed", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}
		return repo.UpdateLockout(ctx, user.ID, 0, nil)
	})
	if err != nil {
		return nil, s.passThrough(ctx, "manual verify failed", err)
	}

	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpires = nil
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	s.logger.Info(ctx, "user verified manually", "user_id", user.ID)
	return user, nil
}

// CreateVerifiedUser creates an account that can log in immediately.
func (s *UserAdminService) CreateVerifiedUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleStaff
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

	user, err := repo.Create(ctx, &models.User{
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  hash,
		EmailVerified: true,
		Role:          in.Role,
	})
	if errors.Is(err, common.ErrDuplicateAccount) {
		return nil, err
	}
	if err != nil {
		return nil, s.internal(ctx, "user insert failed", err)
	}

	s.logger.Info(ctx, "verified user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}
