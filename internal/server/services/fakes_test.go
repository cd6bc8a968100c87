package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/mailer"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/repositories/assets"
	"github.com/dmitrijs2005/gims/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gims/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// -------- users --------

type fakeUsersRepo struct {
	users.Repository
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	if u.Role == "" {
		u.Role = models.RoleStaff
	}
	cp := *u
	f.byID[u.ID] = &cp
	return u
}

func (f *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) update(id int64, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (f *fakeUsersRepo) get(id int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.byID[id]
	return &cp
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if exists, _ := f.ExistsByUsernameOrEmail(ctx, u.Username, u.Email); exists {
		return nil, common.ErrDuplicateAccount
	}
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == identifier || u.Email == identifier })
}

func (f *fakeUsersRepo) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (f *fakeUsersRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	_, err := f.find(func(u *models.User) bool { return u.Username == username || u.Email == email })
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.User, 0, len(f.byID))
	for _, u := range f.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsersRepo) UpdateLockout(ctx context.Context, id int64, attempts int, until *time.Time) error {
	return f.update(id, func(u *models.User) {
		u.FailedLoginAttempts = attempts
		u.LockedUntil = until
	})
}

func (f *fakeUsersRepo) MarkEmailVerified(ctx context.Context, id int64) error {
	return f.update(id, func(u *models.User) {
		u.EmailVerified = true
		u.VerificationToken = nil
		u.VerificationTokenExpires = nil
	})
}

func (f *fakeUsersRepo) SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error {
	return f.update(id, func(u *models.User) {
		u.VerificationToken = &token
		u.VerificationTokenExpires = &expires
	})
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return f.update(id, func(u *models.User) {
		u.PasswordHash = hash
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
	})
}

func (f *fakeUsersRepo) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	return f.update(id, func(u *models.User) { u.Role = role })
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// -------- assets and attachments --------

type fakeAssetsRepo struct {
	assets.Repository
	mu        sync.Mutex
	byID      map[int64]*models.Asset
	nextID    int64
	createErr error
	listErr   error
}

func newFakeAssetsRepo() *fakeAssetsRepo {
	return &fakeAssetsRepo{byID: map[int64]*models.Asset{}}
}

func (f *fakeAssetsRepo) Create(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return a, nil
}

func (f *fakeAssetsRepo) Update(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[a.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	f.byID[a.ID] = &cp
	return a, nil
}

func (f *fakeAssetsRepo) Get(ctx context.Context, id int64) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssetsRepo) List(ctx context.Context) ([]*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Asset, 0, len(f.byID))
	for _, a := range f.byID {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeAssetsRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeAttachmentsRepo struct {
	attachments.Repository
	mu        sync.Mutex
	byID      map[int64]*models.Attachment
	nextID    int64
	createErr error
}

func newFakeAttachmentsRepo() *fakeAttachmentsRepo {
	return &fakeAttachmentsRepo{byID: map[int64]*models.Attachment{}}
}

func (f *fakeAttachmentsRepo) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byID[a.ID] = &cp
	return a, nil
}

func (f *fakeAttachmentsRepo) Get(ctx context.Context, id int64) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttachmentsRepo) ListByAsset(ctx context.Context, assetID int64) ([]*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Attachment, 0)
	for _, a := range f.byID {
		if a.AssetID == assetID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAttachmentsRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u *fakeUsersRepo
	a *fakeAssetsRepo
	f *fakeAttachmentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), a: newFakeAssetsRepo(), f: newFakeAttachmentsRepo()}
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Assets(dbx.DBTX) assets.Repository           { return m.a }
func (m *fakeRepoManager) Attachments(dbx.DBTX) attachments.Repository { return m.f }

// -------- mailer and blob store --------

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	// failAfter makes Put fail once that many objects were stored.
	failAfter int
	deleted   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, failAfter: -1}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil || b.failAfter == len(b.objects) {
		return errBoom{}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blobs.test/" + key, nil
}

// -------- helpers --------

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.AppURL = "http://app.test"
	return cfg
}

func testHasher(t *testing.T) auth.PasswordHasher {
	t.Helper()
	return auth.BcryptHasher{Cost: 4}
}

type authFixture struct {
	svc    *AuthService
	repos  *fakeRepoManager
	mailer *fakeMailer
	clock  *clock.Fake
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db, _ := newSQLMockDB(t)
	rm := newFakeRepoManager()
	ml := &fakeMailer{}
	clk := clock.NewFake(testNow)
	svc := NewAuthService(db, rm, testConfig(), testHasher(t), ml, clk, logging.Nop())
	return &authFixture{svc: svc, repos: rm, mailer: ml, clock: clk}
}

func fileUpload(name, content string) Upload {
	return Upload{
		FileName:    name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        bytes.NewBufferString(content),
	}
}
