package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const goodToken = "good-token"

type fakeAuth struct {
	registerFn func(in services.RegisterInput) (*models.User, error)
	verifyFn   func(token string) (bool, error)
	loginFn    func(identifier, password string) (*services.Session, error)
	resendFn   func(email string) error
	linkFn     func(email string) (string, error)

	loginCalls int
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	return f.registerFn(in)
}

func (f *fakeAuth) VerifyEmail(_ context.Context, token string) (bool, error) {
	return f.verifyFn(token)
}

func (f *fakeAuth) Login(_ context.Context, identifier, password string) (*services.Session, error) {
	f.loginCalls++
	return f.loginFn(identifier, password)
}

func (f *fakeAuth) ResendVerification(_ context.Context, email string) error {
	return f.resendFn(email)
}

func (f *fakeAuth) Authenticate(token string) (*auth.Claims, error) {
	switch token {
	case goodToken:
		return &auth.Claims{UserID: 1, Username: "alice"}, nil
	case "staff-token":
		return &auth.Claims{UserID: 2, Username: "bob"}, nil
	}
	return nil, common.ErrInvalidToken
}

func (f *fakeAuth) Me(_ context.Context, userID int64) (*models.User, error) {
	if userID == 1 {
		return &models.User{ID: 1, Username: "alice", Email: "alice@example.com", Role: models.RoleAdmin}, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAuth) VerificationLink(_ context.Context, email string) (string, error) {
	return f.linkFn(email)
}

type fakeAdmin struct {
	deleted   [][2]int64
	roles     map[int64]models.Role
	unlocked  []int64
	deleteErr error
}

func (f *fakeAdmin) RequireAdmin(_ context.Context, userID int64) error {
	if userID == 1 {
		return nil
	}
	return common.ErrForbidden
}

func (f *fakeAdmin) ListUsers(context.Context) ([]*models.User, error) {
	return []*models.User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}, nil
}

func (f *fakeAdmin) DeleteUser(_ context.Context, actorID, targetID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, [2]int64{actorID, targetID})
	return nil
}

func (f *fakeAdmin) UpdateRole(_ context.Context, actorID, targetID int64, role models.Role) error {
	if actorID == targetID {
		return common.ErrSelfModification
	}
	if f.roles == nil {
		f.roles = map[int64]models.Role{}
	}
	f.roles[targetID] = role
	return nil
}

func (f *fakeAdmin) Unlock(_ context.Context, userID int64) error {
	f.unlocked = append(f.unlocked, userID)
	return nil
}

type createdAsset struct {
	in      services.AssetInput
	uploads []string
}

type fakeAssets struct {
	assets  map[int64]*models.Asset
	created []createdAsset
	deleted []int64
	qrSize  string
}

func (f *fakeAssets) List(context.Context) ([]*models.Asset, error) {
	list := make([]*models.Asset, 0, len(f.assets))
	for _, a := range f.assets {
		list = append(list, a)
	}
	return list, nil
}

func (f *fakeAssets) Get(_ context.Context, id int64) (*models.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAssets) PublicView(ctx context.Context, id int64) (*models.Asset, error) {
	return f.Get(ctx, id)
}

func (f *fakeAssets) record(in services.AssetInput, uploads []services.Upload) error {
	c := createdAsset{in: in}
	for _, u := range uploads {
		b, err := io.ReadAll(u.Body)
		if err != nil {
			return err
		}
		c.uploads = append(c.uploads, u.FileName+":"+string(b))
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeAssets) Create(_ context.Context, in services.AssetInput, uploads []services.Upload) (*models.Asset, error) {
	if in.Name == "" {
		return nil, common.NewValidationError("name", "is required")
	}
	if err := f.record(in, uploads); err != nil {
		return nil, err
	}
	return &models.Asset{ID: 42, Name: in.Name}, nil
}

func (f *fakeAssets) Update(_ context.Context, id int64, in services.AssetInput, uploads []services.Upload) (*models.Asset, error) {
	if _, ok := f.assets[id]; !ok {
		return nil, common.ErrorNotFound
	}
	if err := f.record(in, uploads); err != nil {
		return nil, err
	}
	return &models.Asset{ID: id, Name: in.Name}, nil
}

func (f *fakeAssets) Delete(_ context.Context, id int64) error {
	if _, ok := f.assets[id]; !ok {
		return common.ErrorNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAssets) DeleteAttachment(_ context.Context, assetID, attachmentID int64) error {
	if assetID != 7 || attachmentID != 3 {
		return common.ErrorNotFound
	}
	return nil
}

func (f *fakeAssets) QRCode(_ context.Context, id int64, size string) ([]byte, error) {
	f.qrSize = size
	if size == "huge" {
		return nil, common.NewValidationError("size", "must be one of: small, medium, large, xlarge")
	}
	return []byte("\x89PNG"), nil
}

type fakeReports struct {
	imported string
}

func (f *fakeReports) Export(_ context.Context, format string) (*services.File, error) {
	if format != services.FormatCSV && format != services.FormatXLSX {
		return nil, common.NewValidationError("format", "must be one of: xlsx, csv")
	}
	return &services.File{Name: "Asset_Report." + format, ContentType: "text/csv", Data: []byte("Asset ID\n1\n")}, nil
}

func (f *fakeReports) ImportTemplate(context.Context) (*services.File, error) {
	return &services.File{Name: "Asset_Import_Template.xlsx", ContentType: services.ContentTypeXLSX, Data: []byte("xlsx")}, nil
}

func (f *fakeReports) Import(_ context.Context, filename string, r io.Reader) (*services.ImportResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.imported = filename + ":" + string(b)
	return &services.ImportResult{Imported: 1, Total: 1}, nil
}

func (f *fakeReports) Summary(context.Context) (*models.AssetSummary, error) {
	return &models.AssetSummary{Total: 2, ByStatus: map[models.AssetStatus]int{models.StatusInUse: 2}}, nil
}

type fixture struct {
	auth    *fakeAuth
	admin   *fakeAdmin
	assets  *fakeAssets
	reports *fakeReports
	server  *Server
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	for _, m := range mutate {
		m(cfg)
	}

	f := &fixture{
		auth: &fakeAuth{
			registerFn: func(in services.RegisterInput) (*models.User, error) {
				return &models.User{ID: 3, Username: in.Username, Email: in.Email}, nil
			},
			verifyFn: func(string) (bool, error) { return false, nil },
			loginFn: func(string, string) (*services.Session, error) {
				return nil, common.ErrInvalidCredentials
			},
			resendFn: func(string) error { return nil },
			linkFn:   func(email string) (string, error) { return "http://app.test/verify-email/abc", nil },
		},
		admin:   &fakeAdmin{},
		assets:  &fakeAssets{assets: map[int64]*models.Asset{7: {ID: 7, Name: "Oscilloscope"}}},
		reports: &fakeReports{},
	}
	f.server = NewServer(cfg, Services{Auth: f.auth, Admin: f.admin, Assets: f.assets, Reports: f.reports}, logging.Nop())
	return f
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string
}

func (f *fixture) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+r.token)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

var lockedUntil = time.Date(2025, 3, 10, 12, 15, 0, 0, time.UTC)

func postJSON(path string, body io.Reader) request {
	return request{method: http.MethodPost, path: path, body: body, contentType: "application/json"}
}
