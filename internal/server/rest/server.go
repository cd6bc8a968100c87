// Package rest exposes the GIMS services over a JSON HTTP API built on gin.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 10 * time.Second

	// jsonBodyLimit caps every JSON body.
	jsonBodyLimit = 10 << 20
	// formOverhead covers multipart headers and text fields next to files.
	formOverhead = 1 << 20
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) (bool, error)
	Login(ctx context.Context, identifier, password string) (*services.Session, error)
	ResendVerification(ctx context.Context, email string) error
	Authenticate(token string) (*auth.Claims, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
	VerificationLink(ctx context.Context, email string) (string, error)
}

type AdminService interface {
	RequireAdmin(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	DeleteUser(ctx context.Context, actorID, targetID int64) error
	UpdateRole(ctx context.Context, actorID, targetID int64, role models.Role) error
	Unlock(ctx context.Context, userID int64) error
}

type AssetService interface {
	List(ctx context.Context) ([]*models.Asset, error)
	Get(ctx context.Context, id int64) (*models.Asset, error)
	PublicView(ctx context.Context, id int64) (*models.Asset, error)
	Create(ctx context.Context, in services.AssetInput, uploads []services.Upload) (*models.Asset, error)
	Update(ctx context.Context, id int64, in services.AssetInput, uploads []services.Upload) (*models.Asset, error)
	Delete(ctx context.Context, id int64) error
	DeleteAttachment(ctx context.Context, assetID, attachmentID int64) error
	QRCode(ctx context.Context, id int64, size string) ([]byte, error)
}

type ReportService interface {
	Export(ctx context.Context, format string) (*services.File, error)
	ImportTemplate(ctx context.Context) (*services.File, error)
	Import(ctx context.Context, filename string, r io.Reader) (*services.ImportResult, error)
	Summary(ctx context.Context) (*models.AssetSummary, error)
}

// Services bundles the handlers' dependencies.
type Services struct {
	Auth    AuthService
	Admin   AdminService
	Assets  AssetService
	Reports ReportService
}

type limiters struct {
	api      *ipLimiter
	login    *ipLimiter
	register *ipLimiter
}

// Server is the REST API server.
type Server struct {
	address       string
	devMode       bool
	maxUploadSize int64
	auth          AuthService
	admin         AdminService
	assets        AssetService
	reports       ReportService
	logger        logging.Logger
	limits        limiters
	engine        *gin.Engine
}

func NewServer(cfg *config.Config, svc Services, l logging.Logger) *Server {
	s := &Server{
		address:       cfg.HTTPAddr,
		devMode:       cfg.DevMode,
		maxUploadSize: cfg.MaxUploadSize,
		auth:          svc.Auth,
		admin:         svc.Admin,
		assets:        svc.Assets,
		reports:       svc.Reports,
		logger:        l.With("module", "rest_server"),
		limits: limiters{
			api:      newIPLimiter(100, 15*time.Minute),
			login:    newIPLimiter(5, 15*time.Minute),
			register: newIPLimiter(3, time.Hour),
		},
	}

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = s.routes(cfg.AllowedOrigins)
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), securityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = s.maxUploadSize

	r.GET("/", s.ping)

	api := r.Group("/api")
	api.Use(s.limits.api.limitAll("Too many requests from this IP, please try again later."))

	jsonLimit := limitBody(jsonBodyLimit)
	assetLimit := limitBody(s.maxUploadSize*services.MaxAttachments + formOverhead)
	importLimit := limitBody(s.maxUploadSize + formOverhead)

	authGroup := api.Group("/auth", jsonLimit)
	{
		authGroup.POST("/register", s.limits.register.limitAll("Too many accounts created from this IP, please try again later"), s.register)
		authGroup.POST("/login", s.limits.login.limitFailures("Too many login attempts, please try again after 15 minutes"), s.login)
		authGroup.GET("/verify-email/:token", s.verifyEmail)
		authGroup.POST("/resend-verification", s.resendVerification)
		authGroup.GET("/me", s.authRequired(), s.me)
		if s.devMode {
			authGroup.GET("/dev/verification-link/:email", s.devVerificationLink)
		}
	}

	api.GET("/public/assets/:id", s.publicAsset)

	assets := api.Group("/assets", s.authRequired())
	{
		assets.GET("", s.listAssets)
		assets.POST("", assetLimit, s.createAsset)
		assets.GET("/import-template", s.importTemplate)
		assets.POST("/import", importLimit, s.importAssets)
		assets.GET("/:id", s.getAsset)
		assets.PUT("/:id", assetLimit, s.updateAsset)
		assets.DELETE("/:id", s.deleteAsset)
		assets.GET("/:id/qrcode", s.assetQRCode)
		assets.DELETE("/:id/attachments/:attachmentId", s.deleteAttachment)
	}

	reports := api.Group("/reports", s.authRequired())
	{
		reports.GET("/assets/export", s.exportAssets)
		reports.GET("/summary", s.summary)
	}

	users := api.Group("/users", s.authRequired(), s.adminRequired(), jsonLimit)
	{
		users.GET("", s.listUsers)
		users.DELETE("/:id", s.deleteUser)
		users.PUT("/:id/role", s.updateRole)
		users.POST("/:id/unlock", s.unlockUser)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	for _, l := range []*ipLimiter{s.limits.api, s.limits.login, s.limits.register} {
		go l.cleanup(cleanupCtx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting REST server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
