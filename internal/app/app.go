package app

import (
	"context"
	"document-review/internal/config"
	"document-review/internal/domain/repositories"
	"document-review/internal/domain/services"
	"document-review/internal/infrastructure/cache"
	"document-review/internal/infrastructure/database"
	dbrepos "document-review/internal/infrastructure/database/repositories"
	"document-review/internal/infrastructure/mail"
	"document-review/internal/infrastructure/memory"
	"document-review/internal/infrastructure/storage"
	"document-review/internal/interfaces/handlers"
	"document-review/pkg/logger"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App holds the HTTP router and the resources it owns.
type App struct {
	router  *gin.Engine
	closers []func()
}

// New wires storage, cache, notifier and services from cfg. With the memory
// driver nothing external is touched except the optional Redis cache and
// SMTP relay.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	a := &App{}

	docRepo, blobs, err := a.openStorage(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	cacheSvc := services.NewNoopCacheService()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		cacheSvc = services.NewRedisCacheService(redisClient, cfg.Redis.ListTTL)
	}

	reviewers := make([]services.Reviewer, 0, len(cfg.Review.Reviewers))
	for _, r := range cfg.Review.Reviewers {
		reviewers = append(reviewers, services.Reviewer{Slot: r.Slot, Email: r.Email, Name: r.Name})
	}
	roster, err := services.NewRoster(reviewers)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid reviewer roster: %w", err)
	}
	authorizer, err := services.NewStaticAuthorizer(roster, services.MatchMode(cfg.Review.Match))
	if err != nil {
		a.Close()
		return nil, err
	}

	var notifier services.Notifier
	if cfg.Mail.Enabled() {
		notifier = mail.NewSMTPNotifier(cfg.Mail, log.Named("mail"))
	} else {
		log.Warn("mail host not configured, approval emails will only be logged")
		notifier = mail.NewLogNotifier(log.Named("mail"))
	}

	docSvc := services.NewDocumentService(docRepo, blobs, cacheSvc, roster, services.UploadLimits{
		MaxSize:      cfg.Storage.MaxSize,
		AllowedMimes: cfg.Storage.AllowedMimes,
	}, log.Named("documents"))

	reviewSvc := services.NewReviewService(docRepo, cacheSvc, roster, authorizer, notifier, services.MockTranslator{},
		services.ReviewOptions{
			BaseURL:        cfg.Review.BaseURL,
			DefaultSubject: cfg.Mail.Subject,
			MaxParallel:    cfg.Mail.MaxParallel,
			SendTimeout:    cfg.Mail.SendTimeout,
		}, log.Named("review"))

	docHandler := handlers.NewDocumentHandler(docSvc, cfg.Storage.MaxSize)
	reviewHandler := handlers.NewReviewHandler(reviewSvc)

	a.router = newRouter(cfg, docHandler, reviewHandler, log.Named("http"))

	return a, nil
}

func (a *App) openStorage(cfg config.Config) (repositories.DocumentRepository, repositories.BlobStore, error) {
	if cfg.Database.Driver == "memory" {
		return memory.NewDocumentRepository(), memory.NewBlobStore(), nil
	}

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, db.Close)

	blobs, err := storage.NewFileStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}

	return dbrepos.NewDocumentRepository(db.DB(), db.Pool()), blobs, nil
}

func newRouter(cfg config.Config, docHandler *handlers.DocumentHandler, reviewHandler *handlers.ReviewHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(log))
	r.Use(handlers.HeadToGetMiddleware())
	r.Use(handlers.CORSMiddleware())

	r.GET("/healthz", handlers.Healthz)

	limited := handlers.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	api := r.Group("/api")
	{
		api.POST("/files/upload", docHandler.Upload)
		api.GET("/files", docHandler.GetList)
		api.GET("/files/:id", docHandler.GetByID)
		api.GET("/files/download/:id", docHandler.Download)
		api.GET("/files/preview/:id", docHandler.Preview)
		api.POST("/files/save-edited", docHandler.SaveEdited)
		api.POST("/files/:id/translate", reviewHandler.Translate)

		api.POST("/translate-status", reviewHandler.TranslateStatus)
		api.POST("/send-approval-emails", reviewHandler.SendApprovalEmails)

		api.POST("/translations/:id/approve", limited, reviewHandler.Approve)
		api.POST("/translations/:id/reject", limited, reviewHandler.Reject)
	}

	return r
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func Run(cfg config.Config) error {
	if cfg.Env != "dev" && cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.Named("server")

	a, err := New(cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
