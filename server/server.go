package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/wahajws/amast-crm-sub001/api"
	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/internal/cron"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/repository"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
	"github.com/wahajws/amast-crm-sub001/services/storage"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cron         *cron.CronManager
	tracerCloser io.Closer
}

// NewServer wires logging, tracing, storage, repositories and services on
// top of an open CRM database.
func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	_, closer, err := tracing.InitGlobalTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}

	s, err := newServer(cfg, appLogger, db)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	s.tracerCloser = closer
	return s, nil
}

// NewWorker wires the services without the HTTP and cron layers, for one-off
// commands.
func NewWorker(cfg *config.Config, db *gorm.DB) (*Server, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	return newServer(cfg, appLogger, db)
}

func newServer(cfg *config.Config, log logger.Logger, db *gorm.DB) (*Server, error) {
	policy := domain_matcher.DefaultPolicy
	if cfg.MatchingConfig != nil {
		policy = *cfg.MatchingConfig
	}
	matcher := domain_matcher.NewMatcher(policy)

	attachmentStorage := storage.NewAttachmentStorage(cfg.R2StorageConfig)
	if attachmentStorage == nil {
		log.Info("R2 storage not configured, attachments stay with the mail provider")
	}
	repos := repository.InitRepositories(db, matcher, attachmentStorage, storage.ServiceNameR2)

	svcs, err := services.InitServices(cfg, log, repos, matcher, attachmentStorage != nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize services")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          log,
		router:       router,
		services:     svcs,
		repositories: repos,
		cron:         cron.NewCronManager(cfg.CronConfig, log, kubernetesClient(log), repos.LabelSyncSettingRepository, svcs.SyncService),
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster; the cron manager then runs
// in local mode.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Debugf("not running in kubernetes: %v", err)
		return nil
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("could not create kubernetes client: %v", err)
		return nil
	}
	return clientset
}

func (s *Server) Services() *services.Services {
	return s.services
}

func (s *Server) Run() error {
	api.RegisterRoutes(s.router, s.services, s.config.AppConfig.APIKey, s.config.AppConfig.AppSource)

	podName := os.Getenv("POD_NAME")
	if podName == "" {
		podName, _ = os.Hostname()
	}
	if err := s.cron.Start(podName); err != nil {
		return errors.Wrap(err, "could not start cron manager")
	}

	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.log.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("HTTP server error: %v", err)
		}
	}()

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	s.log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	cronDone := make(chan struct{})
	go func() {
		defer close(cronDone)
		s.cron.Stop()
	}()
	select {
	case <-cronDone:
	case <-ctx.Done():
		s.log.Warn("Cron manager stop timed out")
	}

	return s.Close()
}

func (s *Server) Close() error {
	var result error
	if err := s.services.Close(); err != nil {
		result = errors.Wrap(err, "close services")
	}
	if s.tracerCloser != nil {
		if err := s.tracerCloser.Close(); err != nil && result == nil {
			result = errors.Wrap(err, "close tracer")
		}
	}
	return result
}
