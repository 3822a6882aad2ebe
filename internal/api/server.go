package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/pgcore/internal/access"
	"github.com/nerrad567/pgcore/internal/audit"
	"github.com/nerrad567/pgcore/internal/infrastructure/config"
	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Database is the part of database.DB the API reads.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() database.PoolStats
	Script() *database.SchemaScript
}

// RuleStore is the access store as seen by the API.
type RuleStore interface {
	Allowed(ctx context.Context, subject access.Subject, resource, method, ownerID string) (bool, error)
	MayAccess(ctx context.Context, subject access.Subject, resource, method string) (bool, error)
	CreateRole(ctx context.Context, name, description string) (access.Role, error)
	Roles(ctx context.Context) ([]access.Role, error)
	Grant(ctx context.Context, req access.GrantRequest) (access.Grant, error)
	Grants(ctx context.Context, role string) ([]access.Grant, error)
	GrantByID(ctx context.Context, id int64) (access.Grant, error)
	Revoke(ctx context.Context, id int64) error
}

// AuditLog stores and lists audit entries.
type AuditLog interface {
	Create(ctx context.Context, e *audit.Entry) error
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	DB       Database
	Access   RuleStore
	Audit    AuditLog // optional; nil disables the audit trail
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	db      Database
	access  RuleStore
	version string
	server  *http.Server

	auditRepo AuditLog
	auditCh   chan *audit.Entry
	auditStop context.CancelFunc
	auditDone chan struct{}
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, database, access store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access store is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		secCfg:    deps.Security,
		logger:    deps.Logger.With("component", "api"),
		db:        deps.DB,
		access:    deps.Access,
		version:   deps.Version,
		auditRepo: deps.Audit,
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}
	return s, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Returns:
//   - error: Always nil; listener failures are logged
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	if s.auditRepo != nil {
		var auditCtx context.Context
		auditCtx, s.auditStop = context.WithCancel(context.Background())
		s.auditDone = make(chan struct{})
		go func() {
			defer close(s.auditDone)
			s.drainAuditLog(auditCtx)
		}()
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections. Queued audit entries are
// written before Close returns.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	if s.auditStop != nil {
		s.auditStop()
		<-s.auditDone
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
