package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"saas-backend/internal/activity"
	"saas-backend/internal/analysis"
	"saas-backend/internal/auth"
	"saas-backend/internal/dashboard"
	"saas-backend/internal/documents"
	"saas-backend/internal/jobs"
	"saas-backend/internal/llm"
	"saas-backend/internal/llm/anthropic"
	"saas-backend/internal/llm/openai"
	"saas-backend/internal/organizations"
	"saas-backend/internal/projects"
	"saas-backend/internal/queue"
	"saas-backend/internal/services/health"
	sharedauth "saas-backend/internal/shared/auth"
	"saas-backend/internal/shared/cache"
	"saas-backend/internal/shared/config"
	"saas-backend/internal/shared/server"
	"saas-backend/internal/shared/storage/db"
	"saas-backend/internal/shared/storage/object"
	localstore "saas-backend/internal/shared/storage/object/local"
	s3store "saas-backend/internal/shared/storage/object/s3"
	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/uploads"
	"saas-backend/internal/users"
)

const cachePrefix = "saas:"

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Cache     cache.Store
	Store     object.ObjectStore
	Presigner object.Presigner
	Queue     queue.Client

	UsersRepo     users.Repo
	DocumentsRepo documents.Repo
	ProjectsRepo  projects.Repo

	Users         *users.Service
	Organizations *organizations.Service
	Activity      *activity.Service
	Auth          *auth.Service
	Documents     *documents.Service
	Projects      *projects.Service
	Analysis      *analysis.Service
	Dashboard     *dashboard.Service
	Jobs          *jobs.Runner
}

// Option adjusts the App before services are wired.
type Option func(*App)

// WithoutQueue forces in-process analysis even when ANALYSIS_QUEUE_URL is set.
// The worker uses it so processed jobs are never re-enqueued.
func WithoutQueue() Option {
	return func(a *App) { a.Queue = nil }
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Cache:  buildCache(ctx, cfg),
		Store:  store,
		Queue:  queueClient,
	}
	if p, ok := store.(object.Presigner); ok {
		app.Presigner = p
	}
	for _, opt := range opts {
		opt(app)
	}

	deps, err := buildServices(app)
	if err != nil {
		return nil, err
	}
	app.Router = server.NewRouter(deps)
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.AnalysisQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.AnalysisQueueURL)
}

func buildCache(ctx context.Context, cfg config.Config) cache.Store {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cache.Nop{}
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, cachePrefix)
	if err != nil {
		telemetry.Warn("bootstrap.cache_disabled", map[string]any{"error": err})
		return cache.Nop{}
	}
	return r
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case analysis.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			break
		}
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case analysis.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			break
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
	if !cfg.IsDevLike() && cfg.LLMProvider != "none" {
		return nil, fmt.Errorf("api key required for LLM_PROVIDER=%s", cfg.LLMProvider)
	}
	telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider})
	return llm.PlaceholderClient{}, nil
}

func buildServices(app *App) (server.RouterDeps, error) {
	cfg := app.Config

	var (
		userRepo     users.Repo
		orgRepo      organizations.Repo
		activityRepo activity.Repo
		sessionRepo  auth.SessionRepo
		accountRepo  auth.AccountRepo
		docRepo      documents.Repo
		projectRepo  projects.Repo
		pinger       health.Pinger
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		orgRepo = &organizations.PGRepo{DB: app.DB}
		activityRepo = &activity.PGRepo{DB: app.DB}
		sessionRepo = &auth.PGSessionRepo{DB: app.DB}
		accountRepo = &auth.PGAccountRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		projectRepo = &projects.PGRepo{DB: app.DB}
		pinger = app.DB
	} else {
		userRepo = users.NewMemoryRepo()
		orgRepo = organizations.NewMemoryRepo()
		activityRepo = activity.NewMemoryRepo()
		sessionRepo = auth.NewMemorySessionRepo()
		accountRepo = auth.NewMemoryAccountRepo()
		docRepo = documents.NewMemoryRepo()
		projectRepo = projects.NewMemoryRepo()
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return server.RouterDeps{}, err
	}

	userSvc := users.NewService(userRepo)
	activitySvc := activity.NewService(activityRepo, userSvc)
	orgSvc := organizations.NewService(orgRepo, userRepo, activitySvc)
	authSvc := auth.NewService(userRepo, accountRepo, sessionRepo, app.Cache, cfg.SessionTTL)

	analysisSvc := analysis.NewService(orgSvc, llmClient, cfg.LLMProvider, cfg.LLMModel, cfg.LLMMaxTokens)
	analysisSvc.Queue = app.Queue
	analysisSvc.Activity = activitySvc
	analysisSvc.Notifier = analysis.NewHTTPNotifier(0)
	analysisSvc.Register(analysis.ResourceDocument, documents.AnalysisTarget{Repo: docRepo})
	analysisSvc.Register(analysis.ResourceProject, projects.AnalysisTarget{Repo: projectRepo})

	docSvc := documents.NewService(docRepo, app.Store, userSvc, activitySvc, analysisSvc)
	projectSvc := projects.NewService(projectRepo, userSvc, activitySvc, analysisSvc)
	dashSvc := dashboard.NewService(docSvc, projectSvc, activitySvc)

	states, err := sharedauth.NewStateSigner(cfg.SessionSecret, cfg.Env, 0)
	if err != nil {
		return server.RouterDeps{}, fmt.Errorf("oauth state signer: %w", err)
	}
	authHandler := auth.NewHandler(authSvc, cfg.CookieSecure)

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.ProjectsRepo = projectRepo
	app.Users = userSvc
	app.Organizations = orgSvc
	app.Activity = activitySvc
	app.Auth = authSvc
	app.Documents = docSvc
	app.Projects = projectSvc
	app.Analysis = analysisSvc
	app.Dashboard = dashSvc
	app.Jobs = jobs.NewRunner(0, jobs.SessionPurge{Purger: authSvc, Spec: cfg.SessionPurgeSchedule})

	return server.RouterDeps{
		Config:          cfg,
		Sessions:        authSvc,
		Health:          health.NewService(pinger),
		AuthHandler:     authHandler,
		GoogleAuth:      auth.NewGoogleHandler(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL, states, authHandler),
		UserHandler:     users.NewHandler(userSvc, orgSvc),
		OrgHandler:      organizations.NewHandler(orgSvc),
		DocumentHandler: documents.NewHandler(docSvc),
		ProjectHandler:  projects.NewHandler(projectSvc),
		AnalysisHandler: analysis.NewHandler(analysisSvc),
		ActivityHandler: activity.NewHandler(activitySvc),
		DashHandler:     dashboard.NewHandler(dashSvc),
		UploadHandler:   uploads.NewHandler(app.Store, app.Presigner),
	}, nil
}

// Close releases connections held by the App.
func (a *App) Close() {
	if c, ok := a.Cache.(*cache.Redis); ok {
		_ = c.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
