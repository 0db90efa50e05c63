package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/loops-hq/loops-backend/config"
	"github.com/loops-hq/loops-backend/internal/auth"
	authmw "github.com/loops-hq/loops-backend/internal/auth/middleware"
	loophttp "github.com/loops-hq/loops-backend/internal/loops/http"
	looprepo "github.com/loops-hq/loops-backend/internal/loops/repository"
	loopservice "github.com/loops-hq/loops-backend/internal/loops/service"
	projectrepo "github.com/loops-hq/loops-backend/internal/projects/repository"
	projectservice "github.com/loops-hq/loops-backend/internal/projects/service"
	"github.com/loops-hq/loops-backend/internal/storage/postgres"
	"github.com/loops-hq/loops-backend/internal/users"
)

// App holds the connections and services shared by the API server and the worker.
type App struct {
	Config *config.Config

	Pool  *pgxpool.Pool
	SQL   *sql.DB
	Redis *redis.Client

	Users    *users.Repo
	Projects *projectservice.ProjectService
	Loops    *loopservice.LoopService
	// Events stays a nil interface without Redis.
	Events loophttp.EventSubscriber
}

// NewApp opens Postgres (both pools), applies the schema, connects Redis when configured
// and builds the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := OpenDB(ctx, DBOptions{DSN: postgres.DSN(&cfg.Database)})
	if err != nil {
		return nil, err
	}
	if err := postgres.ApplySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	sqlDB, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		pool.Close()
		return nil, err
	}

	rdb, err := OpenRedis(ctx, cfg)
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, err
	}

	app := &App{
		Config: cfg,
		Pool:   pool,
		SQL:    sqlDB,
		Redis:  rdb,
		Users:  users.NewRepo(pool),
	}

	var (
		opts        []loopservice.Option
		projectOpts []projectservice.Option
	)
	if rdb != nil {
		bus := looprepo.NewEventBus(rdb)
		cache := looprepo.NewSummaryCache(rdb, cfg.Loops.SummaryTTL)
		app.Events = bus
		opts = append(opts, loopservice.WithEvents(bus), loopservice.WithSummaryCache(cache))
		projectOpts = append(projectOpts, projectservice.WithSummaryCache(cache))
	} else {
		slog.Warn("REDIS_ADDR not set, loop events and dashboard cache disabled")
	}
	app.Projects = projectservice.NewProjectService(projectrepo.NewProjectRepository(sqlDB), projectOpts...)
	app.Loops = loopservice.NewLoopService(looprepo.NewStore(sqlDB), app.Projects, opts...)

	return app, nil
}

// AuthMiddleware verifies Firebase ID tokens when credentials are configured and
// otherwise trusts the X-User-* headers.
func (a *App) AuthMiddleware(ctx context.Context) (gin.HandlerFunc, error) {
	if a.Config.Firebase.CredentialsPath == "" {
		slog.Warn("FIREBASE_CREDENTIALS_PATH not set, using header-based dev auth")
		return auth.WithUser(a.Users), nil
	}

	client, err := auth.InitializeFirebase(ctx, &a.Config.Firebase)
	if err != nil {
		return nil, fmt.Errorf("firebase: %w", err)
	}
	return authmw.FirebaseAuthMiddleware(client, a.Users), nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("redis close failed", "error", err)
		}
	}
	if err := a.SQL.Close(); err != nil {
		slog.Error("database close failed", "error", err)
	}
	a.Pool.Close()
}
