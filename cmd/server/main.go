// Command server runs the multi-tenant SaaS API.
//
// Request pipeline, outermost first: request id and panic recovery, rate
// limiting on the login endpoints (before tenant resolution, so abusive
// clients never cost a directory lookup or a database session), tenant
// resolution with directory validation (skipped for admin and health
// paths), row-filter session acquisition, then path-selected token
// authentication: tenant tokens on tenant routes, admin tokens under
// /api/v1/admin/.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/admin"
	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/auth"
	"github.com/Shakvilla/saas-starter-template-shared-schema/modules/users"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/async"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/authtoken"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/config"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/environment"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/httpserver"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/logger"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/pg"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/ratelimit"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/redis"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/requestid"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rowfilter"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

const (
	apiPrefix       = "/api/v1"
	authPrefix      = "/api/v1/auth/"
	adminPrefix     = "/api/v1/admin/"
	adminAuthPrefix = "/api/v1/admin/auth/"
	healthPath      = "/health"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"saas-starter"`

	Server    httpserver.Config
	DB        pg.Config
	Redis     redis.Config
	Token     authtoken.Config
	RateLimit ratelimit.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.ServiceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			tenant.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, env, log); err != nil {
		log.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, env environment.Environment, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.DB, log); err != nil {
		return err
	}

	tokens, err := authtoken.New(cfg.Token, env, log)
	if err != nil {
		return err
	}

	// Rate limit counters live in Redis when configured so the window holds
	// across replicas; otherwise they are per-process.
	var limiterStore ratelimit.Store
	readiness := []func(context.Context) error{pg.Healthcheck(pool)}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient)
		readiness = append(readiness, redis.Healthcheck(redisClient))
	} else {
		memStore := ratelimit.NewMemoryStore()
		defer memStore.Close()
		limiterStore = memStore
	}

	limiter, err := ratelimit.New(limiterStore, cfg.RateLimit)
	if err != nil {
		return err
	}

	tenantStore := admin.NewPGTenantStore(pool)
	directory := tenant.NewDirectory(tenantStore, tenant.WithDirectoryLogger(log))
	defer directory.Close()

	runner := async.NewRunner(log)

	gate := rowfilter.NewFromPool(pool, rowfilter.WithLogger(log))

	authSvc := auth.NewService(auth.NewPGStorage(), tokens, runner, auth.WithLogger(log))
	adminSvc := admin.NewService(tenantStore, admin.NewPGAdminStore(pool), tokens, directory, log)

	router := newRouter(routerDeps{
		log:        log,
		limiter:    limiter,
		directory:  directory,
		gate:       gate,
		tokens:     tokens,
		authSvc:    authSvc,
		adminSvc:   adminSvc,
		usersStore: users.NewPGStorage(),
		readiness:  readiness,
	})

	srv := httpserver.NewFromConfig(cfg.Server,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(ctx context.Context) {
			if err := runner.Shutdown(ctx); err != nil {
				log.Warn("background tasks did not drain", slog.String("error", err.Error()))
			}
		}),
	)

	return srv.Run(ctx, router)
}

type routerDeps struct {
	log        *slog.Logger
	limiter    *ratelimit.Limiter
	directory  *tenant.Directory
	gate       *rowfilter.Gate
	tokens     *authtoken.Service
	authSvc    *auth.Service
	adminSvc   *admin.Service
	usersStore users.Storage
	readiness  []func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get(healthPath, httpserver.HealthCheckHandler(context.Background(), d.log, d.readiness...))

	// The brute-force limiter guards the unauthenticated login surfaces and
	// runs before tenant resolution: an over-limit client is turned away
	// before it costs a directory lookup or a scoped database connection.
	// Authenticated routes are already behind token verification.
	throttle := pathThrottle(
		ratelimit.Middleware(d.limiter, ratelimit.WithLogger(d.log)),
		authPrefix, adminAuthPrefix,
	)

	// Tenant resolution and the row filter skip the admin surface and
	// health: admin operations are cross-tenant by design.
	resolveTenant := tenant.Middleware(
		tenant.NewHeaderResolver(tenant.DefaultHeader),
		d.directory,
		tenant.WithSkipPaths(adminPrefix, healthPath),
		tenant.WithMiddlewareLogger(d.log),
	)
	scopeSession := rowfilter.Middleware(d.gate, nil, adminPrefix, healthPath)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(throttle)
		r.Use(resolveTenant)
		r.Use(scopeSession)

		r.Route("/auth", func(r chi.Router) {
			r.Mount("/", auth.NewHandler(d.authSvc).Routes())
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authtoken.TenantMiddleware(d.tokens, authtoken.WithMiddlewareLogger(d.log)))
			r.Mount("/", users.NewHandler(d.usersStore).Routes())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authtoken.AdminMiddleware(d.tokens, authtoken.WithMiddlewareLogger(d.log)))
			r.Mount("/", admin.NewHandler(d.adminSvc).Routes())
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		core.Error(w, r, http.StatusNotFound, "Resource not found")
	})

	return r
}

// pathThrottle applies the limiter to requests under the given path prefixes
// and passes everything else through untouched. Admin management stays
// outside the window: only the login paths take unauthenticated credentials.
func pathThrottle(throttle func(http.Handler) http.Handler, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := throttle(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range prefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					limited.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
