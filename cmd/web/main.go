package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/tutorai/internal/ai"
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/myrjola/tutorai/internal/auth"
	"github.com/myrjola/tutorai/internal/broker"
	"github.com/myrjola/tutorai/internal/envstruct"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/feedback"
	"github.com/myrjola/tutorai/internal/logging"
	"github.com/myrjola/tutorai/internal/metrics"
	"github.com/myrjola/tutorai/internal/pprofserver"
	"github.com/myrjola/tutorai/internal/questions"
	"github.com/myrjola/tutorai/internal/sandbox"
	"github.com/myrjola/tutorai/internal/sqlite"
	"github.com/myrjola/tutorai/internal/tutor"
	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
	"os"
	"time"
)

var errNoUsers = errors.NewSentinel("authentication enabled but " + auth.UsersEnv + " is not configured")

type config struct {
	// Addr is the address the server listens on. Use port 0 to pick a free port.
	Addr          string `env:"TUTORAI_ADDR" envDefault:"localhost:7777"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:""`
	Model         string `env:"TUTORAI_MODEL" envDefault:"gpt-4o-mini"`
	QuestionsPath string `env:"TUTORAI_QUESTIONS" envDefault:"data/questions.txt"`
	LogDir        string `env:"TUTORAI_LOG_DIR" envDefault:"logs"`
	Debug         bool   `env:"TUTORAI_DEBUG" envDefault:"false"`
	// Auth requires a login with USERS and ACCESS_KEYS before any tutoring action.
	Auth        bool          `env:"TUTORAI_AUTH" envDefault:"false"`
	ExecTimeout time.Duration `env:"TUTORAI_EXEC_TIMEOUT" envDefault:"5s"`
	// StreamTimeout bounds a run or help action including the wait for the browser to subscribe.
	StreamTimeout time.Duration `env:"TUTORAI_STREAM_TIMEOUT" envDefault:"2m"`
	GeoEnabled    bool          `env:"TUTORAI_GEO_ENABLED" envDefault:"true"`
	GeoURL        string        `env:"TUTORAI_GEO_URL" envDefault:"http://ip-api.com/json/"`
	SessionDB     string        `env:"TUTORAI_SESSION_DB" envDefault:":memory:"`
	PprofAddr     string        `env:"TUTORAI_PPROF_ADDR" envDefault:""`
}

type application struct {
	logger         *slog.Logger
	cfg            config
	tutor          *tutor.Tutor
	auditor        *audit.Auditor
	authenticator  *auth.Authenticator
	sessionManager *scs.SessionManager
	streams        *broker.ChannelBroker[string, tutor.Update]
	library        *questions.Library
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	locator := audit.NewLocator(audit.LocatorConfig{ //nolint:exhaustruct // default timeout and rate
		Enabled: cfg.GeoEnabled,
		BaseURL: cfg.GeoURL,
	}, logger)
	var auditor *audit.Auditor
	if auditor, err = audit.New(audit.Config{Dir: cfg.LogDir, Debug: cfg.Debug}, locator, logger); err != nil {
		return errors.Wrap(err, "open audit logs", slog.String("dir", cfg.LogDir))
	}
	defer func() {
		if closeErr := auditor.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close audit logs", errors.SlogError(closeErr))
		}
	}()

	authenticator := auth.NewAuthenticator(lookupEnv, auditor)
	if cfg.Auth && !authenticator.Configured() {
		return errNoUsers
	}

	if err = metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return errors.Wrap(err, "register metrics")
	}

	library := questions.NewLibrary(cfg.QuestionsPath, logger)
	aiClient := ai.NewClient(ai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.Model})
	pipeline := feedback.NewPipeline(aiClient, logger)

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SessionDB, logger); err != nil {
		return errors.Wrap(err, "open session database", slog.String("url", cfg.SessionDB))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close session database", errors.SlogError(closeErr))
		}
	}()
	sessionStore := sqlite3store.NewWithCleanupInterval(db.DB.DB, 30*time.Minute) //nolint:mnd // expired sessions linger briefly
	defer sessionStore.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = sessionStore
	sessionManager.Lifetime = 12 * time.Hour //nolint:mnd // a working day
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true

	streams := broker.NewChannelBroker[string, tutor.Update]()
	go streams.Start()
	defer streams.Stop()

	if cfg.PprofAddr != "" {
		pprofserver.Launch(ctx, cfg.PprofAddr, logger)
	}

	app := application{
		logger:         logger,
		cfg:            cfg,
		tutor:          tutor.New(library, sandbox.NewStarlark(cfg.ExecTimeout), pipeline, auditor),
		auditor:        auditor,
		authenticator:  authenticator,
		sessionManager: sessionManager,
		streams:        streams,
		library:        library,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.NewLogger(os.Stdout, slog.LevelInfo)

	// A missing .env file is fine, the variables may come from the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.LogAttrs(ctx, slog.LevelWarn, "failed to load .env", errors.SlogError(errors.Wrap(err, "load .env")))
	}

	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
