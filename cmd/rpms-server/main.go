package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rpms/rpms/internal/config"
	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/dailylog"
	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/domain/messaging"
	"github.com/rpms/rpms/internal/domain/portal"
	"github.com/rpms/rpms/internal/domain/triage"
	"github.com/rpms/rpms/internal/platform/auth"
	"github.com/rpms/rpms/internal/platform/db"
	"github.com/rpms/rpms/internal/platform/llm"
	"github.com/rpms/rpms/internal/platform/middleware"
	"github.com/rpms/rpms/internal/platform/sandbox"
	"github.com/rpms/rpms/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "rpms-server",
		Short: "Remote patient monitoring API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				n, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Printf("Applied %d migration(s)\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 access token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			rawUser, _ := cmd.Flags().GetString("user")
			rawRole, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			userID, err := uuid.Parse(rawUser)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			role := auth.Role(strings.ToUpper(rawRole))
			if !role.Valid() {
				return fmt.Errorf("--role must be DOCTOR or PATIENT, got %q", rawRole)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			key, err := resolveSigningKey(cfg.AuthSigningKey)
			if err != nil {
				return err
			}
			if key == nil {
				return fmt.Errorf("AUTH_SIGNING_KEY is not set")
			}
			tok, err := auth.IssueToken(key, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User ID (subject)")
	cmd.Flags().String("role", "", "DOCTOR or PATIENT")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a doctor or patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := userFromFlags(cmd)
			if err != nil {
				return err
			}
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := identity.NewService(identity.NewUserRepoPG(pool)).CreateUser(ctx, u); err != nil {
					return err
				}
				fmt.Printf("Created %s %s (%s)\n", u.Role, u.Name, u.ID)
				return nil
			})
		},
	}
	addCmd.Flags().String("name", "", "Full name")
	addCmd.Flags().String("email", "", "Email address")
	addCmd.Flags().String("role", "PATIENT", "DOCTOR or PATIENT")
	addCmd.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
	addCmd.Flags().String("gender", "", "Gender")
	addCmd.Flags().String("history", "", "Medical history")

	cmd.AddCommand(addCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo doctors and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctors, _ := cmd.Flags().GetInt("doctors")
			patients, _ := cmd.Flags().GetInt("patients")
			seed, _ := cmd.Flags().GetInt64("seed")
			domain, _ := cmd.Flags().GetString("email-domain")

			seeder := sandbox.NewSeeder(sandbox.SeedConfig{
				DoctorCount:  doctors,
				PatientCount: patients,
				EmailDomain:  domain,
				Seed:         seed,
			})
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				res, err := seeder.Apply(ctx, identity.NewService(identity.NewUserRepoPG(pool)))
				if err != nil {
					return err
				}
				for _, u := range append(append([]*identity.User{}, res.Doctors...), res.Patients...) {
					fmt.Printf("%-8s %s  %s  %s\n", u.Role, u.ID, u.Email, u.Name)
				}
				return nil
			})
		},
	}
	def := sandbox.DefaultSeedConfig()
	cmd.Flags().Int("doctors", def.DoctorCount, "Number of doctors")
	cmd.Flags().Int("patients", def.PatientCount, "Number of patients")
	cmd.Flags().Int64("seed", def.Seed, "Random seed")
	cmd.Flags().String("email-domain", def.EmailDomain, "Domain for generated email addresses")
	return cmd
}

func userFromFlags(cmd *cobra.Command) (*identity.User, error) {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	role, _ := cmd.Flags().GetString("role")
	dob, _ := cmd.Flags().GetString("dob")
	gender, _ := cmd.Flags().GetString("gender")
	history, _ := cmd.Flags().GetString("history")

	u := &identity.User{Name: name, Email: email, Role: auth.Role(strings.ToUpper(role))}
	if dob != "" {
		t, err := time.Parse("2006-01-02", dob)
		if err != nil {
			return nil, fmt.Errorf("--dob must be YYYY-MM-DD: %w", err)
		}
		u.DateOfBirth = &t
	}
	if gender != "" {
		u.Gender = &gender
	}
	if history != "" {
		u.MedicalHistory = &history
	}
	return u, nil
}

func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

// resolveSigningKey decodes the hex-encoded AUTH_SIGNING_KEY. An empty value
// yields a nil key.
func resolveSigningKey(envValue string) ([]byte, error) {
	if envValue == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(envValue)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_SIGNING_KEY hex value: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// unconfiguredGenerator stands in for the model in development when no
// GEMINI_API_KEY is set. Every call fails as a collaborator error.
type unconfiguredGenerator struct{}

var errModelNotConfigured = errors.New("GEMINI_API_KEY is not configured")

func (unconfiguredGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	return llm.ContentResponse{}, errModelNotConfigured
}

// generators holds the two model roles used by the pipeline.
type generators struct {
	planner   llm.TextGenerator
	extractor llm.TextGenerator
}

func newGenerators(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (generators, func(), error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set; plan generation and extraction will fail")
		return generators{planner: unconfiguredGenerator{}, extractor: unconfiguredGenerator{}}, func() {}, nil
	}
	client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return generators{}, nil, err
	}
	temp := cfg.PlannerTemperature
	planner := client.Generator(llm.GeminiConfig{
		Model:       cfg.PlannerModel,
		Temperature: &temp,
		Timeout:     cfg.LLMTimeout(),
	})
	extractor := client.Generator(llm.GeminiConfig{
		Model:   cfg.ExtractorModel,
		Timeout: cfg.LLMTimeout(),
	})
	return generators{
		planner: llm.NewBreakerGenerator(planner, llm.BreakerConfig{
			Name: "planner", MaxFailures: cfg.LLMBreakerMaxFailures,
		}, logger),
		extractor: llm.NewBreakerGenerator(extractor, llm.BreakerConfig{
			Name: "extractor", MaxFailures: cfg.LLMBreakerMaxFailures,
		}, logger),
	}, func() { client.Close() }, nil
}

// newServer wires middleware, services and routes onto a new echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, gens generators) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))

	authMW, err := authMiddleware(cfg, logger)
	if err != nil {
		return nil, err
	}
	apiV1.Use(authMW)

	tx := db.PoolTxRunner{Pool: pool}

	identitySvc := identity.NewService(identity.NewUserRepoPG(pool))

	planner := careplan.NewLLMPlanGenerator(gens.planner, logger)
	carePlanSvc := careplan.NewService(careplan.NewCarePlanRepoPG(pool), identitySvc, planner, tx, logger)
	careplan.NewHandler(carePlanSvc).RegisterRoutes(apiV1)

	extractor := dailylog.NewLLMExtractor(gens.extractor, logger)
	dailyLogSvc := dailylog.NewService(dailylog.NewDailyLogRepoPG(pool), carePlanSvc, extractor, tx, logger)
	dailylog.NewHandler(dailyLogSvc).RegisterRoutes(apiV1)

	messagingSvc := messaging.NewService(messaging.NewMessageRepoPG(pool), carePlanSvc, logger)
	messaging.NewHandler(messagingSvc).RegisterRoutes(apiV1)

	triageSvc := triage.NewService(dailyLogSvc, carePlanSvc, identitySvc, cfg.TriageLimit, logger)
	triage.NewHandler(triageSvc).RegisterRoutes(apiV1)

	portalSvc := portal.NewService(carePlanSvc, dailyLogSvc, messagingSvc, identitySvc, time.Local)
	portal.NewHandler(portalSvc).RegisterRoutes(apiV1)

	return e, nil
}

// authMiddleware trusts development headers in development unless a token
// verification source is configured. Everywhere else bearer tokens are
// required.
func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	if cfg.RateLimitRPS <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           middleware.DefaultIdleTTL,
	}
}

func authMiddleware(cfg *config.Config, logger zerolog.Logger) (echo.MiddlewareFunc, error) {
	key, err := resolveSigningKey(cfg.AuthSigningKey)
	if err != nil {
		return nil, err
	}
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: key,
	}
	if cfg.IsDev() && key == nil && cfg.AuthIssuer == "" && cfg.AuthJWKSURL == "" {
		logger.Warn().Msg("development auth enabled: callers are taken from " + auth.DevUserHeader + " and " + auth.DevRoleHeader)
		return auth.DevAuthMiddleware(), nil
	}
	jwtCfg.JWKSURL, err = auth.ResolveJWKSURL(jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("resolve JWKS URL: %w", err)
	}
	return auth.JWTMiddleware(jwtCfg), nil
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	gens, closeGens, err := newGenerators(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create model client")
	}
	defer closeGens()

	e, err := newServer(cfg, logger, pool, gens)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
