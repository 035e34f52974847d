package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/totetrack/internal/api"
	"github.com/erazemk/totetrack/internal/auth"
	"github.com/erazemk/totetrack/internal/catalog"
	"github.com/erazemk/totetrack/internal/checkout"
	"github.com/erazemk/totetrack/internal/config"
	"github.com/erazemk/totetrack/internal/db"
	"github.com/erazemk/totetrack/internal/filestore"
	"github.com/erazemk/totetrack/internal/mail"
	"github.com/erazemk/totetrack/internal/model"
	"github.com/erazemk/totetrack/internal/ratelimit"
	"github.com/erazemk/totetrack/internal/store"
	"github.com/erazemk/totetrack/internal/tenancy"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

type flags struct {
	envFile string
	dbPath  string
	addr    string
	logPath string

	// bootstrap only
	account  string
	email    string
	fullName string
}

func main() {
	fs := flag.NewFlagSet("totetrack", flag.ContinueOnError)

	var f flags
	fs.StringVar(&f.envFile, "env", ".env", "")
	fs.StringVar(&f.envFile, "e", ".env", "")
	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")
	fs.StringVar(&f.account, "account", "", "")
	fs.StringVar(&f.email, "email", "", "")
	fs.StringVar(&f.fullName, "name", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: totetrack [flags] [serve|bootstrap]

Commands:
  serve                   run the HTTP server (default)
  bootstrap               create an account and its superuser, then exit

Flags:
  -e, -env <path>         .env file to load (default: .env, ignored if missing)
  -d, -db <path>          SQLite database path (env TOTETRACK_DB)
  -a, -addr <host:port>   listen address (env TOTETRACK_ADDR)
  -l, -log <path>         log file path (env TOTETRACK_LOG)
  -account <name>         bootstrap: account name
  -email <address>        bootstrap: superuser email
  -name <full name>       bootstrap: superuser full name
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	command := "serve"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	if fs.NArg() > 1 || (command != "serve" && command != "bootstrap") {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(fs.NArg()-1))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(f.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.logPath != "" {
		cfg.LogPath = f.logPath
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Without SECRET_KEY, use a secret persisted in the database.
	secret := cfg.SecretKey
	if secret == "" {
		secret, err = store.GetSigningSecret(context.Background(), database)
		if err != nil {
			slog.Error("failed to get signing secret", "error", err)
			os.Exit(1)
		}
	}

	credentials := &auth.Service{
		DB:          database,
		Secret:      secret,
		AccessTTL:   cfg.AccessTTL(),
		RecoveryTTL: cfg.RecoveryTTL(),
	}

	if command == "bootstrap" {
		if err := bootstrap(database, credentials, f); err != nil {
			slog.Error("bootstrap failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(database, credentials, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped, closing database")
}

// bootstrap creates an account whose superuser gets a generated password.
func bootstrap(database *sql.DB, credentials *auth.Service, f flags) error {
	if f.account == "" || f.email == "" {
		return errors.New("-account and -email are required")
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	users := &tenancy.Manager{DB: database, Credentials: credentials}
	account, owner, err := users.BootstrapAccount(context.Background(), model.AccountCreate{
		Name:          f.account,
		OwnerEmail:    f.email,
		OwnerFullName: f.fullName,
		OwnerPassword: password,
	})
	if err != nil {
		return err
	}

	printInitResult(account, owner, password)
	return nil
}

// serve wires the components together and runs the HTTP server until a
// shutdown signal arrives.
func serve(database *sql.DB, credentials *auth.Service, cfg *config.Config) error {
	media, err := filestore.NewDir(cfg.MediaDir)
	if err != nil {
		return err
	}

	users := &tenancy.Manager{
		DB:          database,
		Credentials: credentials,
		Files:       media,
		PublicURL:   cfg.PublicURL,
	}
	sender := mail.NewSender(cfg.SMTP)
	if sender.Enabled() {
		users.Mailer = sender
	} else {
		slog.Warn("SMTP_HOST not set, recovery emails disabled")
	}

	deps := api.Deps{
		Users:     users,
		Catalog:   &catalog.Catalog{DB: database, Files: media},
		Ledger:    &checkout.Ledger{DB: database},
		Media:     media,
		RateLimit: cfg.LoginRateLimit,
	}

	redisClient, err := ratelimit.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	switch {
	case err != nil:
		slog.Warn("redis unavailable, rate limiting disabled", "error", err)
	case redisClient == nil:
		slog.Info("REDIS_ADDR not set, rate limiting disabled")
	default:
		defer redisClient.Close()
		deps.Limiter = &ratelimit.RedisLimiter{
			Client: redisClient,
			Prefix: "totetrack:ratelimit",
			Limit:  cfg.LoginRateLimit,
			Window: cfg.LoginRateWindow,
		}
		slog.Info("rate limiting enabled", "limit", cfg.LoginRateLimit, "window", cfg.LoginRateWindow)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(api.NewRouter(deps)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// printInitResult prints the bootstrap result to stdout.
func printInitResult(account *model.Account, owner *model.User, password string) {
	fmt.Printf("Account created: %s\n", account.Name)
	fmt.Println()
	fmt.Println("Superuser created:")
	fmt.Printf("  Email:    %s\n", owner.Email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It is not stored in plain text.")
	fmt.Println("It can be changed after logging in, or reset by email.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
