package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/britebottle/fleet/internal/server"
	"github.com/britebottle/fleet/internal/service"
	"github.com/britebottle/fleet/internal/sim"
	"github.com/britebottle/fleet/internal/store"
	"github.com/britebottle/fleet/internal/telemetry"
)

const banner = `
 ___      _ _       ___     _   _   _
| _ )_ _ (_) |_ ___| _ ) ___| |_| |_| |___
| _ \ '_|| |  _/ -_) _ \/ _ \  _|  _| / -_)
|___/_|  |_|\__\___|___/\___/\__|\__|_\___|
`

func newServeCmd() *cobra.Command {
	var (
		port       int
		host       string
		dev        bool
		background bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the fleet API server",
		Long:  "Start the HTTP server that serves the fleet APIs and ingests device telemetry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				return runServeBackground()
			}
			if !cmd.Flags().Changed("host") {
				host = ""
			}
			if !cmd.Flags().Changed("port") {
				port = 0
			}
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")
	cmd.Flags().BoolVar(&background, "background", false, "Run the server as a detached background process")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

// runServeBackground re-executes the current binary detached from the
// terminal, with output redirected to the log file.
func runServeBackground() error {
	args := []string{"serve"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if dataDir != "" {
		args = append(args, "--data-dir", dataDir)
	}

	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(os.Args[0], args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start background server: %w", err)
	}
	if err := writePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	fmt.Printf("Server started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	fmt.Println("  Stop with: fleet stop")
	return nil
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Explicit flags win over the config file.
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// Set up logger
	logLevel := slog.LevelInfo
	if dev || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	// 1. Open the document store (seeds a fresh document on first boot)
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("document store opened", "path", cfg.Store.Path)

	// 2. Reconcile the document before accepting any request. A failed
	// reconciliation aborts startup: serving with half-migrated users would
	// hand out wrong permissions.
	if err := st.Reconcile(cfg.Auth.SeedAdminEmail, logger); err != nil {
		return fmt.Errorf("reconcile store: %w", err)
	}

	// 3. Build the domain services
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = viper.GetString("auth.jwt_secret")
	}
	if jwtSecret == "" {
		jwtSecret = "fleet-dev-secret-change-me"
		logger.Warn("no JWT secret configured, using development default")
	}
	tokenTTL := parseDurationOr(cfg.Auth.JWTExpiry, 24*time.Hour)

	svc := server.Services{
		Auth:      service.NewAuthService(st, jwtSecret, tokenTTL),
		Lifecycle: service.NewLifecycle(st),
		Fleet:     service.NewFleet(st),
		Events:    service.NewEvents(st),
		Ingest:    service.NewIngest(st),
	}

	// 4. First-run hint
	if cfg.Auth.SeedAdminEmail == "" {
		users, err := svc.Lifecycle.ListUsers(context.Background())
		if err == nil && len(users) == 0 {
			logger.Warn("no user accounts found - run: fleet admin create")
		}
	}

	// 5. Telemetry heartbeat (anonymous counts only). The notice goes out
	// once: an instance without a recorded ID has never reported before.
	_, instanceErr := st.GetSetting(context.Background(), "instance_id")
	firstReport := errors.Is(instanceErr, store.ErrNotFound)
	tracker := telemetry.New(context.Background(), st, func() telemetry.Properties {
		return gatherTelemetry(st)
	})
	if tracker != nil && firstReport {
		telemetry.PrintNotice(os.Stderr)
	}
	tracker.Start()
	defer tracker.Shutdown()

	// 6. Optional built-in simulator
	if cfg.Simulator.Enabled {
		ids, err := crusherIDs(st)
		if err != nil {
			logger.Warn("simulator disabled, cannot list crushers", "error", err)
		} else {
			simulator := sim.New(sim.Config{
				BaseURL:    cfg.Simulator.BaseURL,
				APIKey:     cfg.Auth.APIKey,
				Interval:   parseDurationOr(cfg.Simulator.Interval, 5*time.Second),
				CrusherIDs: ids,
			}, logger)
			if err := simulator.Start(); err != nil {
				logger.Warn("simulator failed to start", "error", err)
			} else {
				defer simulator.Stop()
			}
		}
	}

	// 7. Build and start HTTP server
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: parseDurationOr(cfg.Server.ShutdownTimeout, 30*time.Second),
		CORSOrigins:     cfg.Server.CORS.Origins,
		RatePerMinute:   cfg.Server.RateLimit.PerMinute,
		LoginPerMinute:  cfg.Server.RateLimit.LoginPerMinute,
		IngestAPIKey:    cfg.Auth.APIKey,
		Version:         versionString(),
	}
	if len(srvCfg.CORSOrigins) == 0 {
		srvCfg.CORSOrigins = []string{"*"}
	}

	srv := server.New(srvCfg, svc, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write pid file", "error", err)
	}
	defer removePID()

	fmt.Printf("→ BriteBottle Fleet %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// gatherTelemetry collects anonymous counts for the heartbeat.
func gatherTelemetry(st *store.Store) telemetry.Properties {
	props := telemetry.Properties{
		Version:   versionString(),
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	st.View(func(doc *store.Document) error {
		props.Crushers = len(doc.Crushers)
		props.Users = len(doc.Users)
		props.Roles = len(doc.Roles)
		props.Events = len(doc.Events)
		return nil
	})
	return props
}

func crusherIDs(st *store.Store) ([]string, error) {
	var ids []string
	err := st.View(func(doc *store.Document) error {
		for i := range doc.Crushers {
			ids = append(ids, doc.Crushers[i].ID)
		}
		return nil
	})
	return ids, err
}
