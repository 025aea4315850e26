// Command payoutsd serves the payout orchestration API over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"
	payouts "github.com/goliatone/go-payouts"
	"github.com/goliatone/go-payouts/adapters/amqp"
	"github.com/goliatone/go-payouts/adapters/gocommand"
	"github.com/goliatone/go-payouts/adapters/gojob"
	"github.com/goliatone/go-payouts/adapters/gologger"
	"github.com/goliatone/go-payouts/core"
	"github.com/goliatone/go-payouts/httpapi"
	payoutmigrations "github.com/goliatone/go-payouts/migrations"
	cachestore "github.com/goliatone/go-payouts/store/cache"
	sqlstore "github.com/goliatone/go-payouts/store/sql"
	"github.com/goliatone/go-payouts/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// refreshMaxAttempts bounds status polling of one payout to about two hours
// at the default poll interval.
const refreshMaxAttempts = 240

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookup, err := processLookup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "payoutsd: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "seal" {
		if err := seal(os.Stdin, os.Stdout, lookup); err != nil {
			fmt.Fprintf(os.Stderr, "payoutsd: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, lookup); err != nil {
		fmt.Fprintf(os.Stderr, "payoutsd: %v\n", err)
		os.Exit(1)
	}
}

// processLookup reads PAYOUTS_ENV_FILE, or .env when present, beneath the
// process environment.
func processLookup() (lookupFunc, error) {
	if path, ok := os.LookupEnv(envPrefix + "ENV_FILE"); ok && strings.TrimSpace(path) != "" {
		return withEnvFile(os.LookupEnv, strings.TrimSpace(path), true)
	}
	return withEnvFile(os.LookupEnv, ".env", false)
}

func run(ctx context.Context, lookup lookupFunc) error {
	daemonCfg, err := loadDaemonConfig(lookup)
	if err != nil {
		return err
	}
	logger := newProcessLogger(os.Stdout, daemonCfg.Debug)

	configProvider := core.NewCfgxConfigProvider(envConfigLoader{lookup: lookup})
	serviceCfg, err := configProvider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return fmt.Errorf("load service config: %w", err)
	}

	client, sqlDB, err := openPersistence(ctx, daemonCfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
		sqlstore.WithUpdateRetries(serviceCfg.Stores.UpdateRetries),
	)
	if err != nil {
		return fmt.Errorf("sql stores: %w", err)
	}
	queueDialect, err := payoutmigrations.DialectForDriver(daemonCfg.DBDriver)
	if err != nil {
		return err
	}
	jobs, err := gojob.NewSQLQueue(ctx, sqlDB, queueDialect, gojob.RetryPolicy{
		MaxAttempts:     refreshMaxAttempts,
		DeadLetterOnMax: true,
	})
	if err != nil {
		return err
	}

	registry := core.NewProviderRegistry()
	providers, err := payouts.BuiltInProviders(payouts.ProviderConfigs{
		Rampa:    daemonCfg.Rampa,
		Corridor: daemonCfg.Corridor,
	})
	if err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if err := payouts.RegisterProviders(registry, providers...); err != nil {
		return err
	}
	if len(providers) == 0 {
		logger.Warn("no payout providers configured")
	}

	options := append(factory.ServiceOptions(),
		payouts.WithLogger(logger),
		payouts.WithConfigProvider(configProvider),
		payouts.WithRegistry(registry),
		payouts.WithJobEnqueuer(jobs),
	)
	if serviceCfg.Health.CacheTTL > 0 {
		healthCache, err := cachestore.NewHealthCacheWithTTL(serviceCfg.Health.CacheTTL)
		if err != nil {
			return err
		}
		options = append(options, payouts.WithHealthCache(healthCache))
	}

	if daemonCfg.AMQPURL != "" {
		publisher, err := amqp.Dial(amqp.Config{
			URL:      daemonCfg.AMQPURL,
			Exchange: daemonCfg.AMQPExchange,
		}, amqp.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		options = append(options, payouts.WithEventPublisher(publisher))
	}

	svc, err := payouts.NewService(serviceCfg, options...)
	if err != nil {
		return fmt.Errorf("new service: %w", err)
	}
	facade, err := payouts.NewFacade(svc)
	if err != nil {
		return err
	}

	bus := gocommand.NewBus(command.NewRegistry())
	if err := bus.MountFacade(facade); err != nil {
		return err
	}
	defer bus.Close()
	if err := bus.Initialize(); err != nil {
		return fmt.Errorf("command registry: %w", err)
	}

	handlers, err := httpapi.NewHandlers(facade, webhooks.NewProcessor(svc, registry), httpapi.WithLogger(logger))
	if err != nil {
		return err
	}

	if daemonCfg.HealthSweep != "" {
		sweep, err := newHealthSweep(daemonCfg.HealthSweep, svc, logger, 30*time.Second)
		if err != nil {
			return fmt.Errorf("health sweep schedule %q: %w", daemonCfg.HealthSweep, err)
		}
		sweep.Start()
		defer sweep.Stop()
	}

	_, jobLogger := gologger.Resolve("payouts.jobs", nil, logger)
	runner := core.NewStatusRefreshRunner(svc, gologger.NewJobHook(jobLogger))
	go func() {
		if err := runner.Run(ctx, jobs); err != nil {
			logger.Error("status refresh runner stopped", "error", err)
		}
	}()

	return serve(ctx, daemonCfg, handlers.Routes(), logger)
}

// seal reads one credential from in and writes its sealed form to out.
func seal(in io.Reader, out io.Writer, lookup lookupFunc) error {
	sealer, err := newSealer(lookup)
	if err != nil {
		return err
	}
	if sealer == nil {
		return fmt.Errorf("%sSECRET_KEY is required to seal credentials", envPrefix)
	}
	raw, err := io.ReadAll(io.LimitReader(in, 64<<10))
	if err != nil {
		return err
	}
	sealed, err := sealer.Seal(strings.TrimSpace(string(raw)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}

func serve(ctx context.Context, cfg daemonConfig, handler http.Handler, logger glog.Logger) error {
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("payoutsd listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("payoutsd shutting down")
	return server.Shutdown(shutdownCtx)
}

// openPersistence opens the database, applies the payout schema for the
// configured driver and returns the bun client with its *sql.DB.
func openPersistence(ctx context.Context, cfg daemonConfig) (*persistence.Client, *sql.DB, error) {
	migrationDialect, err := payoutmigrations.DialectForDriver(cfg.DBDriver)
	if err != nil {
		return nil, nil, err
	}
	var dialect schema.Dialect = sqlitedialect.New()
	if migrationDialect == payoutmigrations.DialectPostgres {
		dialect = pgdialect.New()
	}

	sqlDB, err := sql.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if migrationDialect == payoutmigrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{daemonConfig: cfg}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("persistence client: %w", err)
	}

	err = payoutmigrations.Register(ctx, migrationDialect, func(_ context.Context, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return client, sqlDB, nil
}

// persistenceConfig exposes daemon settings through the go-persistence-bun
// config contract.
type persistenceConfig struct {
	daemonConfig
}

func (c persistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c persistenceConfig) GetDriver() string {
	return c.DBDriver
}

func (c persistenceConfig) GetServer() string {
	return c.DSN
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "payoutsd"
}

