package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"genaiapps/internal/api"
	"genaiapps/internal/config"
	"genaiapps/internal/dynamo"
	"genaiapps/internal/paramstore"
	"genaiapps/internal/redis"
	"genaiapps/internal/storage"
	"genaiapps/internal/trace"
)

const shutdownTimeout = 5 * time.Second

// LoadConfig reads .env, the optional JSON config file and the environment,
// then resolves ssm: references through the parameter store.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(os.Getenv("GENAIAPPS_ENV_FILE")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(os.Getenv("GENAIAPPS_CONFIG"))
	if err != nil {
		return nil, err
	}
	if !cfg.HasSecretRefs() {
		return cfg, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	store, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx, store); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tracing bundles the tracer built from config with the resources it holds.
type Tracing struct {
	Tracer *trace.Tracer
	// Runs reads back recorded runs; nil when no configured sink supports it.
	Runs    api.RunLister
	closers []func() error
}

// Close waits for pending trace writes, then releases sink connections.
func (t *Tracing) Close() {
	if t == nil {
		return
	}
	t.Tracer.Wait()
	for _, c := range t.closers {
		if err := c(); err != nil {
			log.Printf("tracing: close sink: %v", err)
		}
	}
}

// NewTracing builds one sink per configured name. Disabled tracing yields an
// empty Tracing whose nil Tracer records nothing.
func NewTracing(ctx context.Context, cfg *config.Config) (*Tracing, error) {
	t := &Tracing{}
	if !cfg.Tracing.Enabled {
		return t, nil
	}

	var (
		sinks  trace.MultiSink
		awsCfg *aws.Config
	)
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("load aws config: %w", err)
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}
	addLister := func(l api.RunLister) {
		if t.Runs == nil {
			t.Runs = l
		}
	}

	for _, name := range cfg.Tracing.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, trace.NewLogSink(log.Default()))
		case config.SinkLangSmith:
			s, err := trace.NewLangSmithSink(cfg.Tracing.Endpoint, cfg.Tracing.APIKey, nil)
			if err != nil {
				t.Close()
				return nil, err
			}
			sinks = append(sinks, s)
		case config.SinkRedis:
			client, err := redis.NewRedisClient(cfg)
			if err != nil {
				t.Close()
				return nil, fmt.Errorf("tracing: redis: %w", err)
			}
			t.closers = append(t.closers, client.Close)
			s, err := redis.NewRunSink(client, cfg.Tracing.RedisMaxRuns)
			if err != nil {
				t.Close()
				return nil, err
			}
			sinks = append(sinks, s)
			addLister(s)
		case config.SinkSQL:
			s, db, err := openRunStore(cfg)
			if err != nil {
				t.Close()
				return nil, fmt.Errorf("tracing: sql: %w", err)
			}
			t.closers = append(t.closers, db.Close)
			sinks = append(sinks, s)
			addLister(s)
		case config.SinkDynamoDB:
			c, err := loadAWS()
			if err != nil {
				t.Close()
				return nil, err
			}
			s, err := dynamo.New(awsdynamodb.NewFromConfig(c), cfg.Tracing.DynamoTable)
			if err != nil {
				t.Close()
				return nil, err
			}
			sinks = append(sinks, s)
			addLister(s)
		default:
			t.Close()
			return nil, fmt.Errorf("tracing: unknown sink %q", name)
		}
	}

	if len(sinks) == 1 {
		t.Tracer = trace.New(cfg.Tracing.Project, sinks[0]).Async()
	} else {
		t.Tracer = trace.New(cfg.Tracing.Project, sinks).Async()
	}
	log.Printf("tracing enabled: project=%s sinks=%v", cfg.Tracing.Project, cfg.Tracing.Sinks)
	return t, nil
}

func openRunStore(cfg *config.Config) (*storage.RunStore, *sql.DB, error) {
	dbType := cfg.Tracing.Database
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.Migrate(db, dbType); err != nil {
		db.Close()
		return nil, nil, err
	}
	store, err := storage.NewRunStore(db, dbType)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// ServerAddress picks the configured address or fallback.
func ServerAddress(cfg *config.Config, fallback string) string {
	if cfg.BasicConfig.ServerAddress != "" {
		return cfg.BasicConfig.ServerAddress
	}
	return fallback
}

// Serve runs handler on addr until ctx is done or SIGINT/SIGTERM arrives, then
// drains in-flight requests.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
