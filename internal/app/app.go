package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	firebase "firebase.google.com/go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"google.golang.org/api/option"

	"tourism-chat/handler"
	"tourism-chat/internal/config"
	"tourism-chat/internal/identity"
	"tourism-chat/internal/integrations/paramstore"
	"tourism-chat/internal/llm"
	"tourism-chat/internal/repository"
	"tourism-chat/internal/usecase"
)

// App is the wired service shared by cmd/server and cmd/lambda.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Handler *handler.Handler

	closers []func() error
}

// awsLoader loads the AWS SDK config at most once.
type awsLoader struct {
	once sync.Once
	cfg  aws.Config
	err  error
}

func (l *awsLoader) load(ctx context.Context) (aws.Config, error) {
	l.once.Do(func() {
		l.cfg, l.err = awsconfig.LoadDefaultConfig(ctx)
		if l.err != nil {
			l.err = fmt.Errorf("app: load AWS config: %w", l.err)
		}
	})
	return l.cfg, l.err
}

// LoadConfig reads configuration from CONFIG_PATH and the environment,
// resolves SSM secret references and validates the result.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	return loadConfig(ctx, os.Getenv("CONFIG_PATH"), &awsLoader{})
}

func loadConfig(ctx context.Context, path string, loader *awsLoader) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.NeedsParamStore() {
		awsCfg, err := loader.load(ctx)
		if err != nil {
			return nil, err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("app: paramstore: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, params); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New wires the verifier, store, completion client, chat service and handler.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	fbApp, err := firebase.NewApp(ctx,
		&firebase.Config{DatabaseURL: cfg.Firebase.DatabaseURL},
		option.WithCredentialsJSON([]byte(cfg.Firebase.Credentials)),
	)
	if err != nil {
		return nil, fmt.Errorf("app: firebase: %w", err)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: firebase auth: %w", err)
	}
	verifier, err := identity.NewFirebaseVerifier(authClient)
	if err != nil {
		return nil, fmt.Errorf("app: verifier: %w", err)
	}

	store, err := a.openStore(ctx, fbApp, &awsLoader{})
	if err != nil {
		return nil, err
	}

	model, err := llm.NewModel(ctx, llm.Config{
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Name,
		APIKey:   cfg.Model.APIKey,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	completer, err := llm.NewClient(model, cfg.Model.Name, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	svc, err := newChatService(cfg, verifier, store, completer, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: handler: %w", err)
	}
	a.Handler = h

	logger.Info("service wired",
		"store", cfg.Store.Backend,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
		"provider_error_policy", cfg.Chat.ProviderErrorPolicy,
	)
	return a, nil
}

func newChatService(cfg *config.Config, v usecase.Verifier, s usecase.TurnStore, c usecase.Completer, logger *slog.Logger) (*usecase.ChatService, error) {
	policy, err := usecase.ParseProviderErrorPolicy(cfg.Chat.ProviderErrorPolicy)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	svc, err := usecase.NewChatService(v, s, c, usecase.Options{
		MaxHistoryTurns:     cfg.Chat.MaxHistoryTurns,
		SerializePerUser:    cfg.Chat.SerializePerUser,
		ProviderErrorPolicy: policy,
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("app: chat service: %w", err)
	}
	return svc, nil
}

// openStore builds the configured history backend. fbApp is only used by the
// firebase backend.
func (a *App) openStore(ctx context.Context, fbApp *firebase.App, loader *awsLoader) (repository.HistoryStore, error) {
	cfg := a.Config
	switch cfg.Store.Backend {
	case config.BackendFirebase:
		if fbApp == nil {
			return nil, errors.New("app: firebase store needs a firebase app")
		}
		dbClient, err := fbApp.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: firebase database: %w", err)
		}
		s, err := repository.NewFirebaseStore(dbClient)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return s, nil

	case config.BackendDynamoDB:
		awsCfg, err := loader.load(ctx)
		if err != nil {
			return nil, err
		}
		s, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return s, nil

	case config.BackendSQLite:
		s, err := repository.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil

	default:
		return nil, fmt.Errorf("app: unsupported store backend %q", cfg.Store.Backend)
	}
}

// Close releases resources opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
