package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, e := range envs {
			t.Setenv(e, "")
			require.NoError(t, os.Unsetenv(e))
		}
	}
}

func validEnv(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "AIza-test")
	t.Setenv("FIREBASE_CREDENTIALS", `{"type":"service_account"}`)
	t.Setenv("FIREBASE_DATABASE_URL", "https://tourism.firebaseio.com")
}

func TestLoad_Defaults(t *testing.T) {
	validEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "googleai", cfg.Model.Provider)
	require.Equal(t, "gemini-2.0-pro-exp", cfg.Model.Name)
	require.Equal(t, "AIza-test", cfg.Model.APIKey)
	require.Equal(t, BackendFirebase, cfg.Store.Backend)
	require.Equal(t, 5000, cfg.Server.Port)
	require.Equal(t, 0, cfg.Chat.MaxHistoryTurns)
	require.True(t, cfg.Chat.SerializePerUser)
	require.Equal(t, "inline", cfg.Chat.ProviderErrorPolicy)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Log.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("MODEL_API_KEY", "primary")
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("CHAT_SERIALIZE_PER_USER", "false")
	t.Setenv("CHAT_MAX_HISTORY_TURNS", "40")
	t.Setenv("CHAT_PROVIDER_ERROR_POLICY", "status")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "primary", cfg.Model.APIKey)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, BackendSQLite, cfg.Store.Backend)
	require.False(t, cfg.Chat.SerializePerUser)
	require.Equal(t, 40, cfg.Chat.MaxHistoryTurns)
	require.Equal(t, "status", cfg.Chat.ProviderErrorPolicy)
}

func TestLoad_YAMLFile(t *testing.T) {
	validEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  provider: anthropic
  name: claude-test
store:
  backend: dynamodb
  dynamodb_table: chat-turns
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "anthropic", cfg.Model.Provider)
	require.Equal(t, "chat-turns", cfg.Store.DynamoDBTable)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate_ReportsMissingSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	require.ErrorContains(t, err, "model.api_key")
	require.ErrorContains(t, err, "firebase.credentials")
	require.ErrorContains(t, err, "firebase.database_url")
}

func TestValidate_BackendSpecificFields(t *testing.T) {
	validEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store.Backend = BackendDynamoDB
	require.ErrorContains(t, cfg.Validate(), "store.dynamodb_table")

	cfg.Store.Backend = "redis"
	require.ErrorContains(t, cfg.Validate(), "not supported")

	cfg.Store.Backend = BackendSQLite
	cfg.Firebase.DatabaseURL = ""
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	validEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Chat.ProviderErrorPolicy = "retry"
	cfg.Log.Level = "loud"
	cfg.Model.Provider = "cohere"

	err = cfg.Validate()
	require.ErrorContains(t, err, "server.port")
	require.ErrorContains(t, err, "provider error policy")
	require.ErrorContains(t, err, "log.level")
	require.ErrorContains(t, err, "model.provider")
}

type fakeGetter struct {
	vals map[string]string
	err  error
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.vals[name], nil
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{
		Model:    ModelConfig{APIKey: "ssm:/chat/google-api-key"},
		Firebase: FirebaseConfig{Credentials: "ssm:/chat/firebase"},
	}
	require.True(t, cfg.NeedsParamStore())
	require.Error(t, cfg.ResolveSecrets(context.Background(), nil))

	g := &fakeGetter{vals: map[string]string{
		"/chat/google-api-key": `{"token":"AIza-from-ssm"}`,
		"/chat/firebase":       `{"type":"service_account"}`,
	}}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), g))
	require.Equal(t, "AIza-from-ssm", cfg.Model.APIKey)
	require.Equal(t, `{"type":"service_account"}`, cfg.Firebase.Credentials)
	require.False(t, cfg.NeedsParamStore())
}

func TestResolveSecrets_PlainValuesSkipLookup(t *testing.T) {
	cfg := &Config{Model: ModelConfig{APIKey: "plain"}, Firebase: FirebaseConfig{Credentials: "{}"}}
	require.NoError(t, cfg.ResolveSecrets(context.Background(), nil))
	require.Equal(t, "plain", cfg.Model.APIKey)
}

func TestResolveSecrets_GetterError(t *testing.T) {
	cfg := &Config{Model: ModelConfig{APIKey: "ssm:/k"}}
	err := cfg.ResolveSecrets(context.Background(), &fakeGetter{err: errors.New("AccessDeniedException")})
	require.ErrorContains(t, err, "model.api_key")
	require.ErrorContains(t, err, "AccessDeniedException")
}
