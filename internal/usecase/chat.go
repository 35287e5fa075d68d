package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tourism-chat/internal/domain"
	"tourism-chat/internal/identity"
	"tourism-chat/internal/llm"
)

type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

type TurnStore interface {
	Append(ctx context.Context, userID string, turn domain.Turn) error
	ReadAll(ctx context.Context, userID string) (domain.Conversation, error)
}

type Completer interface {
	Generate(ctx context.Context, prompt string) llm.Result
}

// ProviderErrorPolicy decides what a failed completion turns into.
type ProviderErrorPolicy string

const (
	// PolicyInline answers with the error text as an ordinary reply and stores it as the model turn.
	PolicyInline ProviderErrorPolicy = "inline"
	// PolicyStatus fails the request with ErrorCompletion and stores no model turn.
	PolicyStatus ProviderErrorPolicy = "status"
)

// ParseProviderErrorPolicy maps a configuration value to a policy.
func ParseProviderErrorPolicy(s string) (ProviderErrorPolicy, error) {
	switch p := ProviderErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyInline, PolicyStatus:
		return p, nil
	case "":
		return PolicyInline, nil
	default:
		return "", fmt.Errorf("usecase: unknown provider error policy %q", s)
	}
}

type Options struct {
	// MaxHistoryTurns caps the turns included in the prompt; <= 0 includes all.
	MaxHistoryTurns     int
	SerializePerUser    bool
	ProviderErrorPolicy ProviderErrorPolicy
	Logger              *slog.Logger
}

type ChatService struct {
	verifier   Verifier
	store      TurnStore
	completer  Completer
	maxHistory int
	policy     ProviderErrorPolicy
	locks      *userLocks
	logger     *slog.Logger
}

type ChatInput struct {
	Credential string
	// Message is nil when the request body carried no usable message field.
	Message *string
}

type ChatOutput struct {
	Response string
	UserID   string
}

func NewChatService(v Verifier, s TurnStore, c Completer, opts Options) (*ChatService, error) {
	if v == nil {
		return nil, errors.New("usecase: verifier must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: turn store must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	policy := opts.ProviderErrorPolicy
	if policy == "" {
		policy = PolicyInline
	}
	if policy != PolicyInline && policy != PolicyStatus {
		return nil, fmt.Errorf("usecase: unknown provider error policy %q", policy)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc := &ChatService{
		verifier:   v,
		store:      s,
		completer:  c,
		maxHistory: opts.MaxHistoryTurns,
		policy:     policy,
		logger:     logger,
	}
	if opts.SerializePerUser {
		svc.locks = newUserLocks()
	}
	return svc, nil
}

// Chat runs one request: verify, append the user turn, read the history,
// compose, complete, append the model turn. Side effects already performed
// are not rolled back when a later step fails.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	start := time.Now()
	f := newFlow(s.logger)

	userID, err := s.verifier.Verify(ctx, in.Credential)
	if err != nil {
		_ = f.fire(ctx, triggerRejected)
		if errors.Is(err, identity.ErrMissingCredential) {
			return ChatOutput{}, newError(ErrorUnauthorized, "missing_credential", err)
		}
		return ChatOutput{}, newError(ErrorInvalidCredential, "invalid_credential", err)
	}
	f.userID = userID
	if err := f.fire(ctx, triggerAuthenticated); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}

	if in.Message == nil || strings.TrimSpace(*in.Message) == "" {
		return ChatOutput{}, s.fail(ctx, f, ErrorMalformedRequest, "missing_message", nil)
	}
	message := *in.Message

	if s.locks != nil {
		unlock := s.locks.lock(userID)
		defer unlock()
	}

	if err := s.store.Append(ctx, userID, domain.UserTurn(message)); err != nil {
		return ChatOutput{}, s.fail(ctx, f, ErrorStoreUnavailable, "store_append_user_error", err)
	}
	history, err := s.store.ReadAll(ctx, userID)
	if err != nil {
		return ChatOutput{}, s.fail(ctx, f, ErrorStoreUnavailable, "store_read_error", err)
	}
	if err := f.fire(ctx, triggerHistoryLoaded); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}

	prompt := Compose(Window(history, s.maxHistory), message)
	if err := f.fire(ctx, triggerPromptBuilt); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}

	res := s.completer.Generate(ctx, prompt)
	if res.Failed() && s.policy == PolicyStatus {
		return ChatOutput{}, s.fail(ctx, f, ErrorCompletion, "completion_error", res.Err)
	}
	reply := res.Reply()
	if err := f.fire(ctx, triggerCompleted); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}

	if err := s.store.Append(ctx, userID, domain.ModelTurn(reply)); err != nil {
		return ChatOutput{}, s.fail(ctx, f, ErrorStoreUnavailable, "store_append_model_error", err)
	}
	if err := f.fire(ctx, triggerPersisted); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}
	if err := f.fire(ctx, triggerResponded); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "flow_transition", err)
	}

	s.logger.Info("chat answered",
		"user", userID,
		"history_turns", len(history),
		"completion_failed", res.Failed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ChatOutput{Response: reply, UserID: userID}, nil
}

func (s *ChatService) fail(ctx context.Context, f *flow, code ErrorCode, reason string, err error) error {
	_ = f.fire(ctx, triggerFailed)
	s.logger.Warn("chat failed", "user", f.userID, "code", code, "reason", reason, "error", err)
	return newError(code, reason, err)
}
