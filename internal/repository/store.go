package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tourism-chat/internal/domain"
)

// HistoryStore is the per-user append-only conversation log consumed by the chat use case.
type HistoryStore interface {
	Append(ctx context.Context, userID string, turn domain.Turn) error
	ReadAll(ctx context.Context, userID string) (domain.Conversation, error)
}

var errEmptyUserID = errors.New("user id must not be empty")

func validateAppend(op, userID string, turn domain.Turn) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("repository: %s: %w", op, errEmptyUserID)
	}
	if !turn.Role.Valid() {
		return fmt.Errorf("repository: %s: invalid role %q", op, turn.Role)
	}
	return nil
}

func validateRead(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("repository: %s: %w", op, errEmptyUserID)
	}
	return nil
}
