package repository

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/db"

	"tourism-chat/internal/domain"
)

// chatRecord is the JSON shape stored under users/{userId}/chat.
type chatRecord struct {
	Role  string `json:"role"`
	Parts string `json:"parts"`
}

// rtdb is the subset of the Realtime Database used by FirebaseStore.
type rtdb interface {
	Push(ctx context.Context, path string, v any) error
	GetOrdered(ctx context.Context, path string) ([]db.QueryNode, error)
}

type firebaseRTDB struct {
	client *db.Client
}

func (f firebaseRTDB) Push(ctx context.Context, path string, v any) error {
	_, err := f.client.NewRef(path).Push(ctx, v)
	return err
}

func (f firebaseRTDB) GetOrdered(ctx context.Context, path string) ([]db.QueryNode, error) {
	return f.client.NewRef(path).OrderByKey().GetOrdered(ctx)
}

// FirebaseStore keeps conversations in the Firebase Realtime Database. Push keys are
// generated from the server clock, so ordering by key is chronological.
type FirebaseStore struct {
	db rtdb
}

// NewFirebaseStore wraps a Realtime Database client.
func NewFirebaseStore(client *db.Client) (*FirebaseStore, error) {
	if client == nil {
		return nil, errors.New("repository: database client must not be nil")
	}
	return &FirebaseStore{db: firebaseRTDB{client: client}}, nil
}

// chatPath is the Realtime Database location of a user's conversation.
func chatPath(userID string) string {
	return "users/" + userID + "/chat"
}

func (s *FirebaseStore) Append(ctx context.Context, userID string, turn domain.Turn) error {
	if err := validateAppend("Append", userID, turn); err != nil {
		return err
	}
	rec := chatRecord{Role: string(turn.Role), Parts: turn.Text}
	if err := s.db.Push(ctx, chatPath(userID), rec); err != nil {
		return fmt.Errorf("repository: Append push: %w", err)
	}
	return nil
}

func (s *FirebaseStore) ReadAll(ctx context.Context, userID string) (domain.Conversation, error) {
	if err := validateRead("ReadAll", userID); err != nil {
		return nil, err
	}
	nodes, err := s.db.GetOrdered(ctx, chatPath(userID))
	if err != nil {
		return nil, fmt.Errorf("repository: ReadAll get: %w", err)
	}

	conv := make(domain.Conversation, 0, len(nodes))
	for _, n := range nodes {
		var rec chatRecord
		if err := n.Unmarshal(&rec); err != nil {
			return nil, fmt.Errorf("repository: ReadAll unmarshal %q: %w", n.Key(), err)
		}
		role := domain.Role(rec.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("repository: ReadAll: record %q has unknown role %q", n.Key(), rec.Role)
		}
		conv = append(conv, domain.Turn{Role: role, Text: rec.Parts})
	}
	return conv, nil
}
