package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RefPrefix marks a configuration value that names an SSM parameter
// instead of holding the secret itself, e.g. "ssm:/tourism-chat/google-api-key".
const RefPrefix = "ssm:"

// tokenPayload is the JSON shape used for single-token parameters.
type tokenPayload struct {
	Token string `json:"token"`
}

// IsRef reports whether value is a parameter reference.
func IsRef(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), RefPrefix)
}

// Resolve returns value unchanged unless it is a parameter reference, in
// which case the parameter is fetched. A {"token": "..."} payload is
// unwrapped; any other value (including a JSON service account) is returned
// as stored.
func Resolve(ctx context.Context, getter Getter, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	if getter == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), RefPrefix))
	if name == "" {
		return "", errors.New("paramstore: reference has no parameter name")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: resolve %q: %w", name, err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err == nil && tp.Token != "" {
		return tp.Token, nil
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("paramstore: parameter %q is empty", name)
	}
	return raw, nil
}
