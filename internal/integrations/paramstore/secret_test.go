package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapGetter struct {
	vals  map[string]string
	err   error
	names []string
}

func (m *mapGetter) GetParameter(_ context.Context, name string) (string, error) {
	m.names = append(m.names, name)
	if m.err != nil {
		return "", m.err
	}
	return m.vals[name], nil
}

func TestIsRef(t *testing.T) {
	require.True(t, IsRef("ssm:/a/b"))
	require.True(t, IsRef("  ssm:/a/b"))
	require.False(t, IsRef("AIza-plain-key"))
	require.False(t, IsRef(""))
}

func TestResolve_PlainValuePassesThrough(t *testing.T) {
	g := &mapGetter{}
	v, err := Resolve(context.Background(), g, "AIza-plain-key")
	require.NoError(t, err)
	require.Equal(t, "AIza-plain-key", v)
	require.Empty(t, g.names)
}

func TestResolve_UnwrapsTokenPayload(t *testing.T) {
	g := &mapGetter{vals: map[string]string{"/chat/google-api-key": `{"token":"AIza-secret"}`}}
	v, err := Resolve(context.Background(), g, "ssm:/chat/google-api-key")
	require.NoError(t, err)
	require.Equal(t, "AIza-secret", v)
	require.Equal(t, []string{"/chat/google-api-key"}, g.names)
}

func TestResolve_ReturnsOtherJSONAsStored(t *testing.T) {
	sa := `{"type":"service_account","project_id":"tourism"}`
	g := &mapGetter{vals: map[string]string{"/chat/firebase": sa}}
	v, err := Resolve(context.Background(), g, "ssm:/chat/firebase")
	require.NoError(t, err)
	require.Equal(t, sa, v)
}

func TestResolve_Errors(t *testing.T) {
	_, err := Resolve(context.Background(), nil, "ssm:/x")
	require.Error(t, err)

	_, err = Resolve(context.Background(), &mapGetter{}, "ssm: ")
	require.ErrorContains(t, err, "no parameter name")

	_, err = Resolve(context.Background(), &mapGetter{err: errors.New("AccessDenied")}, "ssm:/x")
	require.ErrorContains(t, err, "AccessDenied")

	_, err = Resolve(context.Background(), &mapGetter{vals: map[string]string{"/x": " "}}, "ssm:/x")
	require.ErrorContains(t, err, "empty")
}
