package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	token string
	err   error
	name  string
}

func (f *fakeTokenSource) ChannelToken(_ context.Context, name string) (string, error) {
	f.name = name
	return f.token, f.err
}

func TestResolveToken_ExplicitWins(t *testing.T) {
	src := &fakeTokenSource{token: "from-ssm"}
	tok, err := ResolveToken(context.Background(), " env-token ", "/p", src)
	require.NoError(t, err)
	require.Equal(t, "env-token", tok)
	require.Empty(t, src.name, "parameter store must not be consulted")
}

func TestResolveToken_FromParameter(t *testing.T) {
	src := &fakeTokenSource{token: "from-ssm"}
	tok, err := ResolveToken(context.Background(), "", "/lineops/token", src)
	require.NoError(t, err)
	require.Equal(t, "from-ssm", tok)
	require.Equal(t, "/lineops/token", src.name)
}

func TestResolveToken_Missing(t *testing.T) {
	_, err := ResolveToken(context.Background(), "", "", nil)
	require.Error(t, err)
	require.Equal(t, ErrorMissingCredential, CodeOf(err))
}

func TestResolveToken_LookupFails(t *testing.T) {
	_, err := ResolveToken(context.Background(), "", "/p", &fakeTokenSource{err: errors.New("access denied")})
	require.Error(t, err)
	require.Equal(t, ErrorMissingCredential, CodeOf(err))
	require.ErrorContains(t, err, "access denied")
}
