package usecase

import (
	"context"
	"strings"
)

// TokenSource looks up a stored channel access token by name.
type TokenSource interface {
	ChannelToken(ctx context.Context, name string) (string, error)
}

// ResolveToken returns token when set, otherwise the token stored under
// paramName in src. It fails with ErrorMissingCredential when neither yields a
// token.
func ResolveToken(ctx context.Context, token, paramName string, src TokenSource) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		return t, nil
	}
	if strings.TrimSpace(paramName) == "" || src == nil {
		return "", newError(ErrorMissingCredential, "channel_token_not_set", nil)
	}
	t, err := src.ChannelToken(ctx, paramName)
	if err != nil {
		return "", newError(ErrorMissingCredential, "channel_token_lookup_failed", err)
	}
	return t, nil
}
