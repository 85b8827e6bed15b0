package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AliasAPI is the part of the LINE client used to bind aliases.
type AliasAPI interface {
	UpdateAlias(ctx context.Context, aliasID, richMenuID string) error
	CreateAlias(ctx context.Context, aliasID, richMenuID string) error
}

// AliasResult reports which path EnsureAlias took.
type AliasResult string

const (
	AliasUpdated              AliasResult = "updated"
	AliasCreated              AliasResult = "created"
	AliasCreatedAfterConflict AliasResult = "created_after_conflict"
)

// EnsureAlias points aliasID at richMenuID, creating the alias when it does not
// exist yet. Running it twice with the same arguments is a no-op the second time.
func EnsureAlias(ctx context.Context, api AliasAPI, aliasID, richMenuID string) (AliasResult, error) {
	if strings.TrimSpace(aliasID) == "" || strings.TrimSpace(richMenuID) == "" {
		return "", newError(ErrorInvalidInput, "alias_arguments_required", nil)
	}

	err := api.UpdateAlias(ctx, aliasID, richMenuID)
	if err == nil {
		return AliasUpdated, nil
	}

	result := AliasCreated
	status, ok := UpstreamStatusCode(err)
	switch {
	case ok && status == http.StatusNotFound:
	case ok && status == http.StatusBadRequest && strings.Contains(strings.ToLower(UpstreamBody(err)), "conflict"):
		result = AliasCreatedAfterConflict
	default:
		return "", newError(ErrorUpstream, "alias_update_error", fmt.Errorf("alias %s: %w", aliasID, err))
	}

	if err := api.CreateAlias(ctx, aliasID, richMenuID); err != nil {
		return "", newError(ErrorUpstream, "alias_create_error", fmt.Errorf("alias %s: %w", aliasID, err))
	}
	return result, nil
}
