package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"lineops/internal/integrations/line"
)

// fakeAliasStore behaves like the alias endpoints: update fails with 404 for an
// unknown alias, create fails with 400 for an existing one.
type fakeAliasStore struct {
	aliases   map[string]string
	updateErr error
	createErr error
	calls     []string
}

func newFakeAliasStore() *fakeAliasStore {
	return &fakeAliasStore{aliases: map[string]string{}}
}

func (f *fakeAliasStore) UpdateAlias(_ context.Context, aliasID, richMenuID string) error {
	f.calls = append(f.calls, "update "+aliasID)
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.aliases[aliasID]; !ok {
		return &line.HTTPStatusError{StatusCode: http.StatusNotFound, Body: `{"message":"richmenu alias not found"}`}
	}
	f.aliases[aliasID] = richMenuID
	return nil
}

func (f *fakeAliasStore) CreateAlias(_ context.Context, aliasID, richMenuID string) error {
	f.calls = append(f.calls, "create "+aliasID)
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.aliases[aliasID]; ok {
		return &line.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: `{"message":"conflict richmenu alias id"}`}
	}
	f.aliases[aliasID] = richMenuID
	return nil
}

func TestEnsureAlias_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := newFakeAliasStore()

	res, err := EnsureAlias(ctx, store, "menu-a", "rm-1")
	require.NoError(t, err)
	require.Equal(t, AliasCreated, res)

	res, err = EnsureAlias(ctx, store, "menu-a", "rm-2")
	require.NoError(t, err)
	require.Equal(t, AliasUpdated, res)

	require.Equal(t, map[string]string{"menu-a": "rm-2"}, store.aliases)
	require.Equal(t, []string{"update menu-a", "create menu-a", "update menu-a"}, store.calls)
}

func TestEnsureAlias_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeAliasStore()

	for range 2 {
		_, err := EnsureAlias(ctx, store, "menu-b", "rm-9")
		require.NoError(t, err)
	}
	require.Equal(t, map[string]string{"menu-b": "rm-9"}, store.aliases)
}

func TestEnsureAlias_ConflictFallsBackToCreate(t *testing.T) {
	store := newFakeAliasStore()
	store.updateErr = &line.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: `{"message":"CONFLICT"}`}

	res, err := EnsureAlias(context.Background(), store, "menu-a", "rm-1")
	require.NoError(t, err)
	require.Equal(t, AliasCreatedAfterConflict, res)
	require.Equal(t, "rm-1", store.aliases["menu-a"])
}

func TestEnsureAlias_ConflictCreateFails(t *testing.T) {
	store := newFakeAliasStore()
	store.aliases["menu-a"] = "rm-0"
	store.updateErr = &line.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: "conflict"}

	_, err := EnsureAlias(context.Background(), store, "menu-a", "rm-1")
	require.Equal(t, ErrorUpstream, CodeOf(err))
	require.Contains(t, err.Error(), "alias_create_error")
}

func TestEnsureAlias_OtherFailuresAreFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"bad request without conflict", &line.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: "invalid richMenuId"}},
		{"unauthorized", &line.HTTPStatusError{StatusCode: http.StatusUnauthorized}},
		{"transport", errors.New("dial tcp: timeout")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeAliasStore()
			store.updateErr = tc.err

			_, err := EnsureAlias(context.Background(), store, "menu-a", "rm-1")
			require.Equal(t, ErrorUpstream, CodeOf(err))
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, []string{"update menu-a"}, store.calls, "create must not be attempted")
		})
	}
}

func TestEnsureAlias_RequiresArguments(t *testing.T) {
	_, err := EnsureAlias(context.Background(), newFakeAliasStore(), "", "rm-1")
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
}
