package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/mbot/internal/db"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(conn),
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(nil, store)

			_, err := svc.Put(ctx, " Temperature ", "0.4")
			require.NoError(t, err)
			v, ok := svc.Float(ctx, KeyTemperature)
			require.True(t, ok)
			assert.InDelta(t, 0.4, v, 1e-9)

			_, err = svc.Put(ctx, KeyTemperature, "0.9")
			require.NoError(t, err)
			v, _ = svc.Float(ctx, KeyTemperature)
			assert.InDelta(t, 0.9, v, 1e-9)

			_, ok = svc.Int(ctx, KeyThinkingBudget)
			assert.False(t, ok)

			require.NoError(t, svc.Delete(ctx, KeyTemperature))
			assert.ErrorIs(t, svc.Delete(ctx, KeyTemperature), ErrNotFound)
		})
	}
}

func TestPutRejectsInvalidKnownValues(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, NewMemoryStore())
	_, err := svc.Put(context.Background(), KeyTemperature, "hot")
	assert.Error(t, err)
	_, err = svc.Put(context.Background(), KeyTemperature, "3")
	assert.Error(t, err)
	_, err = svc.Put(context.Background(), KeyThinkingBudget, "1.5")
	assert.Error(t, err)
	_, err = svc.Put(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestCredentialsStorageOrder(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(nil, store)

			for _, n := range []string{"first", "second", "third"} {
				_, err := svc.CreateCredential(ctx, CreateCredentialRequest{Name: n, APIKey: "key-" + n + "-secret"})
				require.NoError(t, err)
				time.Sleep(2 * time.Millisecond)
			}

			items, err := svc.ListCredentials(ctx)
			require.NoError(t, err)
			require.Len(t, items, 3)
			assert.Equal(t, []string{"first", "second", "third"}, []string{items[0].Name, items[1].Name, items[2].Name})
			assert.Equal(t, "key-first-secret", items[0].APIKey)

			views, err := svc.ListCredentialViews(ctx)
			require.NoError(t, err)
			assert.Equal(t, "****cret", views[0].APIKey)

			_, err = svc.CreateCredential(ctx, CreateCredentialRequest{Name: "first", APIKey: "dup"})
			assert.Error(t, err)

			require.NoError(t, svc.DeleteCredential(ctx, items[1].ID.String()))
			items, err = svc.ListCredentials(ctx)
			require.NoError(t, err)
			assert.Len(t, items, 2)
			assert.Error(t, svc.DeleteCredential(ctx, "not-a-uuid"))
		})
	}
}

func TestMaskKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "****wxyz", MaskKey("abcdwxyz"))
}
