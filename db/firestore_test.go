package db_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/imagegallery/db"
	"github.com/techagentng/imagegallery/db/dbtesting"
	"go.uber.org/zap"
)

// TestFirestoreStore runs against the Firestore emulator. Each subtest gets
// its own project so documents never leak between them.
func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	dbtesting.RunStoreTests(t, "FirestoreStore", func(t *testing.T) db.Store {
		client, err := firestore.NewClient(context.Background(), "gallery-"+uuid.NewString()[:8])
		require.NoError(t, err)
		store := db.NewFirestoreStore(client, 5, zap.NewNop())
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
