package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestStateCollection_NilCollection(t *testing.T) {
	coll := &MongoStateCollection{Collection: nil}
	ctx := context.Background()

	_, err := coll.Load(ctx, "aero-ui-store")
	assert.Error(t, err)
	assert.Error(t, coll.Save(ctx, "aero-ui-store", []byte("{}")))
	assert.Error(t, coll.Delete(ctx, "aero-ui-store"))
}

// Integration test (requires running MongoDB)
func TestStateCollection_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "aero_console_test"
	}
	coll := NewStateCollection(client, dbName)
	key := "test-" + time.Now().Format("150405.000000000")

	_, err = coll.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, coll.Save(ctx, key, []byte(`{"theme":"dark"}`)))
	require.NoError(t, coll.Save(ctx, key, []byte(`{"theme":"light"}`)))
	got, err := coll.Load(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, string(got))

	require.NoError(t, coll.Delete(ctx, key))
	_, err = coll.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}
