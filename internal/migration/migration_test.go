package migration

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/order/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)
}

func TestChecksumIsStable(t *testing.T) {
	a, err := Checksum()
	require.NoError(t, err)
	b, err := Checksum()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestVersionOf(t *testing.T) {
	v, ok := versionOf("000002_create_order_sequences.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(2), v)

	_, ok = versionOf("create_orders.up.sql")
	assert.False(t, ok)
	_, ok = versionOf("000001")
	assert.False(t, ok)
}

func TestEveryUpHasDown(t *testing.T) {
	names, err := upMigrations()
	require.NoError(t, err)
	for _, name := range names {
		down := name[:len(name)-len(".up.sql")] + ".down.sql"
		_, err := embeddedMigrations.ReadFile(migrationsDir + "/" + down)
		assert.NoError(t, err, down)
	}
}

func TestRunWithModelsOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), db, "sqlite", zap.NewNop()))
	assert.True(t, db.Migrator().HasTable(&orderdomain.Order{}))
	assert.True(t, db.Migrator().HasTable(&sequence.Counter{}))

	// idempotent
	require.NoError(t, Run(context.Background(), db, "sqlite", zap.NewNop()))
}

func TestRunRequiresDatabase(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil, "sqlite", zap.NewNop()))
}
