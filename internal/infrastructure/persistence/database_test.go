package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDatabase wraps an in-memory SQLite connection in a Database so
// the pool helpers can be exercised without a running Postgres.
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: db}
}

func TestConnectionStats_Struct(t *testing.T) {
	t.Run("creates ConnectionStats with zero values", func(t *testing.T) {
		stats := ConnectionStats{}

		assert.Equal(t, 0, stats.MaxOpenConnections)
		assert.Equal(t, 0, stats.OpenConnections)
		assert.Equal(t, 0, stats.InUse)
		assert.Equal(t, 0, stats.Idle)
		assert.Equal(t, int64(0), stats.WaitCount)
		assert.Equal(t, time.Duration(0), stats.WaitDuration)
	})
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("succeeds when connection is alive", func(t *testing.T) {
		db := newTestDatabase(t)
		defer db.Close()

		assert.NoError(t, db.Ping())
	})

	t.Run("fails after the connection is closed", func(t *testing.T) {
		db := newTestDatabase(t)
		require.NoError(t, db.Close())

		assert.Error(t, db.Ping())
	})
}

func TestDatabase_Stats(t *testing.T) {
	t.Run("reports pool statistics", func(t *testing.T) {
		db := newTestDatabase(t)
		defer db.Close()

		stats, err := db.Stats()

		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	})
}

func TestDatabase_Transaction(t *testing.T) {
	type row struct {
		ID   uint `gorm:"primaryKey"`
		Name string
	}

	t.Run("commits when function succeeds", func(t *testing.T) {
		db := newTestDatabase(t)
		defer db.Close()
		require.NoError(t, db.DB.AutoMigrate(&row{}))

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&row{Name: "kept"}).Error
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.DB.Model(&row{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rolls back when function fails", func(t *testing.T) {
		db := newTestDatabase(t)
		defer db.Close()
		require.NoError(t, db.DB.AutoMigrate(&row{}))

		wantErr := errors.New("boom")
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&row{Name: "discarded"}).Error; err != nil {
				return err
			}
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		var count int64
		require.NoError(t, db.DB.Model(&row{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestDatabase_Close(t *testing.T) {
	t.Run("closes the underlying connection", func(t *testing.T) {
		db := newTestDatabase(t)

		assert.NoError(t, db.Close())
	})
}
