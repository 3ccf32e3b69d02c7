package database

import (
	"io/fs"
	"strings"
	"testing"

	"farmmarket/marketplace-service/migrations"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestEmbeddedMigrations_AreReadable(t *testing.T) {
	// Arrange
	source, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer source.Close()

	// Act
	first, err := source.First()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, identifier, err := source.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "init_schema", identifier)
}

func TestEmbeddedMigrations_SchemaGuards(t *testing.T) {
	// Arrange
	raw, err := fs.ReadFile(migrations.FS, "000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	// Assert - последняя линия защиты от отрицательного остатка и дублей отзывов
	assert.Contains(t, schema, "CHECK (stock >= 0)")
	assert.Contains(t, schema, "CHECK (quantity > 0)")
	assert.Contains(t, schema, "CHECK (rating BETWEEN 1 AND 5)")
	assert.True(t, strings.Contains(schema, "UNIQUE INDEX IF NOT EXISTS reviews_order_reviewer_role_idx ON reviews (order_id, reviewer_id, reviewer_role)"))
}

func TestPoolStats(t *testing.T) {
	// Arrange
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)

	// Act
	idle, inUse := PoolStats(db)()

	// Assert
	assert.GreaterOrEqual(t, idle, 0)
	assert.Equal(t, 0, inUse)
}
