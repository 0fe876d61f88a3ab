package migrations

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrateCreatesTablesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "stores", "products", "product_images", "carts", "cart_items", "orders", "order_items", "fee_rules"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table + " ").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, AutoMigrate(0, db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoMigrateReportsFailingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users ").WillReturnError(errors.New("access denied"))

	err = AutoMigrate(0, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate users")
}
