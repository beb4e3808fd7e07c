package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "invoices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, Migrate(database))
	return database
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "invoices.db")
	database, err := Open(path)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Ping())
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := openMigrated(t)
	require.NoError(t, Migrate(database))

	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM invoice_headers").Scan(&n))
	assert.Zero(t, n)
}

func TestDeleteHeaderCascadesToLines(t *testing.T) {
	database := openMigrated(t)

	_, err := database.Exec(`INSERT INTO invoice_headers (id, invoice_number, date, customer_name, billing_address, shipping_address, gstin, total_amount)
		VALUES ('h1', 1, '2024-01-01', 'Acme', 'a', 'b', NULL, '12')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO invoice_items (id, invoice_id, item_name, quantity, price, amount)
		VALUES ('i1', 'h1', 'Widget', '2', '5', '10')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO invoice_billsundry (id, invoice_id, bill_sundry_name, amount)
		VALUES ('b1', 'h1', 'Freight', '2')`)
	require.NoError(t, err)

	_, err = database.Exec(`DELETE FROM invoice_headers WHERE id = 'h1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM invoice_items").Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM invoice_billsundry").Scan(&n))
	assert.Zero(t, n)
}

func TestLineInsertRequiresExistingHeader(t *testing.T) {
	database := openMigrated(t)

	_, err := database.Exec(`INSERT INTO invoice_items (id, invoice_id, item_name, quantity, price, amount)
		VALUES ('i1', 'missing', 'Widget', '2', '5', '10')`)
	assert.Error(t, err)
}

func TestInvoiceNumberUnique(t *testing.T) {
	database := openMigrated(t)

	_, err := database.Exec(`INSERT INTO invoice_headers (id, invoice_number, date, customer_name, billing_address, shipping_address, gstin, total_amount)
		VALUES ('h1', 1, '2024-01-01', 'Acme', 'a', 'b', NULL, '0')`)
	require.NoError(t, err)
	_, err = database.Exec(`INSERT INTO invoice_headers (id, invoice_number, date, customer_name, billing_address, shipping_address, gstin, total_amount)
		VALUES ('h2', 1, '2024-01-02', 'Beta', 'a', 'b', NULL, '0')`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint failed")
}
