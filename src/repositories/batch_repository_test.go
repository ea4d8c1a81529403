package repositories

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Batches created earlier in an open transaction must be visible to lookups
// within that transaction, so GetByIDTx has to query the given connection
// rather than the repository's pooled one.
func TestBatchGetByIDTxQueriesGivenConnection(t *testing.T) {
	poolDB, poolMock := newMockDB(t)
	txDB, txMock := newMockDB(t)
	repo := &BatchRepository{DB: poolDB}

	tenantID := uuid.New()
	batchID := uuid.New()
	txMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "batches"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "quantity"}).
			AddRow(batchID, tenantID, 12.5))

	batch, err := repo.GetByIDTx(txDB, tenantID, batchID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, batch.Quantity)
	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}

func TestBatchGetByIDUsesPooledConnection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &BatchRepository{DB: db}

	batchID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "batches"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quantity"}).AddRow(batchID, 3.0))

	batch, err := repo.GetByID(uuid.New(), batchID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, batch.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
