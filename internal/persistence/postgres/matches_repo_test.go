package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGhostRates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchesRepo(db, time.Second)

	mock.ExpectQuery(`SELECT user_id,`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "matched", "unstarted"}).
			AddRow("u1", 10, 7).
			AddRow("u2", 4, 0))

	rates, err := repo.GhostRates(context.Background(), []string{"u1", "u2", "u3"}, 20)
	require.NoError(t, err)

	assert.InDelta(t, 0.7, rates["u1"].Rate(), 1e-9)
	assert.Zero(t, rates["u2"].Rate())
	_, ok := rates["u3"]
	assert.False(t, ok, "users with no matches are simply absent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGhostRatesEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewMatchesRepo(db, time.Second)

	rates, err := repo.GhostRates(context.Background(), nil, 20)
	require.NoError(t, err)
	assert.Empty(t, rates, "no query issued for an empty batch")
}

func TestBlocksInvolvedUserIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBlocksRepo(db, time.Second)

	mock.ExpectQuery(`SELECT DISTINCT CASE WHEN reporter_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"other_id"}).AddRow("u7").AddRow("u9"))

	ids, err := repo.InvolvedUserIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u7", "u9"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
