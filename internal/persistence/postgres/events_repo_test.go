package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/models"
)

func TestEventsInsertBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepo(db, time.Second)

	ts := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	events := []models.BehavioralEvent{
		{ID: "e1", UserID: "u1", SessionID: "s1", EventType: "app_opened", ClientTS: ts, ServerTS: ts},
		{ID: "e2", UserID: "u1", SessionID: "s1", EventType: "photo_viewed",
			EventData: json.RawMessage(`{"photoId":"p1"}`), ClientTS: ts, ServerTS: ts},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO behavioral_events`)
	prep.ExpectExec().
		WithArgs("e1", "u1", "s1", "app_opened", nil, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("e2", "u1", "s1", "photo_viewed", []byte(`{"photoId":"p1"}`), ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	accepted, err := repo.InsertBatch(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventsInsertBatchRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepo(db, time.Second)

	ts := time.Now().UTC()
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO behavioral_events`)
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := repo.InsertBatch(context.Background(), []models.BehavioralEvent{
		{ID: "e1", UserID: "u1", SessionID: "s1", EventType: "app_opened", ClientTS: ts, ServerTS: ts},
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventsInsertBatchEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewEventsRepo(db, time.Second)

	accepted, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, accepted)
}

func TestEventsLatestNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventsRepo(db, time.Second)

	mock.ExpectQuery(`SELECT .+ FROM behavioral_events`).
		WithArgs("u1", "voice_note_analyzed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Latest(context.Background(), "u1", models.EventVoiceNoteAnalyzed)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
