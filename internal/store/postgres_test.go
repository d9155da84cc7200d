package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-genie/internal/models"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func profileColumns() []string {
	return []string{
		"age", "sex", "occupation", "move_in_date", "rental_duration",
		"guarantor_status", "guarantor_details", "viewing_interest",
		"availability", "language_preference", "status", "property_interest",
		"notes", "created_at", "last_updated", "conversation_turns",
	}
}

func TestPostgresLoad_ReturnsProfile(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(profileColumns()).AddRow(
		25, "female", "nurse", "september 2026", "12 months",
		"yes", "father", true,
		"weekends", "English", "qualified", "",
		"", created, created.Add(time.Hour), 7,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT age, sex, occupation")).
		WithArgs("sess-1").
		WillReturnRows(rows)

	profile, err := repo.Load(context.Background(), "sess-1")

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 25, profile.Age)
	assert.Equal(t, models.StatusQualified, profile.Status)
	require.NotNil(t, profile.ViewingInterest)
	assert.True(t, *profile.ViewingInterest)
	assert.Equal(t, 7, profile.ConversationTurns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoad_AbsentIsNotAnError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT age, sex, occupation")).
		WithArgs("sess-1").
		WillReturnError(sql.ErrNoRows)

	profile, err := repo.Load(context.Background(), "sess-1")

	assert.NoError(t, err)
	assert.Nil(t, profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoad_QueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT age, sex, occupation")).
		WithArgs("sess-1").
		WillReturnError(errors.New("connection reset"))

	profile, err := repo.Load(context.Background(), "sess-1")

	assert.Error(t, err)
	assert.Nil(t, profile)
}

func TestPostgresSave_Upserts(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	profile := models.NewTenantProfile(now)
	profile.Age = 25
	profile.Occupation = "teacher"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenant_profiles")).
		WithArgs(
			"sess-1", 25, "", "teacher", "", "",
			"", "", sql.NullBool{}, "",
			"", "prospect", "", "",
			now, now, 0,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), "sess-1", profile)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tenant_profiles WHERE session_id = $1")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
