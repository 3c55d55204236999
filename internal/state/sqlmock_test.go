package state

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-boost/tusktsk/pkg/core"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db, nil), mock
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	errDisk := errors.New("disk I/O error")
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		run     func(s *SQLiteStore) error
		wantMsg string
	}{
		{
			name: "start build",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO builds").WillReturnError(errDisk)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.StartBuild(ctx)
				return err
			},
			wantMsg: "failed to start build",
		},
		{
			name: "finish build",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE builds").WillReturnError(errDisk)
			},
			run: func(s *SQLiteStore) error {
				return s.FinishBuild(ctx, "b1", BuildStatusSucceeded, 1, 0)
			},
			wantMsg: "failed to finish build",
		},
		{
			name: "list builds",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM builds").WillReturnError(errDisk)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.ListBuilds(ctx, 10)
				return err
			},
			wantMsg: "failed to list builds",
		},
		{
			name: "record artifact",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO artifacts").WillReturnError(errDisk)
			},
			run: func(s *SQLiteStore) error {
				return s.RecordArtifact(ctx, &Artifact{SourcePath: "a.tsk"})
			},
			wantMsg: "failed to record artifact",
		},
		{
			name: "diagnostics roll back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM diagnostics").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO diagnostics").WillReturnError(errDisk)
				mock.ExpectRollback()
			},
			run: func(s *SQLiteStore) error {
				return s.SaveDiagnostics(ctx, "b1", "a.tsk", []core.Diagnostic{{Code: "E001"}})
			},
			wantMsg: "failed to save diagnostic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			err := tt.run(store)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.ErrorIs(t, err, errDisk)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLiteStore_ScanRows(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "started_at", "finished_at", "status", "files", "errors"}).
		AddRow("b2", int64(2000), int64(3500), "succeeded", 4, 0).
		AddRow("b1", int64(1000), nil, "running", 0, 0)
	mock.ExpectQuery("SELECT (.+) FROM builds ORDER BY").WithArgs(5).WillReturnRows(rows)

	builds, err := store.ListBuilds(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, BuildStatusSucceeded, builds[0].Status)
	assert.Equal(t, int64(1500), builds[0].Duration().Milliseconds())
	assert.Nil(t, builds[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
