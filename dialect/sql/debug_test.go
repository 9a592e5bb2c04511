package sql

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/syssam/dbextra/dialect"
	"github.com/syssam/dbextra/profiler"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var logs []string
	drv := NewDebugDriver(OpenDB(dialect.MySQL, db), DebugWithLog(func(_ context.Context, v ...any) {
		logs = append(logs, fmt.Sprint(v...))
	}))

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	ctx := context.Background()
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT id FROM users WHERE name = ?", []any{"it's"}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, drv.Exec(ctx, "UPDATE users SET a = ? WHERE id = ?", []any{nil, 2}, nil))

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELETE FROM users WHERE id = ?", []any{3}, nil))
	require.NoError(t, tx.Query(ctx, "SELECT id FROM users", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{
		"query:\nSELECT id\nFROM users\nWHERE name = 'it''s'",
		"exec:\nUPDATE users SET a = NULL\nWHERE id = '2'",
		"begin transaction",
		"tx exec:\nDELETE\nFROM users\nWHERE id = '3'",
		"tx query:\nSELECT id\nFROM users",
		"rollback transaction",
	}, logs)
}

func TestDebugDriverLogger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db),
		DebugWithLogger(logger),
		DebugWithFormatter(profiler.Formatter{InlineColumns: 1, InlineWidth: 100, Indent: "\t"}),
	)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a", "b"}))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT a, b FROM t WHERE c = $1", []any{5}, rows))
	require.NoError(t, rows.Close())

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `SELECT\n\ta,\n\tb\nFROM t\nWHERE c = '5'`)
}
