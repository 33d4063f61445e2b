package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/require"
)

func TestRunInTx_Commit(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM chats`).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		_, err := QuerierFromCtx(ctx, mock).Exec(ctx, deleteChatSQL, "x")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)
	sentinel := errors.New("business logic error")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error { return sentinel })
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.PanicsWithValue(t, "boom", func() {
		_ = tm.RunInTx(context.Background(), func(ctx context.Context) error { panic("boom") })
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_BeginFails(t *testing.T) {
	mock := newMock(t)
	tm := NewTxManager(mock)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.ErrorContains(t, err, "begin transaction")
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerierFromCtx_OutsideTx(t *testing.T) {
	mock := newMock(t)
	require.Equal(t, Querier(mock), QuerierFromCtx(context.Background(), mock))
}
