package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/dispatch"
	"github.com/stretchr/testify/require"
)

func testReport() *dispatch.Report {
	ok := dispatch.Outcome{Provider: "posthog", Succeeded: true, StatusCode: 200, Latency: 15 * time.Millisecond}
	bad := dispatch.Outcome{Provider: "ga4", ErrorKind: dispatch.KindTimeout, ErrorDetail: "timed out after 5s", Latency: 5 * time.Second}
	return &dispatch.Report{
		Attempted: 2,
		Succeeded: 1,
		Failed:    []dispatch.Outcome{bad},
		Outcomes:  []dispatch.Outcome{ok, bad},
	}
}

func TestAdapter_SaveReport(t *testing.T) {
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	event := &v1.TrackingEvent{Event: "pageview", MessageID: "8f14e45f-ceea-467f-a8f9-3e1d2b5c6a70"}

	tests := []struct {
		name       string
		report     *dispatch.Report
		mockResult func(mock sqlmock.Sqlmock)
		assertions func(t *testing.T, err error)
	}{
		{
			name:   "success",
			report: testReport(),
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(querySaveReport)).
					WithArgs(
						sqlmock.AnyArg(),
						"pageview",
						"8f14e45f-ceea-467f-a8f9-3e1d2b5c6a70",
						2,
						1,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						now,
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:   "empty report stores empty arrays",
			report: &dispatch.Report{},
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(querySaveReport)).
					WithArgs(
						sqlmock.AnyArg(),
						"pageview",
						"8f14e45f-ceea-467f-a8f9-3e1d2b5c6a70",
						0,
						0,
						[]byte("[]"),
						[]byte("[]"),
						now,
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			assertions: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
		{
			name:   "exec error is wrapped",
			report: testReport(),
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(querySaveReport)).
					WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "failed to save dispatch report")
				require.ErrorContains(t, err, "connection reset")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock)
			err := adapter.SaveReport(context.Background(), event, tc.report, now)
			tc.assertions(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNewAdapterWithDB(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(queryTableExists)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectClose()

		_, err = NewAdapterWithDB(db)
		require.ErrorContains(t, err, "dispatch_reports table does not exist")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("prepares statements", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(queryTableExists)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectPrepare(regexp.QuoteMeta(querySaveReport))

		adapter, err := NewAdapterWithDB(db)
		require.NoError(t, err)
		require.NotNil(t, adapter.DB())

		mock.ExpectClose()
		require.NoError(t, adapter.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdapter_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	adapter := &Adapter{db: db}
	mock.ExpectPing().WillReturnError(errors.New("down"))
	require.Error(t, adapter.Ping(context.Background()))

	mock.ExpectPing()
	require.NoError(t, adapter.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarshalReportJSON(t *testing.T) {
	failedJSON, outcomesJSON, err := marshalReportJSON(testReport())
	require.NoError(t, err)
	require.JSONEq(t, `[{"provider":"ga4","succeeded":false,"error_kind":"provider_timeout","error_detail":"timed out after 5s","latency_ns":5000000000}]`, string(failedJSON))
	require.Contains(t, string(outcomesJSON), `"provider":"posthog"`)
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:             db,
		stmtSaveReport: mustPrepareStmt(t, db, mock, querySaveReport),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}
