package extension

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

func TestIsOpenRequestConflict(t *testing.T) {
	openConflict := &pq.Error{Code: "23505", Constraint: "uq_extension_requests_open"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "open request index", err: openConflict, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", openConflict), want: true},
		{name: "other unique index", err: &pq.Error{Code: "23505", Constraint: "extension_requests_pkey"}},
		{name: "check violation", err: &pq.Error{Code: "23514", Constraint: "uq_extension_requests_open"}},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isOpenRequestConflict(tt.err))
		})
	}
}

func TestInsertQuery_StoresRequester(t *testing.T) {
	req, err := domain.NewExtensionRequest(3, 42, 5, "extra", decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	query, args, err := insertQuery(req).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO extension_requests (mapping_id,requester_id,"), query)
	assert.True(t, strings.HasSuffix(query, "RETURNING id, created_at, updated_at"), query)
	require.Len(t, args, 7)
	assert.Equal(t, int64(3), args[0])
	assert.Equal(t, int64(42), args[1])
	assert.Equal(t, "PENDING", args[6])
}

func TestListQuery_Filters(t *testing.T) {
	mappingID, requesterID := int64(3), int64(42)

	query, args, err := listQuery(domain.ExtensionsFilter{
		MappingID:   &mappingID,
		RequesterID: &requesterID,
		Statuses:    []domain.ExtensionStatus{domain.ExtensionPending, domain.ExtensionRejected},
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "WHERE mapping_id = $1 AND requester_id = $2 AND status IN ($3,$4)")
	assert.True(t, strings.HasSuffix(query, "ORDER BY created_at DESC, id DESC"), query)
	assert.NotContains(t, query, "FOR UPDATE")
	assert.Equal(t, []interface{}{int64(3), int64(42), "PENDING", "REJECTED"}, args)
}

func TestStatsQueries_GroupByPeriod(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	period := domain.StatsPeriod{From: &from, To: &to}

	query, args, err := statusStatsQuery(period).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT status, COUNT(*) FROM extension_requests WHERE created_at >= $1 AND created_at < $2 GROUP BY status",
		query)
	assert.Equal(t, []interface{}{from, to}, args)

	query, args, err = requesterStatsQuery(domain.StatsPeriod{From: &from}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT requester_id, COUNT(*), COALESCE(SUM(package_price), 0) FROM extension_requests "+
			"WHERE created_at >= $1 GROUP BY requester_id ORDER BY COUNT(*) DESC, requester_id ASC",
		query)
	assert.Equal(t, []interface{}{from}, args)

	query, args, err = statusStatsQuery(domain.StatsPeriod{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT status, COUNT(*) FROM extension_requests GROUP BY status", query)
	assert.Empty(t, args)
}
