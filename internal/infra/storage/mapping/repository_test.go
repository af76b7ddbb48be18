package mapping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

func TestStoredLabels(t *testing.T) {
	assert.Equal(t, []string{"ACTIVE"}, storedLabels(domain.MappingActive))
	assert.Equal(t, []string{"DEPOSIT_PENDING", "ACTIVE_PENDING"}, storedLabels(domain.MappingDepositPending))
	assert.Equal(t,
		[]string{"PENDING_PAYMENT", "DEPOSIT_PENDING", "ACTIVE_PENDING"},
		storedLabels(domain.MappingPendingPayment, domain.MappingDepositPending))
}

type fakeRow struct {
	values []interface{}
}

func (r fakeRow) Scan(dest ...interface{}) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *string:
			*p = r.values[i].(string)
		}
	}
	return nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return r.rows[r.pos-1].Scan(dest...)
}

func (r *fakeRows) Err() error { return nil }

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Info(string, ...interface{}) {}
func (l *recordingLogger) Warn(format string, v ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}
func (l *recordingLogger) Error(string, ...interface{}) {}

func mappingRow(id int64, status string) fakeRow {
	values := make([]interface{}, len(columns))
	values[0] = id
	values[1] = int64(1)
	values[2] = int64(2)
	values[3] = status
	values[4] = 10
	values[5] = 3
	values[6] = 7
	values[7] = "Basic"
	values[9] = "cash"
	values[10] = ""
	return fakeRow{values: values}
}

func TestCollectMappings_SkipsUnknownStatus(t *testing.T) {
	logger := &recordingLogger{}
	repo := NewRepository(nil, logger)

	rows := &fakeRows{rows: []fakeRow{
		mappingRow(1, "ACTIVE"),
		mappingRow(2, "ARCHIVED"),
		mappingRow(3, "INACTIVE"),
	}}

	got, err := repo.collectMappings(rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "mapping id=2")
}

func TestScanMapping_NormalizesLegacyStatus(t *testing.T) {
	m, err := scanMapping(mappingRow(7, "ACTIVE_PENDING"))
	assert.NoError(t, err)
	assert.Equal(t, domain.MappingDepositPending, m.Status)
	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, 7, m.RemainingSessions)
	assert.Equal(t, domain.PaymentCash, m.PaymentMethod)
}
