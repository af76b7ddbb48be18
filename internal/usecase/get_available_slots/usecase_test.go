package get_available_slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	"github.com/m04kA/SMC-CounselingService/pkg/ptr"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type memSchedules struct {
	rows []*domain.Schedule
}

func (r *memSchedules) List(_ context.Context, filter domain.SchedulesFilter) ([]*domain.Schedule, error) {
	out := make([]*domain.Schedule, 0)
	for _, s := range r.rows {
		if filter.ConsultantID != nil && s.ConsultantID != *filter.ConsultantID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type memMappings map[int64]*domain.Mapping

func (r memMappings) GetByID(_ context.Context, id int64) (*domain.Mapping, error) {
	m, ok := r[id]
	if !ok {
		return nil, mappingRepo.ErrMappingNotFound
	}
	return m, nil
}

var (
	now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	day = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
)

func newUseCase() *UseCase {
	schedules := &memSchedules{rows: []*domain.Schedule{
		{ID: 1, ConsultantID: 10, Date: day, StartTime: "09:00", EndTime: "09:50", Status: domain.ScheduleScheduled},
		{ID: 2, ConsultantID: 10, Date: day, StartTime: "12:00", EndTime: "13:40", Status: domain.ScheduleCancelled},
		{ID: 3, ConsultantID: 10, Date: day, StartTime: "9am", EndTime: "10am", Status: domain.ScheduleScheduled},
		{ID: 4, ConsultantID: 11, Date: day, StartTime: "15:00", EndTime: "15:50", Status: domain.ScheduleScheduled},
	}}
	mappings := memMappings{
		1: {ID: 1, ConsultantID: 11, Status: domain.MappingDepositPending},
		2: {ID: 2, ConsultantID: 11, Status: domain.MappingInactive},
	}

	uc := NewUseCase(schedules, mappings, domain.DefaultBreakBufferMinutes, nopLogger{})
	uc.timeProvider = fixedTime{t: now}
	return uc
}

func availability(slots []domain.AvailableSlot) map[types.TimeString]bool {
	out := make(map[types.TimeString]bool, len(slots))
	for _, s := range slots {
		out[s.StartTime] = s.Available
	}
	return out
}

func TestUseCase_Execute_MarksGrid(t *testing.T) {
	uc := newUseCase()

	resp, err := uc.Execute(context.Background(), &Request{ConsultantID: 10, Date: day, DurationMinutes: 50})
	require.NoError(t, err)

	require.Len(t, resp.Slots, len(domain.SlotGrid()))
	assert.Equal(t, types.TimeString("09:00"), resp.Slots[0].StartTime)
	assert.Equal(t, types.TimeString("20:00"), resp.Slots[len(resp.Slots)-1].StartTime)
	assert.Equal(t, types.TimeString("09:50"), resp.Slots[0].EndTime)

	got := availability(resp.Slots)
	assert.False(t, got["09:00"])
	assert.False(t, got["09:30"])
	assert.True(t, got["10:00"], "gap equal to buffer is allowed")
	assert.True(t, got["12:00"], "cancelled schedules do not block")
	assert.Nil(t, resp.MappingUsable)
}

func TestUseCase_Execute_DurationChangesAvailability(t *testing.T) {
	uc := newUseCase()

	resp, err := uc.Execute(context.Background(), &Request{ConsultantID: 11, Date: day, DurationMinutes: 30})
	require.NoError(t, err)
	got := availability(resp.Slots)
	assert.True(t, got["14:00"])
	assert.False(t, got["14:30"])

	resp, err = uc.Execute(context.Background(), &Request{ConsultantID: 11, Date: day, DurationMinutes: 80})
	require.NoError(t, err)
	got = availability(resp.Slots)
	assert.False(t, got["14:00"])
	assert.True(t, got["13:00"])
}

func TestUseCase_Execute_PastSlotsToday(t *testing.T) {
	uc := newUseCase()
	uc.timeProvider = fixedTime{t: time.Date(2025, 3, 12, 14, 5, 0, 0, time.UTC)}

	resp, err := uc.Execute(context.Background(), &Request{ConsultantID: 10, Date: day, DurationMinutes: 30})
	require.NoError(t, err)
	got := availability(resp.Slots)
	assert.False(t, got["14:00"])
	assert.True(t, got["14:30"])
}

func TestUseCase_Execute_ByMapping(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	resp, err := uc.Execute(ctx, &Request{MappingID: ptr.Ptr(int64(1)), Date: day})
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.ConsultantID)
	assert.Equal(t, domain.DefaultSessionDurationMinutes, resp.DurationMinutes)
	require.NotNil(t, resp.MappingUsable)
	assert.False(t, *resp.MappingUsable)

	_, err = uc.Execute(ctx, &Request{MappingID: ptr.Ptr(int64(2)), Date: day})
	assert.ErrorIs(t, err, ErrMappingNotBrowsable)

	_, err = uc.Execute(ctx, &Request{MappingID: ptr.Ptr(int64(9)), Date: day})
	assert.ErrorIs(t, err, ErrMappingNotFound)
}

func TestUseCase_Execute_Validation(t *testing.T) {
	uc := newUseCase()
	ctx := context.Background()

	_, err := uc.Execute(ctx, &Request{ConsultantID: 10, Date: day, DurationMinutes: 45})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(ctx, &Request{Date: day})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(ctx, &Request{ConsultantID: 10, Date: now.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
