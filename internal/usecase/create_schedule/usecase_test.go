package create_schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type fakeTx struct{}

func (fakeTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memMappings struct {
	rows map[int64]*domain.Mapping
}

func (r *memMappings) GetByID(_ context.Context, id int64) (*domain.Mapping, error) {
	m, ok := r.rows[id]
	if !ok {
		return nil, mappingRepo.ErrMappingNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMappings) UpdateState(_ context.Context, prev, next *domain.Mapping) (*domain.Mapping, error) {
	stored := r.rows[prev.ID]
	if stored.Status != prev.Status || stored.RemainingSessions != prev.RemainingSessions {
		return nil, mappingRepo.ErrConcurrentUpdate
	}
	cp := *next
	r.rows[prev.ID] = &cp
	out := cp
	return &out, nil
}

type memSchedules struct {
	rows   []*domain.Schedule
	nextID int64
}

func (r *memSchedules) Create(_ context.Context, s *domain.Schedule) (*domain.Schedule, error) {
	r.nextID++
	cp := *s
	cp.ID = r.nextID
	r.rows = append(r.rows, &cp)
	out := cp
	return &out, nil
}

func (r *memSchedules) List(_ context.Context, filter domain.SchedulesFilter) ([]*domain.Schedule, error) {
	out := make([]*domain.Schedule, 0)
	for _, s := range r.rows {
		if filter.ConsultantID != nil && s.ConsultantID != *filter.ConsultantID {
			continue
		}
		if filter.StartDate != nil && s.Date.Before(domain.DateOnly(*filter.StartDate)) {
			continue
		}
		if filter.EndDate != nil && s.Date.After(domain.DateOnly(*filter.EndDate)) {
			continue
		}
		if s.Status == domain.ScheduleCancelled {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

type fakeExtensions struct {
	open map[int64]bool
}

func (f *fakeExtensions) HasOpenRequest(_ context.Context, mappingID int64) (bool, error) {
	return f.open[mappingID], nil
}

type fakeMetrics struct {
	conflicts   int
	created     []int
	transitions []string
}

func (f *fakeMetrics) ScheduleConflict()     { f.conflicts++ }
func (f *fakeMetrics) ScheduleCreated(d int) { f.created = append(f.created, d) }
func (f *fakeMetrics) MappingTransition(a, b string) {
	f.transitions = append(f.transitions, a+"->"+b)
}

var (
	now        = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	bookingDay = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	uc         *UseCase
	mappings   *memMappings
	schedules  *memSchedules
	extensions *fakeExtensions
	metrics    *fakeMetrics
}

func newFixture() *fixture {
	f := &fixture{
		mappings: &memMappings{rows: map[int64]*domain.Mapping{
			1: {ID: 1, ConsultantID: 10, ClientID: 20, Status: domain.MappingActive, TotalSessions: 20, UsedSessions: 0, RemainingSessions: 20},
			2: {ID: 2, ConsultantID: 10, ClientID: 21, Status: domain.MappingPaymentConfirmed, TotalSessions: 10, RemainingSessions: 10},
			3: {ID: 3, ConsultantID: 11, ClientID: 22, Status: domain.MappingActive, TotalSessions: 5, UsedSessions: 4, RemainingSessions: 1},
			4: {ID: 4, ConsultantID: 11, ClientID: 23, Status: domain.MappingActive, TotalSessions: 5, UsedSessions: 5, RemainingSessions: 0},
		}},
		schedules: &memSchedules{rows: []*domain.Schedule{
			{ID: 100, ConsultantID: 10, Date: bookingDay, StartTime: "09:00", EndTime: "09:50", Status: domain.ScheduleScheduled},
			{ID: 101, ConsultantID: 10, Date: bookingDay, StartTime: "13:35", EndTime: "13:55", Status: domain.ScheduleScheduled},
			{ID: 102, ConsultantID: 10, Date: bookingDay, StartTime: "16:00", EndTime: "17:40", Status: domain.ScheduleCancelled},
			{ID: 103, ConsultantID: 10, Date: bookingDay.AddDate(0, 0, 1), StartTime: "10:00", EndTime: "10:50", Status: domain.ScheduleScheduled},
		}, nextID: 200},
		extensions: &fakeExtensions{open: map[int64]bool{}},
		metrics:    &fakeMetrics{},
	}
	f.uc = NewUseCase(f.schedules, f.mappings, f.extensions, fakeTx{}, f.metrics, domain.DefaultBreakBufferMinutes, nopLogger{})
	f.uc.timeProvider = fixedTime{t: now}
	return f
}

func request(mappingID int64, start types.TimeString, duration int) *Request {
	return &Request{MappingID: mappingID, Date: bookingDay, StartTime: start, DurationMinutes: duration, Title: "Session"}
}

func TestUseCase_Execute_Success(t *testing.T) {
	f := newFixture()

	// 09:00-09:50 уже занято, перерыв ровно 10 минут допустим
	resp, err := f.uc.Execute(context.Background(), request(1, "10:00", 50))
	require.NoError(t, err)

	assert.Equal(t, types.TimeString("10:50"), resp.EndTime)
	assert.Equal(t, 50, resp.DurationMinutes)
	assert.Equal(t, string(domain.ScheduleScheduled), resp.Status)
	assert.Equal(t, int64(10), resp.ConsultantID)
	assert.Equal(t, int64(20), resp.ClientID)
	assert.Equal(t, 19, resp.RemainingSessions)

	m := f.mappings.rows[1]
	assert.Equal(t, 1, m.UsedSessions)
	assert.Equal(t, m.TotalSessions-m.UsedSessions, m.RemainingSessions)
	assert.Equal(t, []int{50}, f.metrics.created)
	assert.Empty(t, f.metrics.transitions)
}

func TestUseCase_Execute_Conflicts(t *testing.T) {
	tests := []struct {
		name         string
		start        types.TimeString
		duration     int
		wantConflict bool
	}{
		{name: "overlap", start: "09:30", duration: 30, wantConflict: true},
		{name: "gap shorter than buffer before", start: "13:00", duration: 30, wantConflict: true},
		{name: "gap shorter than buffer after", start: "14:00", duration: 30, wantConflict: true},
		{name: "cancelled session frees the time", start: "16:00", duration: 100},
		{name: "gap longer than buffer", start: "12:00", duration: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.uc.Execute(context.Background(), request(1, tt.start, tt.duration))

			if !tt.wantConflict {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrTimeConflict)
			assert.Equal(t, 1, f.metrics.conflicts)
			assert.Equal(t, 20, f.mappings.rows[1].RemainingSessions)
		})
	}
}

func TestUseCase_Execute_OtherDayDoesNotConflict(t *testing.T) {
	f := newFixture()

	// у консультанта 10:00-10:50 занято на следующий день, на дату записи время свободно
	resp, err := f.uc.Execute(context.Background(), request(1, "10:00", 50))
	require.NoError(t, err)
	assert.Equal(t, types.TimeString("10:00"), resp.StartTime)
	assert.Zero(t, f.metrics.conflicts)

	f = newFixture()
	next := request(1, "10:20", 30)
	next.Date = bookingDay.AddDate(0, 0, 1)
	_, err = f.uc.Execute(context.Background(), next)
	assert.ErrorIs(t, err, ErrTimeConflict)
}

func TestMemSchedules_ListFiltersByDate(t *testing.T) {
	f := newFixture()
	consultantID := int64(10)

	got, err := f.schedules.List(context.Background(), domain.SchedulesFilter{
		ConsultantID: &consultantID,
		StartDate:    &bookingDay,
		EndDate:      &bookingDay,
	})
	require.NoError(t, err)

	ids := make([]int64, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{100, 101}, ids)
}

func TestUseCase_Execute_NoConflictAcrossConsultants(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Execute(context.Background(), request(3, "09:00", 50))
	require.NoError(t, err)
}

func TestUseCase_Execute_MappingNotUsable(t *testing.T) {
	f := newFixture()

	// остаток сессий есть, но статус не ACTIVE
	_, err := f.uc.Execute(context.Background(), request(2, "11:00", 50))
	assert.ErrorIs(t, err, ErrMappingNotUsable)
	assert.Len(t, f.schedules.rows, 4)

	_, err = f.uc.Execute(context.Background(), request(4, "11:00", 50))
	assert.ErrorIs(t, err, ErrNoRemainingSessions)

	_, err = f.uc.Execute(context.Background(), request(99, "11:00", 50))
	assert.ErrorIs(t, err, ErrMappingNotFound)
}

func TestUseCase_Execute_LastSessionDeactivatesMapping(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), request(3, "11:00", 50))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RemainingSessions)
	assert.Equal(t, string(domain.MappingInactive), resp.MappingStatus)
	assert.Equal(t, []string{"ACTIVE->INACTIVE"}, f.metrics.transitions)
}

func TestUseCase_Execute_LastSessionWithOpenExtension(t *testing.T) {
	f := newFixture()
	f.extensions.open[3] = true

	resp, err := f.uc.Execute(context.Background(), request(3, "11:00", 50))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.RemainingSessions)
	assert.Equal(t, string(domain.MappingActive), resp.MappingStatus)
}

func TestUseCase_Execute_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{name: "duration not allowed", req: request(1, "11:00", 45), wantErr: ErrInvalidInput},
		{name: "start off grid", req: request(1, "11:15", 50), wantErr: ErrInvalidInput},
		{name: "start after grid", req: request(1, "20:30", 30), wantErr: ErrInvalidInput},
		{name: "bad time format", req: request(1, "25:00", 30), wantErr: ErrInvalidInput},
		{name: "no mapping", req: request(0, "11:00", 30), wantErr: ErrInvalidInput},
		{name: "date in past", req: &Request{MappingID: 1, Date: now.AddDate(0, 0, -1), StartTime: "11:00", DurationMinutes: 30}, wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 20, f.mappings.rows[1].RemainingSessions)
}

func TestUseCase_Execute_TodayPastStart(t *testing.T) {
	f := newFixture()
	f.uc.timeProvider = fixedTime{t: time.Date(2025, 3, 12, 12, 10, 0, 0, time.UTC)}

	_, err := f.uc.Execute(context.Background(), request(1, "11:00", 30))
	assert.ErrorIs(t, err, ErrTooLateToBook)

	_, err = f.uc.Execute(context.Background(), request(1, "15:00", 30))
	require.NoError(t, err)
}

func TestUseCase_Execute_SeparationInvariant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, start := range domain.SlotGrid() {
		_, _ = f.uc.Execute(ctx, request(1, start, 30))
	}

	active := make([]*domain.Schedule, 0)
	for _, s := range f.schedules.rows {
		if s.ConsultantID == 10 && s.Status != domain.ScheduleCancelled && domain.SameDate(s.Date, bookingDay) {
			active = append(active, s)
		}
	}

	for i, a := range active {
		for _, b := range active[i+1:] {
			aStart, aEnd, err := a.Bounds()
			require.NoError(t, err)
			bStart, bEnd, err := b.Bounds()
			require.NoError(t, err)

			assert.False(t, types.IntervalsOverlap(aStart, aEnd, bStart, bEnd), "%s and %s overlap", a.StartTime, b.StartTime)
			gap := bStart - aEnd
			if bStart < aStart {
				gap = aStart - bEnd
			}
			assert.GreaterOrEqual(t, gap, domain.DefaultBreakBufferMinutes, "%s and %s", a.StartTime, b.StartTime)
		}
	}

	m := f.mappings.rows[1]
	assert.Equal(t, m.TotalSessions-m.UsedSessions, m.RemainingSessions)
}
