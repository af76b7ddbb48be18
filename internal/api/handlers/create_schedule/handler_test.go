package create_schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	createSchedule "github.com/m04kA/SMC-CounselingService/internal/usecase/create_schedule"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockUseCase struct {
	mock.Mock
}

func (m *mockUseCase) Execute(ctx context.Context, req *createSchedule.Request) (*createSchedule.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*createSchedule.Response)
	return resp, args.Error(1)
}

const validBody = `{"mappingId":1,"date":"2025-03-12","startTime":"10:00","durationMinutes":50,"title":"Первая встреча"}`

func TestHandler_Success(t *testing.T) {
	uc := &mockUseCase{}
	h := NewHandler(uc, nopLogger{})

	date := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	uc.On("Execute", mock.Anything, mock.MatchedBy(func(req *createSchedule.Request) bool {
		return req.MappingID == 1 && req.Date.Equal(date) && req.StartTime.String() == "10:00" && req.DurationMinutes == 50
	})).Return(&createSchedule.Response{
		ID:                9,
		MappingID:         1,
		Date:              date,
		StartTime:         types.TimeString("10:00"),
		EndTime:           types.TimeString("10:50"),
		DurationMinutes:   50,
		Status:            "SCHEDULED",
		RemainingSessions: 19,
		MappingStatus:     "ACTIVE",
	}, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/schedules", strings.NewReader(validBody)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success bool             `json:"success"`
		Data    ScheduleResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "2025-03-12", body.Data.Date)
	assert.Equal(t, "10:50", body.Data.EndTime)
	assert.Equal(t, 19, body.Data.RemainingSessions)
	uc.AssertExpectations(t)
}

func TestHandler_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"mappingId":1,"foo":"bar"}`},
		{name: "bad date", body: `{"mappingId":1,"date":"12.03.2025","startTime":"10:00","durationMinutes":50}`},
		{name: "bad time", body: `{"mappingId":1,"date":"2025-03-12","startTime":"25:00","durationMinutes":50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockUseCase{}
			h := NewHandler(uc, nopLogger{})

			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/schedules", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			uc.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: createSchedule.ErrTimeConflict, want: http.StatusConflict},
		{err: createSchedule.ErrMappingNotUsable, want: http.StatusConflict},
		{err: createSchedule.ErrNoRemainingSessions, want: http.StatusConflict},
		{err: createSchedule.ErrConcurrentUpdate, want: http.StatusConflict},
		{err: createSchedule.ErrMappingNotFound, want: http.StatusNotFound},
		{err: createSchedule.ErrInvalidDate, want: http.StatusBadRequest},
		{err: createSchedule.ErrTooLateToBook, want: http.StatusBadRequest},
		{err: createSchedule.ErrInvalidInput, want: http.StatusBadRequest},
		{err: createSchedule.ErrInternal, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			uc := &mockUseCase{}
			h := NewHandler(uc, nopLogger{})
			uc.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/schedules", strings.NewReader(validBody)))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
