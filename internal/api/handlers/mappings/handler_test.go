package mappings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockService struct {
	mock.Mock
}

func (m *mockService) result(args mock.Arguments) (*models.MappingResponse, error) {
	resp, _ := args.Get(0).(*models.MappingResponse)
	return resp, args.Error(1)
}

func (m *mockService) Create(ctx context.Context, req *models.CreateMappingRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, req))
}

func (m *mockService) Update(ctx context.Context, id int64, req *models.UpdateMappingRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id, req))
}

func (m *mockService) ConfirmPayment(ctx context.Context, id int64, req *models.ConfirmPaymentRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id, req))
}

func (m *mockService) ConfirmDeposit(ctx context.Context, id int64, req *models.ConfirmDepositRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id, req))
}

func (m *mockService) Approve(ctx context.Context, id int64, req *models.ApproveRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id, req))
}

func (m *mockService) Terminate(ctx context.Context, id int64, req *models.TerminateRequest) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id, req))
}

func (m *mockService) GetByID(ctx context.Context, id int64) (*models.MappingResponse, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockService) List(ctx context.Context, req *models.ListMappingsRequest) (*models.MappingListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.MappingListResponse)
	return resp, args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func withID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"mappingId": id})
}

func TestHandler_Create(t *testing.T) {
	svc := &mockService{}
	h := NewHandler(svc, nopLogger{})

	svc.On("Create", mock.Anything, mock.MatchedBy(func(req *models.CreateMappingRequest) bool {
		return req.ConsultantID == 1 && req.ClientID == 2 && req.TotalSessions == 10 && req.PackagePrice.String() == "1500.5"
	})).Return(&models.MappingResponse{ID: 7, Status: string(domain.MappingPendingPayment)}, nil)

	body := `{"consultantId":1,"clientId":2,"packageName":"Basic","packagePrice":"1500.50","totalSessions":10}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mappings", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)

	var data models.MappingResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(7), data.ID)
	svc.AssertExpectations(t)
}

func TestHandler_Create_InvalidBody(t *testing.T) {
	h := NewHandler(&mockService{}, nopLogger{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mappings", strings.NewReader(`{"unknown":1}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: mappings.ErrMappingNotFound, want: http.StatusNotFound},
		{name: "invalid transition", err: fmt.Errorf("wrap: %w", domain.ErrInvalidTransition), want: http.StatusConflict},
		{name: "edit after payment", err: domain.ErrInvalidStateForEdit, want: http.StatusConflict},
		{name: "missing reference", err: domain.ErrMissingPaymentReference, want: http.StatusBadRequest},
		{name: "concurrent update", err: mappings.ErrConcurrentUpdate, want: http.StatusConflict},
		{name: "internal", err: mappings.ErrInternal, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			h := NewHandler(svc, nopLogger{})
			svc.On("ConfirmPayment", mock.Anything, int64(5), mock.Anything).Return(nil, tt.err)

			req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/mappings/5/confirm-payment",
				strings.NewReader(`{"paymentMethod":"TRANSFER"}`)), "5")
			rec := httptest.NewRecorder()
			h.ConfirmPayment(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func TestHandler_InvalidID(t *testing.T) {
	h := NewHandler(&mockService{}, nopLogger{})

	rec := httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/v1/mappings/abc", nil), "abc"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ConfirmDeposit_EmptyBody(t *testing.T) {
	svc := &mockService{}
	h := NewHandler(svc, nopLogger{})
	svc.On("ConfirmDeposit", mock.Anything, int64(3), &models.ConfirmDepositRequest{}).
		Return(&models.MappingResponse{ID: 3, Status: string(domain.MappingDepositPending)}, nil)

	rec := httptest.NewRecorder()
	h.ConfirmDeposit(rec, withID(httptest.NewRequest(http.MethodPost, "/api/v1/mappings/3/confirm-deposit", nil), "3"))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_List_Filters(t *testing.T) {
	svc := &mockService{}
	h := NewHandler(svc, nopLogger{})

	svc.On("List", mock.Anything, mock.MatchedBy(func(req *models.ListMappingsRequest) bool {
		return req.ConsultantID != nil && *req.ConsultantID == 4 && req.ClientID == nil &&
			assert.ObjectsAreEqual([]string{"ACTIVE", "DEPOSIT_PENDING"}, req.Statuses)
	})).Return(&models.MappingListResponse{Mappings: []models.MappingResponse{{ID: 1}}}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mappings?consultantId=4&status=ACTIVE,DEPOSIT_PENDING", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mappings?clientId=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
