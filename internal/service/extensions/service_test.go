package extensions

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	extensionRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/extension"
	mappingRepo "github.com/m04kA/SMC-CounselingService/internal/infra/storage/mapping"
	"github.com/m04kA/SMC-CounselingService/internal/integrations/userservice"
	"github.com/m04kA/SMC-CounselingService/internal/service/extensions/models"
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

func (r *memMappings) List(_ context.Context, filter domain.MappingsFilter) ([]*domain.Mapping, error) {
	out := make([]*domain.Mapping, 0)
	for id := int64(1); id <= int64(len(r.rows))+10; id++ {
		m, ok := r.rows[id]
		if !ok {
			continue
		}
		for _, s := range filter.Statuses {
			if m.Status == s {
				cp := *m
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (r *memMappings) UpdateState(_ context.Context, prev, next *domain.Mapping) (*domain.Mapping, error) {
	stored := r.rows[prev.ID]
	if stored.Status != prev.Status || stored.TotalSessions != prev.TotalSessions || stored.UsedSessions != prev.UsedSessions {
		return nil, mappingRepo.ErrConcurrentUpdate
	}
	cp := *next
	r.rows[prev.ID] = &cp
	return &cp, nil
}

type memExtensions struct {
	rows   map[int64]*domain.ExtensionRequest
	nextID int64
}

func (r *memExtensions) Create(_ context.Context, req *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
	for _, existing := range r.rows {
		if existing.MappingID == req.MappingID && !existing.Status.IsTerminal() {
			return nil, extensionRepo.ErrOpenRequestExists
		}
	}
	r.nextID++
	cp := *req
	cp.ID = r.nextID
	r.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memExtensions) GetByID(_ context.Context, id int64) (*domain.ExtensionRequest, error) {
	req, ok := r.rows[id]
	if !ok {
		return nil, extensionRepo.ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memExtensions) List(_ context.Context, filter domain.ExtensionsFilter) ([]*domain.ExtensionRequest, error) {
	out := make([]*domain.ExtensionRequest, 0, len(r.rows))
	for _, req := range r.rows {
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memExtensions) UpdateState(_ context.Context, prevStatus domain.ExtensionStatus, next *domain.ExtensionRequest) (*domain.ExtensionRequest, error) {
	stored := r.rows[next.ID]
	if stored.Status != prevStatus {
		return nil, extensionRepo.ErrConcurrentUpdate
	}
	cp := *next
	r.rows[next.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memExtensions) CompletedMappingIDs(_ context.Context, _ []int64) (map[int64]struct{}, error) {
	ids := map[int64]struct{}{}
	for _, req := range r.rows {
		if req.Status == domain.ExtensionCompleted {
			ids[req.MappingID] = struct{}{}
		}
	}
	return ids, nil
}

func inPeriod(t time.Time, period domain.StatsPeriod) bool {
	if period.From != nil && t.Before(*period.From) {
		return false
	}
	return period.To == nil || t.Before(*period.To)
}

func (r *memExtensions) CountByStatus(_ context.Context, period domain.StatsPeriod) (map[domain.ExtensionStatus]int64, error) {
	counts := map[domain.ExtensionStatus]int64{}
	for _, req := range r.rows {
		if inPeriod(req.CreatedAt, period) {
			counts[req.Status]++
		}
	}
	return counts, nil
}

func (r *memExtensions) StatsByRequester(_ context.Context, period domain.StatsPeriod) ([]domain.RequesterStats, error) {
	byID := map[int64]*domain.RequesterStats{}
	for _, req := range r.rows {
		if !inPeriod(req.CreatedAt, period) {
			continue
		}
		st, ok := byID[req.RequesterID]
		if !ok {
			st = &domain.RequesterStats{RequesterID: req.RequesterID, TotalAmount: decimal.Zero}
			byID[req.RequesterID] = st
		}
		st.RequestCount++
		st.TotalAmount = st.TotalAmount.Add(req.PackagePrice)
	}

	out := make([]domain.RequesterStats, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestCount != out[j].RequestCount {
			return out[i].RequestCount > out[j].RequestCount
		}
		return out[i].RequesterID < out[j].RequesterID
	})
	return out, nil
}

type fakeUsers struct {
	users map[int64]*userservice.User
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*userservice.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, userservice.ErrUserNotFound
	}
	return u, nil
}

type fakeLedger struct {
	entries []domain.LedgerEntry
}

func (f *fakeLedger) Publish(_ context.Context, e domain.LedgerEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakeMetrics struct {
	transitions        []string
	mappingTransitions []string
}

func (f *fakeMetrics) ExtensionTransition(from, to string) {
	f.transitions = append(f.transitions, from+"->"+to)
}

func (f *fakeMetrics) MappingTransition(from, to string) {
	f.mappingTransitions = append(f.mappingTransitions, from+"->"+to)
}

const (
	consultantID int64 = 10
	clientID     int64 = 20
	otherClient  int64 = 30
	adminID      int64 = 77
)

// racingMappings имитирует параллельную запись: UpdateState всегда проигрывает CAS
type racingMappings struct {
	*memMappings
}

func (r *racingMappings) UpdateState(context.Context, *domain.Mapping, *domain.Mapping) (*domain.Mapping, error) {
	return nil, mappingRepo.ErrConcurrentUpdate
}

type fixture struct {
	svc        *Service
	mappings   *memMappings
	extensions *memExtensions
	users      *fakeUsers
	ledger     *fakeLedger
	metrics    *fakeMetrics
}

func newFixture() *fixture {
	f := &fixture{
		mappings: &memMappings{rows: map[int64]*domain.Mapping{
			1: {ID: 1, ConsultantID: consultantID, ClientID: clientID, Status: domain.MappingActive, TotalSessions: 20, UsedSessions: 0, RemainingSessions: 20},
			2: {ID: 2, ConsultantID: consultantID, ClientID: clientID, Status: domain.MappingInactive, TotalSessions: 5, UsedSessions: 5, RemainingSessions: 0},
			3: {ID: 3, ConsultantID: consultantID, ClientID: clientID, Status: domain.MappingPendingPayment, TotalSessions: 5, RemainingSessions: 5},
			// квота исчерпана, маппинг ждет продления
			4: {ID: 4, ConsultantID: consultantID, ClientID: clientID, Status: domain.MappingActive, TotalSessions: 5, UsedSessions: 5, RemainingSessions: 0},
		}},
		users: &fakeUsers{users: map[int64]*userservice.User{
			consultantID: {ID: consultantID, Name: "Consultant", Role: userservice.RoleConsultant},
			clientID:     {ID: clientID, Name: "Client", Role: userservice.RoleClient},
			otherClient:  {ID: otherClient, Name: "Other", Role: userservice.RoleClient},
			adminID:      {ID: adminID, Name: "Admin", Role: userservice.RoleAdmin},
		}},
		extensions: &memExtensions{rows: map[int64]*domain.ExtensionRequest{}},
		ledger:     &fakeLedger{},
		metrics:    &fakeMetrics{},
	}
	f.svc = NewService(f.extensions, f.mappings, f.users, f.ledger, fakeTx{}, f.metrics, nopLogger{})
	f.svc.timeProvider = fixedTime{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	return f
}

func (f *fixture) create(t *testing.T, mappingID int64, sessions int) int64 {
	t.Helper()

	resp, err := f.svc.Create(context.Background(), &models.CreateExtensionRequest{
		MappingID:          mappingID,
		RequesterID:        clientID,
		AdditionalSessions: sessions,
		PackageName:        "Extra",
		PackagePrice:       decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ExtensionPending), resp.Status)
	assert.Equal(t, clientID, resp.RequesterID)
	return resp.ID
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, n := range []int{0, 1001} {
		_, err := f.svc.Create(ctx, &models.CreateExtensionRequest{MappingID: 1, RequesterID: clientID, AdditionalSessions: n})
		assert.ErrorIs(t, err, domain.ErrInvalidSessionCount, "n=%d", n)
	}

	_, err := f.svc.Create(ctx, &models.CreateExtensionRequest{MappingID: 99, RequesterID: clientID, AdditionalSessions: 1})
	assert.ErrorIs(t, err, ErrMappingNotFound)

	_, err = f.svc.Create(ctx, &models.CreateExtensionRequest{MappingID: 2, RequesterID: clientID, AdditionalSessions: 1})
	assert.ErrorIs(t, err, ErrMappingNotEligible)

	_, err = f.svc.Create(ctx, &models.CreateExtensionRequest{MappingID: 1, AdditionalSessions: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequester)
}

func TestService_Create_Requester(t *testing.T) {
	tests := []struct {
		name        string
		requesterID int64
		wantErr     error
	}{
		{name: "client of mapping", requesterID: clientID},
		{name: "consultant of mapping", requesterID: consultantID},
		{name: "administrator", requesterID: adminID},
		{name: "client of another mapping", requesterID: otherClient, wantErr: ErrRequesterNotAllowed},
		{name: "unknown user", requesterID: 999, wantErr: ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			resp, err := f.svc.Create(context.Background(), &models.CreateExtensionRequest{
				MappingID:          1,
				RequesterID:        tt.requesterID,
				AdditionalSessions: 5,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.extensions.rows)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.requesterID, resp.RequesterID)
		})
	}
}

func TestService_Create_OneOpenRequestPerMapping(t *testing.T) {
	f := newFixture()
	f.create(t, 1, 5)

	_, err := f.svc.Create(context.Background(), &models.CreateExtensionRequest{MappingID: 1, RequesterID: clientID, AdditionalSessions: 3})
	assert.ErrorIs(t, err, ErrPendingRequestExists)
}

func TestService_ConfirmPayment_FastPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 1, 10)

	resp, err := f.svc.ConfirmPayment(ctx, id, &models.ConfirmPaymentRequest{PaymentMethod: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ExtensionCompleted), resp.Status)

	m := f.mappings.rows[1]
	assert.Equal(t, 30, m.TotalSessions)
	assert.Equal(t, 30, m.RemainingSessions)

	require.Len(t, f.ledger.entries, 1)
	assert.Equal(t, domain.ExtensionLedgerKey(id, domain.LedgerCashIncome), f.ledger.entries[0].IdempotencyKey)

	// повтор не применяет дельту второй раз
	_, err = f.svc.ConfirmPayment(ctx, id, &models.ConfirmPaymentRequest{PaymentMethod: "CASH"})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Equal(t, 30, f.mappings.rows[1].TotalSessions)
	assert.Len(t, f.ledger.entries, 1)
}

func TestService_ConfirmPayment_MissingReference(t *testing.T) {
	f := newFixture()
	id := f.create(t, 1, 10)

	_, err := f.svc.ConfirmPayment(context.Background(), id, &models.ConfirmPaymentRequest{PaymentMethod: "TRANSFER"})
	assert.ErrorIs(t, err, domain.ErrMissingPaymentReference)
	assert.Equal(t, domain.ExtensionPending, f.extensions.rows[id].Status)
	assert.Equal(t, 20, f.mappings.rows[1].TotalSessions)
}

func TestService_ApproveThenComplete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 1, 10)

	resp, err := f.svc.Approve(ctx, id, adminID, &models.ApproveRequest{Comment: "paid at reception"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ExtensionAdminApproved), resp.Status)
	assert.Equal(t, adminID, *resp.ApprovedBy)
	require.NotNil(t, resp.AdminComment)
	assert.Equal(t, "paid at reception", *resp.AdminComment)
	assert.Equal(t, 20, f.mappings.rows[1].TotalSessions, "approval alone does not add sessions")

	resp, err = f.svc.Complete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.ExtensionCompleted), resp.Status)
	assert.Equal(t, 30, f.mappings.rows[1].TotalSessions)
	assert.Equal(t, 30, f.mappings.rows[1].RemainingSessions)

	_, err = f.svc.Complete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	assert.Equal(t, 30, f.mappings.rows[1].TotalSessions)

	assert.Equal(t, []string{"PENDING->ADMIN_APPROVED", "ADMIN_APPROVED->COMPLETED"}, f.metrics.transitions)
}

func TestService_AdminDecisions_RequireAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 1, 10)

	_, err := f.svc.Approve(ctx, id, clientID, &models.ApproveRequest{})
	assert.ErrorIs(t, err, ErrAdminRequired)

	_, err = f.svc.Approve(ctx, id, 999, &models.ApproveRequest{})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Reject(ctx, id, consultantID, &models.RejectRequest{Reason: "no"})
	assert.ErrorIs(t, err, ErrAdminRequired)

	assert.Equal(t, domain.ExtensionPending, f.extensions.rows[id].Status)
	assert.Empty(t, f.metrics.transitions)
}

func TestService_Complete_RequiresApproval(t *testing.T) {
	f := newFixture()
	id := f.create(t, 1, 10)

	_, err := f.svc.Complete(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestService_Reject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 1, 10)

	resp, err := f.svc.Reject(ctx, id, adminID, &models.RejectRequest{Reason: "duplicate"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ExtensionRejected), resp.Status)
	assert.Equal(t, adminID, *resp.RejectedBy)
	assert.Equal(t, 20, f.mappings.rows[1].TotalSessions)
	assert.Equal(t, domain.MappingActive, f.mappings.rows[1].Status, "mapping with remaining sessions stays active")
	assert.Empty(t, f.ledger.entries)
	assert.Empty(t, f.metrics.mappingTransitions)

	// после отклонения можно создать новый запрос
	f.create(t, 1, 2)
}

func TestService_Reject_DeactivatesExhaustedMapping(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 4, 5)

	_, err := f.svc.Reject(ctx, id, adminID, &models.RejectRequest{Reason: "not paid"})
	require.NoError(t, err)

	m := f.mappings.rows[4]
	assert.Equal(t, domain.MappingInactive, m.Status)
	assert.Equal(t, 5, m.TotalSessions)
	assert.Equal(t, 0, m.RemainingSessions)
	assert.Equal(t, []string{"PENDING->REJECTED"}, f.metrics.transitions)
	assert.Equal(t, []string{"ACTIVE->INACTIVE"}, f.metrics.mappingTransitions)

	_, err = f.svc.Create(ctx, &models.CreateExtensionRequest{MappingID: 4, RequesterID: clientID, AdditionalSessions: 5})
	assert.ErrorIs(t, err, ErrMappingNotEligible)
}

func TestService_Reject_ConcurrentMappingChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t, 4, 5)

	// маппинг меняется между чтением и записью
	f.svc.mappingRepo = &racingMappings{memMappings: f.mappings}

	_, err := f.svc.Reject(ctx, id, adminID, &models.RejectRequest{})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, domain.MappingActive, f.mappings.rows[4].Status)
	assert.Empty(t, f.metrics.mappingTransitions)
}

func TestService_ListEligibleMappings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp, err := f.svc.ListEligibleMappings(ctx, nil, nil)
	require.NoError(t, err)
	ids := make([]int64, 0)
	for _, m := range resp.Mappings {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []int64{1, 3, 4}, ids)

	id := f.create(t, 1, 10)
	_, err = f.svc.ConfirmPayment(ctx, id, &models.ConfirmPaymentRequest{PaymentMethod: "CASH"})
	require.NoError(t, err)

	resp, err = f.svc.ListEligibleMappings(ctx, nil, nil)
	require.NoError(t, err)
	ids = ids[:0]
	for _, m := range resp.Mappings {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []int64{3, 4}, ids)
}

func TestService_Statistics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 3, d, 9, 0, 0, 0, time.UTC) }
	f.extensions.rows = map[int64]*domain.ExtensionRequest{
		1: {ID: 1, MappingID: 1, RequesterID: clientID, Status: domain.ExtensionPending, PackagePrice: decimal.NewFromInt(500), CreatedAt: day(9)},
		2: {ID: 2, MappingID: 1, RequesterID: clientID, Status: domain.ExtensionCompleted, PackagePrice: decimal.NewFromInt(1000), CreatedAt: day(1)},
		3: {ID: 3, MappingID: 4, RequesterID: consultantID, Status: domain.ExtensionRejected, PackagePrice: decimal.NewFromInt(300),
			CreatedAt: time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)},
	}

	start, end := day(1), day(9)
	resp, err := f.svc.Statistics(ctx, &models.StatisticsRequest{StartDate: &start, EndDate: &end})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", *resp.StartDate)
	assert.Equal(t, "2025-03-09", *resp.EndDate)
	assert.Equal(t, int64(2), resp.Period.Total)
	assert.Equal(t, int64(1), resp.Period.ByStatus["PENDING"])
	assert.Equal(t, int64(1), resp.Period.ByStatus["COMPLETED"])
	assert.Equal(t, int64(0), resp.Period.ByStatus["REJECTED"])
	assert.Len(t, resp.Period.ByStatus, len(domain.ExtensionStatuses))

	// последние 7 дней от 2025-03-10 12:00
	assert.Equal(t, int64(1), resp.LastWeek.Total)
	assert.Equal(t, int64(1), resp.LastWeek.ByStatus["PENDING"])

	require.Len(t, resp.Requesters, 1)
	assert.Equal(t, clientID, resp.Requesters[0].RequesterID)
	assert.Equal(t, "Client", resp.Requesters[0].RequesterName)
	assert.Equal(t, int64(2), resp.Requesters[0].RequestCount)
	assert.Equal(t, "1500.00", resp.Requesters[0].TotalAmount)

	all, err := f.svc.Statistics(ctx, &models.StatisticsRequest{})
	require.NoError(t, err)
	assert.Nil(t, all.StartDate)
	assert.Equal(t, int64(3), all.Period.Total)
	require.Len(t, all.Requesters, 2)
	assert.Equal(t, clientID, all.Requesters[0].RequesterID)
	assert.Equal(t, consultantID, all.Requesters[1].RequesterID)

	_, err = f.svc.Statistics(ctx, &models.StatisticsRequest{StartDate: &end, EndDate: &start})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = f.svc.Complete(context.Background(), 5)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
