//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/adapter"
	"analysis-gateway/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Adapters
// =============================

// ---- Mock JobClient ----

// MockJobClient scripts the backend. Poll answers come from Statuses in order;
// the last entry repeats once the script is exhausted.
type MockJobClient struct {
	mu sync.Mutex

	OpenDelay time.Duration
	OpenErr   error
	SubmitErr error
	StartErr  error
	PollErr   error
	Statuses  map[model.AnalysisType][]model.JobStatus
	Results   map[model.AnalysisType]string
	FetchErr  error

	opens   int32
	fetches int32
	polls   map[string]int
	texts   map[string][]string
	nextID  int
	ctxType map[string]model.AnalysisType
}

var _ adapter.JobClient = (*MockJobClient)(nil)

func NewMockJobClient() *MockJobClient {
	return &MockJobClient{
		Statuses: map[model.AnalysisType][]model.JobStatus{},
		Results:  map[model.AnalysisType]string{},
		polls:    map[string]int{},
		texts:    map[string][]string{},
		ctxType:  map[string]model.AnalysisType{},
	}
}

func (m *MockJobClient) Open(ctx context.Context, t model.AnalysisType) (string, error) {
	atomic.AddInt32(&m.opens, 1)
	if m.OpenDelay > 0 {
		time.Sleep(m.OpenDelay)
	}
	if m.OpenErr != nil {
		return "", m.OpenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := "ctx-" + string(t) + "-" + strconv.Itoa(m.nextID)
	m.ctxType[id] = t
	return id, nil
}

func (m *MockJobClient) Submit(ctx context.Context, contextID, text string) error {
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[contextID] = append(m.texts[contextID], text)
	return nil
}

func (m *MockJobClient) Start(ctx context.Context, contextID string, t model.AnalysisType) (string, error) {
	if m.StartErr != nil {
		return "", m.StartErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return "job-" + string(t) + "-" + strconv.Itoa(m.nextID), nil
}

func (m *MockJobClient) Poll(ctx context.Context, contextID, jobID string) (model.JobStatus, error) {
	if m.PollErr != nil {
		return "", m.PollErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.ctxType[contextID]
	script := m.Statuses[t]
	n := m.polls[jobID]
	m.polls[jobID] = n + 1
	if len(script) == 0 {
		return model.JobStatusSucceeded, nil
	}
	if n >= len(script) {
		return script[len(script)-1], nil
	}
	return script[n], nil
}

func (m *MockJobClient) FetchResult(ctx context.Context, contextID string) (string, error) {
	atomic.AddInt32(&m.fetches, 1)
	if m.FetchErr != nil {
		return "", m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.ctxType[contextID]
	if out, ok := m.Results[t]; ok {
		return out, nil
	}
	return "result for " + string(t), nil
}

func (m *MockJobClient) Opens() int   { return int(atomic.LoadInt32(&m.opens)) }
func (m *MockJobClient) Fetches() int { return int(atomic.LoadInt32(&m.fetches)) }

// TotalPolls sums polls over every job.
func (m *MockJobClient) TotalPolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.polls {
		n += p
	}
	return n
}

func (m *MockJobClient) Submitted(contextID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts[contextID]...)
}

// ---- Mock IdentityProvider ----

type MockIdentity struct {
	Users map[string]int64 // "user:pass" -> id
	Err   error
}

var _ adapter.IdentityProvider = (*MockIdentity)(nil)

func (m *MockIdentity) Validate(ctx context.Context, username, password string) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if id, ok := m.Users[username+":"+password]; ok {
		return id, nil
	}
	return 0, domain.ErrInvalidCredentials
}

// ---- Mock TokenIssuer ----

type MockTokens struct {
	Issued []int64
}

func (m *MockTokens) Issue(userID int64, username string) (string, error) {
	m.Issued = append(m.Issued, userID)
	return "token-" + username, nil
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository (in-memory ledger) ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User
	plans *MockPlanRepo

	reserveCalls int32
	ReserveErr   error
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(plans *MockPlanRepo) *MockUserRepo {
	return &MockUserRepo{users: map[int64]*model.User{}, plans: plans}
}

func (m *MockUserRepo) Seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		existing.Email = u.Email
		existing.PlanID = u.PlanID
		existing.ResetDate = u.ResetDate
		return false, nil
	}
	cp := *u
	m.users[u.ID] = &cp
	return true, nil
}

func (m *MockUserRepo) record(u *model.User) (*model.QuotaRecord, error) {
	p, err := m.plans.FindByID(context.Background(), nil, u.PlanID)
	if err != nil {
		return nil, err
	}
	return &model.QuotaRecord{
		UserID:    u.ID,
		PlanID:    u.PlanID,
		Used:      u.UsedRequests,
		Total:     p.TotalRequests,
		ResetDate: u.ResetDate,
	}, nil
}

func (m *MockUserRepo) FindQuota(ctx context.Context, tx repository.Tx, userID int64) (*model.QuotaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.record(u)
}

func (m *MockUserRepo) ReserveRequests(ctx context.Context, tx repository.Tx, userID int64, count int) (*model.QuotaRecord, error) {
	atomic.AddInt32(&m.reserveCalls, 1)
	if m.ReserveErr != nil {
		return nil, m.ReserveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec, err := m.record(u)
	if err != nil {
		return nil, err
	}
	if count <= 0 || rec.Used+count > rec.Total {
		return nil, domain.ErrQuotaExceeded
	}
	u.UsedRequests += count
	rec.Used = u.UsedRequests
	return rec, nil
}

func (m *MockUserRepo) ResetDue(ctx context.Context, tx repository.Tx, now time.Time, period time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if !u.ResetDate.After(now) {
			u.UsedRequests = 0
			u.ResetDate = u.ResetDate.Add(period)
			n++
		}
	}
	return n, nil
}

func (m *MockUserRepo) ReserveCalls() int { return int(atomic.LoadInt32(&m.reserveCalls)) }

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[int64]*model.Plan
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	m := &MockPlanRepo{plans: map[int64]*model.Plan{}}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- Mock ContextStore ----

type MockContextStore struct {
	mu     sync.Mutex
	ids    map[model.AnalysisType]string
	GetErr error
}

var _ repository.ContextStore = (*MockContextStore)(nil)

func NewMockContextStore() *MockContextStore {
	return &MockContextStore{ids: map[model.AnalysisType]string{}}
}

func (m *MockContextStore) Get(ctx context.Context, t model.AnalysisType) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[t], nil
}

func (m *MockContextStore) SetIfAbsent(ctx context.Context, t model.AnalysisType, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.ids[t]; ok {
		return cur, nil
	}
	m.ids[t] = id
	return id, nil
}

func (m *MockContextStore) Delete(ctx context.Context, t model.AnalysisType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[t] == id {
		delete(m.ids, t)
	}
	return nil
}

func (m *MockContextStore) Stored(t model.AnalysisType) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[t]
}

// ---- Mock JobRecorder ----

type MockRecorder struct {
	mu   sync.Mutex
	Jobs []model.AnalysisJob
}

func (m *MockRecorder) Record(job *model.AnalysisJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, *job)
}

func (m *MockRecorder) Snapshot() []model.AnalysisJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AnalysisJob(nil), m.Jobs...)
}

// ---- Mock AnalysisJobRepository ----

type MockAnalysisJobRepo struct {
	mu   sync.Mutex
	Jobs []*model.AnalysisJob
}

var _ repository.AnalysisJobRepository = (*MockAnalysisJobRepo)(nil)

func (m *MockAnalysisJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, job)
	return nil
}

func (m *MockAnalysisJobRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Jobs)
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
