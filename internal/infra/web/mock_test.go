//go:build !integration

package web

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/usecase"
)

type mockAnalysisUC struct {
	gotUser int64
	gotReq  model.BatchRequest
	res     *model.BatchResult
	err     error
	block   bool // wait for the request context to end
}

func (m *mockAnalysisUC) Dispatch(ctx context.Context, userID int64, req model.BatchRequest) (*model.BatchResult, error) {
	m.gotUser, m.gotReq = userID, req
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.res, m.err
}

type mockQuotaUC struct {
	rec *model.QuotaRecord
	err error
}

func (m *mockQuotaUC) Reserve(ctx context.Context, userID int64, count int) (model.QuotaSnapshot, error) {
	return model.QuotaSnapshot{}, nil
}

func (m *mockQuotaUC) Status(ctx context.Context, userID int64) (*model.QuotaRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.rec == nil || m.rec.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return m.rec, nil
}

func (m *mockQuotaUC) ResetDue(ctx context.Context) (int, error) { return 0, nil }

type mockUserUC struct {
	calls   int
	created bool
	total   int
	err     error
}

func (m *mockUserUC) AssignPlan(ctx context.Context, userID int64, email string, planID int64) (*usecase.PlanAssignment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, err := model.NewUser(userID, email, planID, time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	return &usecase.PlanAssignment{User: u, TotalRequests: m.total, Created: m.created}, nil
}

type mockAuthUC struct {
	token string
	err   error
}

func (m *mockAuthUC) Login(ctx context.Context, username, password string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if username == "" || password == "" {
		return "", domain.ErrInvalidRequest
	}
	return m.token, nil
}

type fixture struct {
	srv      *Server
	tokens   *TokenManager
	analysis *mockAnalysisUC
	quota    *mockQuotaUC
	users    *mockUserUC
	auth     *mockAuthUC
}

func newFixture() *fixture {
	f := &fixture{
		tokens:   NewTokenManager("test-secret", time.Hour),
		analysis: &mockAnalysisUC{},
		quota:    &mockQuotaUC{},
		users:    &mockUserUC{total: 100},
		auth:     &mockAuthUC{token: "tok"},
	}
	logger := zerolog.New(io.Discard)
	f.srv = NewServer(Deps{
		Analysis:           f.analysis,
		Quota:              f.quota,
		Users:              f.users,
		Auth:               f.auth,
		Tokens:             f.tokens,
		SubscriptionAPIKey: "sub-key",
		RequestTimeout:     time.Second,
	}, &logger)
	return f
}
