package mocks

import (
	"context"
	"net/url"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// MockAuthAPI is a mock implementation of domain.AuthAPI.
type MockAuthAPI struct {
	mu sync.Mutex

	MeFunc                func(ctx context.Context) (*domain.Identity, error)
	LoginFunc             func(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error)
	RegisterFunc          func(ctx context.Context, req domain.RegisterRequest) (domain.TokenResponse, error)
	PermittedProjectsFunc func(ctx context.Context) ([]string, error)

	MeCalls                int
	PermittedProjectsCalls int
}

func (m *MockAuthAPI) Me(ctx context.Context) (*domain.Identity, error) {
	m.mu.Lock()
	m.MeCalls++
	m.mu.Unlock()
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return &domain.Identity{}, nil
}

func (m *MockAuthAPI) Login(ctx context.Context, req domain.LoginRequest) (domain.TokenResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return domain.TokenResponse{}, nil
}

func (m *MockAuthAPI) Register(ctx context.Context, req domain.RegisterRequest) (domain.TokenResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return domain.TokenResponse{}, nil
}

func (m *MockAuthAPI) PermittedProjects(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.PermittedProjectsCalls++
	m.mu.Unlock()
	if m.PermittedProjectsFunc != nil {
		return m.PermittedProjectsFunc(ctx)
	}
	return nil, nil
}

// MockLogAPI is a mock implementation of domain.LogAPI.
type MockLogAPI struct {
	mu sync.Mutex

	LogsResult     []domain.LogRecord
	LogsErr        error
	Distinct       domain.FilterOptions
	DistinctErr    error
	Counts         domain.LevelCounts
	CountsErr      error
	ReceivedParams []url.Values
	DistinctCalls  int
}

func (m *MockLogAPI) Logs(ctx context.Context, params url.Values) ([]domain.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReceivedParams = append(m.ReceivedParams, params)
	if m.LogsErr != nil {
		return nil, m.LogsErr
	}
	return m.LogsResult, nil
}

func (m *MockLogAPI) DistinctValues(ctx context.Context) (domain.FilterOptions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DistinctCalls++
	if m.DistinctErr != nil {
		return domain.FilterOptions{}, m.DistinctErr
	}
	return m.Distinct, nil
}

func (m *MockLogAPI) CountByLevel(ctx context.Context) (domain.LevelCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountsErr != nil {
		return nil, m.CountsErr
	}
	return m.Counts, nil
}
