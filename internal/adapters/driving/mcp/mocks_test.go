package mcp

import (
	"context"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	response  domain.RAGResponse
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockRetrievalService) Search(_ context.Context, query string, opts domain.SearchOptions) domain.RAGResponse {
	m.lastQuery = query
	m.lastOpts = opts
	return m.response
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	result    domain.IngestionResult
	stats     *domain.IngestionStats
	err       error
	lastPath  string
	lastDocID string
}

func (m *mockIngestionService) IngestDocument(_ context.Context, path, docID string) domain.IngestionResult {
	m.lastPath = path
	m.lastDocID = docID
	return m.result
}

func (m *mockIngestionService) IngestDirectory(_ context.Context, dir string) (*domain.IngestionStats, error) {
	m.lastPath = dir
	return m.stats, m.err
}

func (m *mockIngestionService) Rebuild(ctx context.Context, dir string) (*domain.IngestionStats, error) {
	return m.IngestDirectory(ctx, dir)
}

func (m *mockIngestionService) Supports(_ string) bool {
	return true
}

// mockCollectionService is a mock implementation of driving.CollectionService.
type mockCollectionService struct {
	documents []domain.DocumentInfo
	info      *domain.CollectionInfo
	health    domain.HealthReport
	err       error
}

func (m *mockCollectionService) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockCollectionService) DeleteDocument(_ context.Context, _ string) (bool, error) {
	return m.err == nil, m.err
}

func (m *mockCollectionService) ClearCollection(_ context.Context) (bool, error) {
	return m.err == nil, m.err
}

func (m *mockCollectionService) GetCollectionInfo(_ context.Context) (*domain.CollectionInfo, error) {
	return m.info, m.err
}

func (m *mockCollectionService) HealthCheck(_ context.Context) domain.HealthReport {
	return m.health
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(_, _ string) error { return nil }

func (m *mockSettingsService) Keys() []string { return nil }

func (m *mockSettingsService) Values() (map[string]string, error) { return map[string]string{}, nil }

func (m *mockSettingsService) Path() string { return "" }
