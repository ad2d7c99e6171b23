package dupes

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockJobQueue is a mock implementation of the JobQueue interface for testing.
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueGroups(ctx context.Context, crit Criteria, groups []HashGroup) error {
	args := m.Called(ctx, crit, groups)
	return args.Error(0)
}

func (m *MockJobQueue) Backlog(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockJobQueue) WorkersBusy(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockBulkTagger is a mock implementation of the BulkTagger interface.
type MockBulkTagger struct {
	mock.Mock
}

func (m *MockBulkTagger) BulkUpdateDupes(ctx context.Context, index string, ops []DupeUpdate) error {
	args := m.Called(ctx, index, ops)
	return args.Error(0)
}

// fakeSource replays canned index records to the scanner.
type fakeSource struct {
	records []fakeRecord
	err     error
}

type fakeRecord struct {
	rec      FileRecord
	filehash string
}

func (f *fakeSource) ScanCandidates(ctx context.Context, crit Criteria, fn func(rec FileRecord, filehash string) error) error {
	if f.err != nil {
		return f.err
	}
	for _, r := range f.records {
		if err := fn(r.rec, r.filehash); err != nil {
			return err
		}
	}
	return nil
}
