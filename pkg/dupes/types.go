package dupes

import (
	"context"

	"github.com/zhengshuai-xiao/DupeFinder/internal"
)

var logger = internal.GetLogger("dupefinder_dupes")

// FileRecord is one file document read from the index. Atime/Mtime keep the
// crawler's string encoding and are only parsed when times get restored.
// MD5 is empty until the file is confirmed as a duplicate.
type FileRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Atime    string `json:"atime"`
	Mtime    string `json:"mtime"`
	MD5      string `json:"md5"`
}

// HashGroup is one filehash plus the candidate files sharing it. A group is
// only ever built with at least two members.
type HashGroup struct {
	FileHash string       `json:"filehash"`
	Files    []FileRecord `json:"files"`
}

// Criteria selects which files of an index are candidate duplicates.
// MaxSize is the configured safety ceiling, MinSize comes from the caller.
type Criteria struct {
	Index            string `json:"index"`
	MinSize          int64  `json:"minsize"`
	MaxSize          int64  `json:"maxsize"`
	IncludeHardlinks bool   `json:"inchardlinks"`
}

// DupeUpdate is one partial-update operation: set dupe_md5 on a document.
type DupeUpdate struct {
	ID  string
	MD5 string
}

// CandidateSource is the read side of the index: it streams every candidate
// file record matching the criteria, together with its filehash.
type CandidateSource interface {
	ScanCandidates(ctx context.Context, crit Criteria, fn func(rec FileRecord, filehash string) error) error
}

// BulkTagger is the write side of the index: it applies a batch of dupe_md5
// partial updates in a single bulk request.
type BulkTagger interface {
	BulkUpdateDupes(ctx context.Context, index string, ops []DupeUpdate) error
}

// JobQueue is the remote job-submission client for the distributed queue.
type JobQueue interface {
	EnqueueGroups(ctx context.Context, crit Criteria, groups []HashGroup) error
	// Backlog reports how many enqueued batches no worker picked up yet.
	Backlog(ctx context.Context) (int, error)
	// WorkersBusy reports whether any batch is still pending or being
	// processed by a worker bot.
	WorkersBusy(ctx context.Context) (bool, error)
}
