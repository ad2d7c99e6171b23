package dupes

import "context"

// Writer applies confirmed duplicate hashes back to the index.
type Writer struct {
	tagger BulkTagger
}

func NewWriter(tagger BulkTagger) *Writer {
	return &Writer{tagger: tagger}
}

// Write bulk-updates dupe_md5 for every confirmed file of the group.
// A bulk failure is logged, not returned: one failed group must not abort
// the batch the worker bot is processing.
func (w *Writer) Write(ctx context.Context, index string, group *HashGroup) {
	ops := buildUpdates(group)
	if len(ops) == 0 {
		return
	}
	if err := w.tagger.BulkUpdateDupes(ctx, index, ops); err != nil {
		logger.Errorf("failed to bulk update %d dupe tags in %s: %v", len(ops), index, err)
		return
	}
	logger.Debugf("tagged %d dupe files in %s (filehash %s)", len(ops), index, group.FileHash)
}

// buildUpdates emits one partial-update operation per confirmed file.
func buildUpdates(group *HashGroup) []DupeUpdate {
	var ops []DupeUpdate
	for _, f := range group.Files {
		if f.MD5 == "" {
			continue
		}
		ops = append(ops, DupeUpdate{ID: f.ID, MD5: f.MD5})
	}
	return ops
}
