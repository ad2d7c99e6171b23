package dupes

import (
	"context"

	"github.com/dustin/go-humanize"
)

// Scanner pulls every candidate file record from the index and groups them
// by filehash. Grouping is done in memory over the whole result set; the
// size-range ceiling in the criteria is what bounds it.
type Scanner struct {
	cfg *Config
	src CandidateSource
}

func NewScanner(cfg *Config, src CandidateSource) *Scanner {
	return &Scanner{cfg: cfg, src: src}
}

// Scan returns every filehash group with at least two members, plus the
// total number of candidate files across those groups. Zero groups is a
// normal result.
func (s *Scanner) Scan(ctx context.Context, crit Criteria) ([]HashGroup, int, error) {
	logger.Infof("Searching %s for all dupe filehashes...", crit.Index)

	filehashes := make(map[string][]FileRecord)
	err := s.src.ScanCandidates(ctx, crit, func(rec FileRecord, filehash string) error {
		filehashes[filehash] = append(filehashes[filehash], rec)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	groups := make([]HashGroup, 0, len(filehashes))
	possible := 0
	for filehash, files := range filehashes {
		if len(files) < 2 {
			continue
		}
		possible += len(files)
		groups = append(groups, HashGroup{FileHash: filehash, Files: files})
	}

	logger.Infof("Found %s possible dupe files", humanize.Comma(int64(possible)))
	return groups, possible, nil
}
