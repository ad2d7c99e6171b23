package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
)

func querySource(t *testing.T, crit dupes.Criteria) string {
	t.Helper()
	src, err := candidateQuery(crit).Source()
	assert.NoError(t, err)
	raw, err := json.Marshal(src)
	assert.NoError(t, err)
	return string(raw)
}

func TestCandidateQueryHardlinkPolarity(t *testing.T) {
	crit := dupes.Criteria{MinSize: 1024, MaxSize: 1 << 30}

	t.Run("ExcludeHardlinked", func(t *testing.T) {
		// Default: only files with a hardlink count of 1 are candidates.
		raw := querySource(t, crit)
		assert.Contains(t, raw, `"hardlinks":1`)
		assert.Contains(t, raw, `"filesize"`)
	})

	t.Run("IncludeHardlinked", func(t *testing.T) {
		crit.IncludeHardlinks = true
		raw := querySource(t, crit)
		assert.NotContains(t, raw, "hardlinks")
		assert.Contains(t, raw, `"filesize"`)
	})
}

func TestCandidateQuerySizeRange(t *testing.T) {
	raw := querySource(t, dupes.Criteria{MinSize: 100, MaxSize: 5000})
	assert.Contains(t, raw, `"from":100`)
	assert.Contains(t, raw, `"to":5000`)
}

func TestRecordPath(t *testing.T) {
	assert.Equal(t, "/data/dir/file.txt", recordPath("/data/dir", "file.txt"))
	assert.Equal(t, "/data/dir/file.txt", recordPath("/data/dir/", "file.txt"))
	assert.Equal(t, "/file.txt", recordPath("/", "file.txt"))
}

func TestFileSourceMapping(t *testing.T) {
	// Field names are the crawler's schema; a mismatch silently loses data.
	raw := []byte(`{
		"filename": "report.pdf",
		"filehash": "deadbeef",
		"path_parent": "/mnt/share/docs",
		"last_modified": "2019-03-01T12:30:45",
		"last_access": "2019-04-02T01:02:03"
	}`)
	var src fileSource
	assert.NoError(t, json.Unmarshal(raw, &src))
	assert.Equal(t, "report.pdf", src.Filename)
	assert.Equal(t, "deadbeef", src.FileHash)
	assert.Equal(t, "/mnt/share/docs", src.PathParent)
	assert.Equal(t, "2019-03-01T12:30:45", src.LastModified)
	assert.Equal(t, "2019-04-02T01:02:03", src.LastAccess)
}
