package dupes

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
)

func newTestPool(t *testing.T, mutate func(*Config)) *HashPool {
	cfg := DefaultConfig()
	cfg.Threads = 2
	cfg.ReadBlockSize = 1024
	if mutate != nil {
		mutate(cfg)
	}
	pool := NewHashPool(cfg)
	pool.Start()
	t.Cleanup(pool.Stop)
	return pool
}

func writeTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestHashPoolDigest(t *testing.T) {
	dir := t.TempDir()
	content := []byte("some file content spanning multiple read blocks, repeated: ")
	for i := 0; i < 7; i++ {
		content = append(content, content...)
	}
	path := writeTestFile(t, dir, "a", content)

	pool := newTestPool(t, nil)
	pool.Submit(path, "", "")
	pool.Await()
	results := pool.Drain()

	sum := md5.Sum(content)
	assert.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
	assert.Equal(t, hex.EncodeToString(sum[:]), results[0].MD5)
}

func TestHashPoolDropsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeTestFile(t, dir, "good", []byte("payload"))

	pool := newTestPool(t, nil)
	pool.Submit(filepath.Join(dir, "missing"), "", "")
	pool.Submit(good, "", "")
	pool.Await()
	results := pool.Drain()

	// The failed request emits no result but must not stall the barrier.
	assert.Len(t, results, 1)
	assert.Equal(t, good, results[0].Path)
}

func TestHashPoolRestoresTimes(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a", []byte("payload"))

	pool := newTestPool(t, func(cfg *Config) { cfg.RestoreTimes = true })
	pool.Submit(path, "2018-07-04T08:00:00", "2018-07-04T09:30:00")
	pool.Await()
	assert.Len(t, pool.Drain(), 1)

	at, mt, err := internal.FileTimes(path)
	assert.NoError(t, err)
	wantAt, _ := internal.ParseIndexTime("2018-07-04T08:00:00")
	wantMt, _ := internal.ParseIndexTime("2018-07-04T09:30:00")
	assert.True(t, at.Equal(wantAt), "atime = %v", at)
	assert.True(t, mt.Equal(wantMt), "mtime = %v", mt)
}

func TestHashPoolBarrierPerBucket(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a", []byte("first bucket"))
	b := writeTestFile(t, dir, "b", []byte("first bucket"))
	c := writeTestFile(t, dir, "c", []byte("second bucket"))

	pool := newTestPool(t, nil)

	pool.Submit(a, "", "")
	pool.Submit(b, "", "")
	pool.Await()
	first := pool.Drain()
	assert.Len(t, first, 2)

	pool.Submit(c, "", "")
	pool.Await()
	second := pool.Drain()
	assert.Len(t, second, 1)
	assert.Equal(t, c, second[0].Path)
}

func TestResolveFileTimesFallsBackToCurrent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "a", []byte("payload"))

	// Unparsable record strings: fall back to the file's current times.
	at, mt, ok := resolveFileTimes(path, "garbage", "garbage")
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
	assert.WithinDuration(t, time.Now(), mt, time.Minute)

	_, _, ok = resolveFileTimes(filepath.Join(dir, "missing"), "garbage", "garbage")
	assert.False(t, ok)
}
