package dupes

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zhengshuai-xiao/DupeFinder/internal"
)

type hashRequest struct {
	path  string
	atime string
	mtime string
}

// HashResult is one finished full-content hash.
type HashResult struct {
	Path string
	MD5  string
}

// HashPool is a bounded set of workers computing streaming md5 digests.
// The submitting side must call Await before Drain so no in-flight result
// is consumed; that barrier is the only synchronization the pool needs.
type HashPool struct {
	cfg *Config

	in      chan hashRequest
	pending sync.WaitGroup
	workers sync.WaitGroup

	mu      sync.Mutex
	results []HashResult
}

func NewHashPool(cfg *Config) *HashPool {
	return &HashPool{
		cfg: cfg,
		in:  make(chan hashRequest, cfg.Threads*2),
	}
}

// Start launches the worker goroutines. The pool must not be started twice.
func (p *HashPool) Start() {
	logger.Debugf("starting %d hash workers", p.cfg.Threads)
	for i := 0; i < p.cfg.Threads; i++ {
		p.workers.Add(1)
		go func() {
			defer p.workers.Done()
			for req := range p.in {
				p.hashOne(req)
				p.pending.Done()
			}
		}()
	}
}

// Stop waits for outstanding requests and shuts the workers down.
func (p *HashPool) Stop() {
	p.pending.Wait()
	close(p.in)
	p.workers.Wait()
}

// Submit queues one file for full-content hashing. atime/mtime are the
// index-recorded timestamps to restore after the read.
func (p *HashPool) Submit(path, atime, mtime string) {
	p.pending.Add(1)
	p.in <- hashRequest{path: path, atime: atime, mtime: mtime}
}

// Await blocks until every submitted request has been processed.
func (p *HashPool) Await() {
	p.pending.Wait()
}

// Drain returns all accumulated results and resets the output buffer.
// Only valid after Await.
func (p *HashPool) Drain() []HashResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	results := p.results
	p.results = nil
	return results
}

func (p *HashPool) hashOne(req hashRequest) {
	var restoreAtime, restoreMtime time.Time
	restore := false
	if p.cfg.RestoreTimes {
		// Resolve before the read bumps atime.
		restoreAtime, restoreMtime, restore = resolveFileTimes(req.path, req.atime, req.mtime)
	}

	f, err := os.Open(req.path)
	if err != nil {
		logger.Warnf("cannot open %s for hashing: %v", req.path, err)
		return
	}

	hasher := md5.New()
	buf := make([]byte, p.cfg.ReadBlockSize)
	_, err = io.CopyBuffer(hasher, f, buf)
	f.Close()
	if err != nil {
		logger.Warnf("cannot read %s for hashing: %v", req.path, err)
		return
	}

	if restore {
		if err := internal.RestoreTimes(req.path, restoreAtime, restoreMtime); err != nil {
			logger.Warnf("%v", err)
		}
	}

	p.mu.Lock()
	p.results = append(p.results, HashResult{Path: req.path, MD5: hex.EncodeToString(hasher.Sum(nil))})
	p.mu.Unlock()
}

// resolveFileTimes turns the index-recorded timestamp strings into times to
// restore after a read. When the recorded strings are unusable it falls
// back to the file's current times, captured before the read.
func resolveFileTimes(path, atimeStr, mtimeStr string) (time.Time, time.Time, bool) {
	at, errA := internal.ParseIndexTime(atimeStr)
	mt, errM := internal.ParseIndexTime(mtimeStr)
	if errA == nil && errM == nil {
		return at, mt, true
	}
	at, mt, err := internal.FileTimes(path)
	if err != nil {
		logger.Warnf("cannot resolve times for %s: %v", path, err)
		return time.Time{}, time.Time{}, false
	}
	return at, mt, true
}
