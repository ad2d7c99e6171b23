package dupes

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
)

// Verifier confirms which files of a HashGroup are true duplicates.
// The filehash computed at crawl time is cheap and collides, so every group
// passes a two-stage filter: first the head and tail bytes of each file are
// sampled and bucketed, then only files sharing a sample signature pay for
// a full streaming md5 through the hash pool.
type Verifier struct {
	cfg  *Config
	pool *HashPool
}

func NewVerifier(cfg *Config, pool *HashPool) *Verifier {
	return &Verifier{cfg: cfg, pool: pool}
}

// Verify returns the group with MD5 assigned to every file proven identical
// to at least one other member, or nil when nothing was confirmed. A nil
// return is a normal outcome, not a failure.
func (v *Verifier) Verify(group *HashGroup) *HashGroup {
	buckets := make(map[string][]FileRecord)
	sampled := 0
	for _, f := range group.Files {
		sig, ok := v.sampleSignature(f)
		if !ok {
			continue
		}
		buckets[sig] = append(buckets[sig], f)
		sampled++
	}
	if sampled == 0 {
		return nil
	}

	// A signature seen once is provably distinct or unconfirmed; either way
	// the file is not a duplicate.
	for sig, files := range buckets {
		if len(files) < 2 {
			delete(buckets, sig)
		}
	}
	if len(buckets) == 0 {
		logger.Debugf("filehash %s: no files share byte samples", group.FileHash)
		return nil
	}

	// Full md5 per bucket. The Await/Drain barrier keeps one bucket's
	// results from bleeding into the next.
	confirmed := make(map[string][]string)
	for _, files := range buckets {
		for _, f := range files {
			v.pool.Submit(f.Filename, f.Atime, f.Mtime)
		}
		v.pool.Await()
		for _, res := range v.pool.Drain() {
			confirmed[res.MD5] = append(confirmed[res.MD5], res.Path)
		}
	}
	if len(confirmed) == 0 {
		return nil
	}

	assigned := 0
	for sum, paths := range confirmed {
		if len(paths) < 2 {
			continue
		}
		for i := range group.Files {
			if stringInSlice(group.Files[i].Filename, paths) {
				group.Files[i].MD5 = sum
				assigned++
			}
		}
	}
	if assigned == 0 {
		return nil
	}
	logger.Debugf("filehash %s: confirmed %d duplicate files", group.FileHash, assigned)
	return group
}

// sampleSignature hashes the first and last SampleBytes of the file.
// Per-file I/O failures only drop this file from the group.
func (v *Verifier) sampleSignature(f FileRecord) (string, bool) {
	fh, err := os.Open(f.Filename)
	if err != nil {
		logger.Warnf("cannot open %s for sampling: %v", f.Filename, err)
		return "", false
	}

	head, ok := v.readHeadSample(fh, f.Filename)
	if !ok {
		fh.Close()
		return "", false
	}
	tail, ok := v.readTailSample(fh, f.Filename)
	if !ok {
		fh.Close()
		return "", false
	}
	fh.Close()

	if v.cfg.RestoreTimes {
		if at, mt, ok := resolveFileTimes(f.Filename, f.Atime, f.Mtime); ok {
			if err := internal.RestoreTimes(f.Filename, at, mt); err != nil {
				logger.Warnf("%v", err)
			}
		}
	}

	// base64 keeps raw bytes out of the bucket keys; the signature only has
	// to separate unequal samples, so a fast non-crypto hash is enough.
	enc := base64.StdEncoding.EncodeToString(head) + base64.StdEncoding.EncodeToString(tail)
	return fmt.Sprintf("%016x", xxhash.Sum64String(enc)), true
}

// readHeadSample reads up to SampleBytes from the start of the file. A short
// read is a valid sample; only a real read error falls back to a single byte.
func (v *Verifier) readHeadSample(fh *os.File, path string) ([]byte, bool) {
	buf := make([]byte, v.cfg.SampleBytes)
	n, err := fh.Read(buf)
	if err != nil && err != io.EOF {
		one := make([]byte, 1)
		n, err = fh.ReadAt(one, 0)
		if err != nil && err != io.EOF {
			logger.Warnf("cannot read head sample of %s: %v", path, err)
			return nil, false
		}
		return one[:n], true
	}
	return buf[:n], true
}

// readTailSample seeks SampleBytes before the end and reads from there. On
// files shorter than the sample it falls back to the last byte, and on empty
// files to an empty sample.
func (v *Verifier) readTailSample(fh *os.File, path string) ([]byte, bool) {
	if _, err := fh.Seek(-int64(v.cfg.SampleBytes), io.SeekEnd); err != nil {
		if _, err := fh.Seek(-1, io.SeekEnd); err != nil {
			// 0-byte file, nothing to sample.
			return []byte{}, true
		}
	}
	buf := make([]byte, v.cfg.SampleBytes)
	n, err := fh.Read(buf)
	if err != nil && err != io.EOF {
		logger.Warnf("cannot read tail sample of %s: %v", path, err)
		return nil, false
	}
	return buf[:n], true
}

func stringInSlice(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
