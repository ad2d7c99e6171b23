package dupes

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestVerifier(t *testing.T) *Verifier {
	cfg := DefaultConfig()
	cfg.Threads = 4
	cfg.ReadBlockSize = 4096
	cfg.SampleBytes = 64
	pool := NewHashPool(cfg)
	pool.Start()
	t.Cleanup(pool.Stop)
	return NewVerifier(cfg, pool)
}

func groupOf(filehash string, paths ...string) *HashGroup {
	g := &HashGroup{FileHash: filehash}
	for i, p := range paths {
		g.Files = append(g.Files, FileRecord{ID: hex.EncodeToString([]byte{byte(i)}), Filename: p})
	}
	return g
}

func md5Of(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

func TestVerifyConfirmsIdenticalPair(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789abcdef"), 64*1024) // 1 MiB
	divergent := append([]byte{}, content...)
	divergent[len(divergent)-1] ^= 0xff

	a := writeTestFile(t, dir, "a", content)
	b := writeTestFile(t, dir, "b", content)
	c := writeTestFile(t, dir, "c", divergent)

	v := newTestVerifier(t)
	verified := v.Verify(groupOf("f1", a, b, c))

	// c differs in its last byte: the tail sample already separates it and
	// it never receives a content hash.
	assert.NotNil(t, verified)
	want := md5Of(content)
	byPath := map[string]string{}
	for _, f := range verified.Files {
		byPath[f.Filename] = f.MD5
	}
	assert.Equal(t, want, byPath[a])
	assert.Equal(t, want, byPath[b])
	assert.Equal(t, "", byPath[c])
}

func TestVerifyRejectsSameSamplesDifferentContent(t *testing.T) {
	dir := t.TempDir()
	// Equal head and tail, different middle: the sample stage cannot
	// separate them, the full hash must.
	head := bytes.Repeat([]byte{'h'}, 64)
	tail := bytes.Repeat([]byte{'t'}, 64)
	one := append(append(append([]byte{}, head...), bytes.Repeat([]byte{'1'}, 128)...), tail...)
	two := append(append(append([]byte{}, head...), bytes.Repeat([]byte{'2'}, 128)...), tail...)

	a := writeTestFile(t, dir, "a", one)
	b := writeTestFile(t, dir, "b", two)

	v := newTestVerifier(t)
	assert.Nil(t, v.Verify(groupOf("f1", a, b)))
}

func TestVerifyEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a", nil)
	b := writeTestFile(t, dir, "b", nil)

	v := newTestVerifier(t)
	verified := v.Verify(groupOf("f1", a, b))

	assert.NotNil(t, verified)
	want := md5Of(nil)
	for _, f := range verified.Files {
		assert.Equal(t, want, f.MD5, "file %s", f.Filename)
	}
}

func TestVerifyDropsUnreadableFileOnly(t *testing.T) {
	dir := t.TempDir()
	content := []byte("identical content longer than nothing")
	a := writeTestFile(t, dir, "a", content)
	b := writeTestFile(t, dir, "b", content)

	v := newTestVerifier(t)
	verified := v.Verify(groupOf("f1", dir+"/missing", a, b))

	assert.NotNil(t, verified)
	byPath := map[string]string{}
	for _, f := range verified.Files {
		byPath[f.Filename] = f.MD5
	}
	assert.Equal(t, md5Of(content), byPath[a])
	assert.Equal(t, md5Of(content), byPath[b])
	assert.Equal(t, "", byPath[dir+"/missing"])
}

func TestVerifyNothingConfirmed(t *testing.T) {
	dir := t.TempDir()

	t.Run("AllFilesUnreadable", func(t *testing.T) {
		v := newTestVerifier(t)
		assert.Nil(t, v.Verify(groupOf("f1", dir+"/gone1", dir+"/gone2")))
	})

	t.Run("AllSamplesDistinct", func(t *testing.T) {
		a := writeTestFile(t, dir, "a", []byte("completely different A"))
		b := writeTestFile(t, dir, "b", []byte("entirely other thing B"))
		v := newTestVerifier(t)
		assert.Nil(t, v.Verify(groupOf("f1", a, b)))
	})
}

func TestSampleSignatureSymmetric(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("xyz"), 1000)
	a := writeTestFile(t, dir, "a", content)
	b := writeTestFile(t, dir, "b", content)

	v := newTestVerifier(t)
	sigA, okA := v.sampleSignature(FileRecord{Filename: a})
	sigB, okB := v.sampleSignature(FileRecord{Filename: b})
	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, sigA, sigB)

	// Short file: head and tail fall back without error.
	short := writeTestFile(t, dir, "short", []byte("ab"))
	sigS, okS := v.sampleSignature(FileRecord{Filename: short})
	assert.True(t, okS)
	assert.NotEqual(t, sigA, sigS)
}
