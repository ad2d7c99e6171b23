package dupes

import "time"

// Config carries every tunable of the dupe detection pipeline. The dispatch
// side uses the scan/batch/monitor settings, worker bots use the
// verification settings; both are filled from command line flags.
type Config struct {
	// Verification.
	Threads       int   // hash worker pool size
	ReadBlockSize int   // bytes per read while streaming the full md5
	SampleBytes   int   // head/tail bytes hashed by the cheap pre-filter
	RestoreTimes  bool  // put atime/mtime back after reading a file
	MaxSize       int64 // safety ceiling on candidate file size in bytes

	// Index access.
	ScrollSize     int // hits per scroll page
	RequestTimeout time.Duration

	// Dispatch.
	BatchSize     int // fixed batch size when adaptive batching is off
	AdaptiveBatch bool
	BatchMin      int // adaptive start/lower bound
	BatchMax      int
	BatchStep     int
	BacklogLow    int // grow batches while backlog is below this
	BacklogHigh   int // shrink batches while backlog is above this
	ResultTTL     time.Duration
	PollInterval  time.Duration

	// Output modes, mutually exclusive.
	Quiet   bool
	Verbose bool
	Debug   bool
}

func DefaultConfig() *Config {
	return &Config{
		Threads:        8,
		ReadBlockSize:  65536,
		SampleBytes:    64,
		RestoreTimes:   false,
		MaxSize:        1073741824,
		ScrollSize:     100,
		RequestTimeout: 10 * time.Second,
		BatchSize:      50,
		AdaptiveBatch:  false,
		BatchMin:       50,
		BatchMax:       500,
		BatchStep:      10,
		BacklogLow:     5,
		BacklogHigh:    50,
		ResultTTL:      168 * time.Hour,
		PollInterval:   time.Second,
	}
}
