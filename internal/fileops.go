package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/djherbis/atime"
	"golang.org/x/sys/unix"
)

// IndexTimeLayout is the timestamp format stored by the crawler in the
// last_access/last_modified index fields.
const IndexTimeLayout = "2006-01-02T15:04:05"

func ParseIndexTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(IndexTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad index timestamp %q: %w", s, err)
	}
	return t, nil
}

func FormatIndexTime(t time.Time) string {
	return t.Format(IndexTimeLayout)
}

// RestoreTimes puts a file's access and modify times back to the given
// values. Reading a file for sampling or hashing bumps its atime, which
// would make the next crawl see every checked file as freshly accessed.
func RestoreTimes(path string, accessTime, modifyTime time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(accessTime.UnixNano()),
		unix.NsecToTimespec(modifyTime.UnixNano()),
	}
	if err := unix.UtimesNano(path, ts); err != nil {
		return fmt.Errorf("failed to restore times on %s: %w", path, err)
	}
	return nil
}

// FileTimes returns the current access and modify times of a file.
// Used as a fallback when the index-recorded timestamps are unparsable.
func FileTimes(path string) (accessTime, modifyTime time.Time, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return atime.Get(fi), fi.ModTime(), nil
}
