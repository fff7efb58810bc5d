package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Segment is one kernel log file that may hold entries inside the retention window.
type Segment struct {
	Path        string
	ModTime     time.Time
	Index       int    // rotation index from ".N"; 0 for the live file
	Date        string // YYYYMMDD from dateext rotation, empty otherwise
	Compression string // "", "gz", "bz2" or "xz"
}

// Segmenter selects rotated variants of a base log path.
type Segmenter struct {
	Base          string // e.g. /var/log/kern.log
	RetentionDays int
	Now           func() time.Time // defaults to time.Now
}

// Segments returns the files within the retention window, oldest first.
// A file whose mtime predates the cutoff holds nothing newer than the cutoff,
// so it is dropped without being opened.
func (s *Segmenter) Segments() ([]Segment, error) {
	if s.Base == "" {
		return nil, fmt.Errorf("segmenter: empty base path")
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	cutoff := now.Add(-time.Duration(s.RetentionDays) * 24 * time.Hour)

	dir, base := filepath.Split(s.Base)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	rx := rotationPattern(base)

	var segs []Segment
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := rx.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		seg := Segment{
			Path:        filepath.Join(dir, e.Name()),
			ModTime:     info.ModTime(),
			Date:        m[2],
			Compression: m[3],
		}
		if m[1] != "" {
			seg.Index, _ = strconv.Atoi(m[1])
		}
		segs = append(segs, seg)
	}

	sort.SliceStable(segs, func(i, j int) bool { return olderThan(segs[i], segs[j]) })
	return segs, nil
}

// rotationPattern matches base, base.N, base-YYYYMMDD, each with an optional
// compression suffix.
func rotationPattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `(?:\.(\d+)|-(\d{8}))?(?:\.(gz|bz2|xz))?$`)
}

func olderThan(a, b Segment) bool {
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.Before(b.ModTime)
	}
	// Same mtime: a higher rotation index or an earlier date is older, the
	// live file is newest.
	if a.Index != b.Index {
		return a.Index > b.Index
	}
	if a.Date != b.Date {
		if a.Date == "" {
			return false
		}
		if b.Date == "" {
			return true
		}
		return a.Date < b.Date
	}
	return a.Path < b.Path
}
