package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/disktriage/model"
)

// DefaultSmartDir is where smartd writes attribute logs.
const DefaultSmartDir = "/var/lib/smartmontools"

const historyTimeLayout = "2006-01-02 15:04:05"

// Snapshot is one row of an attribute history file.
type Snapshot struct {
	Time   time.Time
	Keys   []string // in file order
	Values map[string]int64
}

// HistoryLocator finds a disk's attribute history under Dir.
type HistoryLocator struct {
	Dir string
}

// HistoryFile is a candidate history path and the row format it implies.
type HistoryFile struct {
	Path     string
	Protocol string // "ata" rows are id;normalized;raw, "scsi" rows are key;value
}

// Candidates lists the file names smartd may have used for model and serial,
// in lookup order.
func (l HistoryLocator) Candidates(diskModel, serial string) []HistoryFile {
	dir := l.Dir
	if dir == "" {
		dir = DefaultSmartDir
	}
	var out []HistoryFile
	seen := make(map[string]bool)
	for _, sep := range []string{"_", "-"} {
		m := sanitizeID(diskModel, sep)
		s := sanitizeID(serial, sep)
		for _, proto := range []string{"ata", "scsi"} {
			name := fmt.Sprintf("attrlog.%s-%s.%s.csv", m, s, proto)
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, HistoryFile{Path: filepath.Join(dir, name), Protocol: proto})
		}
	}
	return out
}

// Locate returns the first candidate that exists.
func (l HistoryLocator) Locate(diskModel, serial string) (HistoryFile, error) {
	if diskModel == "" || serial == "" {
		return HistoryFile{}, fmt.Errorf("model %q serial %q: %w", diskModel, serial, ErrNoHistory)
	}
	for _, c := range l.Candidates(diskModel, serial) {
		if info, err := os.Stat(c.Path); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return HistoryFile{}, fmt.Errorf("model %q serial %q in %s: %w", diskModel, serial, l.Dir, ErrNoHistory)
}

// sanitizeID replaces every character outside [A-Za-z0-9._-] with sep.
func sanitizeID(s, sep string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteString(sep)
		}
	}
	return b.String()
}

// ParseHistory reads semicolon-delimited snapshots. Rows with a bad timestamp
// are skipped, as are pairs whose value is not an integer.
func ParseHistory(r io.Reader, proto string) ([]Snapshot, error) {
	step := 2
	if proto == "ata" {
		step = 3
	}

	var snaps []Snapshot
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ";")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		for len(fields) > 0 && fields[len(fields)-1] == "" {
			fields = fields[:len(fields)-1]
		}
		if len(fields) < 1+step {
			continue
		}
		ts, err := time.ParseInLocation(historyTimeLayout, fields[0], time.Local)
		if err != nil {
			continue
		}
		snap := Snapshot{Time: ts, Values: make(map[string]int64)}
		for i := 1; i+step-1 < len(fields); i += step {
			key := fields[i]
			v, err := strconv.ParseInt(fields[i+step-1], 10, 64)
			if key == "" || err != nil {
				continue
			}
			if _, dup := snap.Values[key]; !dup {
				snap.Keys = append(snap.Keys, key)
			}
			snap.Values[key] = v
		}
		snaps = append(snaps, snap)
	}
	return snaps, sc.Err()
}

// MergeHistory reduces snaps to change-only events on rec. An attribute that
// has not been seen yet counts as zero, so a counter sitting at zero produces
// no event until it moves. The first occurrence of an attribute is therefore
// a change only when its value is non-zero. When rec had no error events
// before the merge, the first change is also appended as its earliest error
// event.
func MergeHistory(reg *Registry, rec *model.DiskErrorRecord, snaps []Snapshot, source string) *model.SmartHistory {
	hist := &model.SmartHistory{Source: source}
	if len(snaps) > 0 {
		hist.Start = snaps[0].Time
		hist.End = snaps[len(snaps)-1].Time
	}

	hadEvents := len(rec.ErrorEvents) > 0
	emitted := false
	last := make(map[string]int64)
	latest := make(map[string]int64)

	for _, snap := range snaps {
		var changed map[string]int64
		for _, key := range snap.Keys {
			if !model.IsVendorAttribute(key) {
				continue
			}
			v := snap.Values[key]
			latest[key] = v
			if last[key] == v {
				continue
			}
			last[key] = v
			if changed == nil {
				changed = make(map[string]int64)
			}
			changed[key] = v
			if !hadEvents && !emitted {
				reg.AppendEvent(rec, model.ErrorEvent{
					Kind:           model.KindSmart,
					Time:           snap.Time,
					AttributeKey:   key,
					AttributeValue: v,
				})
				emitted = true
			}
		}
		if changed != nil {
			hist.Changes = append(hist.Changes, model.SmartChange{Time: snap.Time, Values: changed})
		}
	}

	for _, k := range model.SortedKeys(latest) {
		reg.SetAttribute(rec, k, latest[k])
	}
	reg.SetHistory(rec, hist)
	return hist
}

// LoadHistory locates, opens and parses the history for model and serial.
func LoadHistory(l HistoryLocator, diskModel, serial string) ([]Snapshot, HistoryFile, error) {
	hf, err := l.Locate(diskModel, serial)
	if err != nil {
		return nil, hf, err
	}
	f, err := os.Open(hf.Path)
	if err != nil {
		return nil, hf, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	snaps, err := ParseHistory(f, hf.Protocol)
	if err != nil {
		return nil, hf, fmt.Errorf("parse %s: %w", hf.Path, err)
	}
	return snaps, hf, nil
}
