package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ftahirops/disktriage/collector"
	"github.com/ftahirops/disktriage/model"
)

// RunReport summarizes one log scan.
type RunReport struct {
	Files      []string   `json:"files"`
	Skipped    []string   `json:"skipped,omitempty"`
	Violations []error    `json:"-"`
	Stats      ParseStats `json:"stats"`
}

// ViolationCount returns the number of files aborted on an identity violation.
func (r RunReport) ViolationCount() int { return len(r.Violations) }

// Correlator runs the pipeline: segments oldest first through the parser into
// the registry, then SMART facts and history per disk. Everything is sequential.
type Correlator struct {
	Registry  *Registry
	Segmenter *collector.Segmenter
	Locator   HistoryLocator
	Host      string // hostname used for records created from SMART data
	Devices   []string
	Verbose   bool
	Now       func() time.Time
}

// NewCorrelator creates a correlator with an empty registry.
func NewCorrelator(seg *collector.Segmenter, locator HistoryLocator) *Correlator {
	return &Correlator{
		Registry:  NewRegistry(),
		Segmenter: seg,
		Locator:   locator,
		Now:       time.Now,
	}
}

func (c *Correlator) deviceSet() map[string]bool {
	if len(c.Devices) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		set[d] = true
	}
	return set
}

// ScanLogs parses every selected segment with a fresh context per file.
// Unreadable files are skipped with a warning; an identity violation aborts
// only the file it occurred in.
func (c *Correlator) ScanLogs() (RunReport, error) {
	var report RunReport
	segs, err := c.Segmenter.Segments()
	if err != nil {
		return report, fmt.Errorf("select log segments: %w", err)
	}
	devices := c.deviceSet()

	for _, seg := range segs {
		ls, err := seg.Open()
		if err != nil {
			log.Warn().Err(err).Str("file", seg.Path).Msg("Skipping unreadable log file")
			report.Skipped = append(report.Skipped, seg.Path)
			continue
		}

		p := NewParser(c.Registry, seg.Path)
		p.Now = c.Now
		p.Devices = devices
		p.Verbose = c.Verbose

		err = p.ParseStream(ls)
		if cerr := ls.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("file", seg.Path).Msg("Error closing log file")
		}
		report.Files = append(report.Files, seg.Path)
		report.Stats.add(p.Stats())

		var idErr *IdentityError
		switch {
		case errors.As(err, &idErr):
			log.Error().Err(err).Str("file", seg.Path).Msg("Aborting file on device identity violation")
			report.Violations = append(report.Violations, err)
		case err != nil:
			log.Warn().Err(err).Str("file", seg.Path).Msg("Log file read incomplete")
			report.Skipped = append(report.Skipped, seg.Path)
		default:
			log.Debug().Str("file", seg.Path).Int("lines", p.Stats().Lines).
				Int("commits", p.Stats().Commits).Msg("Parsed log file")
		}
	}
	return report, nil
}

// MergeDevice applies collaborator facts for one disk and merges its SMART
// history. A missing or unreadable history leaves SmartHistory nil.
func (c *Correlator) MergeDevice(info model.DeviceInfo) (*model.DiskErrorRecord, error) {
	rec, err := c.Registry.ApplyDeviceInfo(info, c.Host)
	if err != nil {
		return nil, err
	}
	snaps, hf, err := LoadHistory(c.Locator, rec.Model, rec.Serial)
	if err != nil {
		log.Warn().Err(err).Str("device", rec.Device).Msg("No SMART attribute history")
		return rec, nil
	}
	MergeHistory(c.Registry, rec, snaps, hf.Path)
	return rec, nil
}
