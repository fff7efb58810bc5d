package model

import "time"

// EventKind tags which variant of ErrorEvent is populated.
type EventKind string

const (
	KindBlock  EventKind = "block"  // Buffer I/O error, logical block
	KindSector EventKind = "sector" // end_request / blk_update_request sector error
	KindSmart  EventKind = "smart"  // SMART attribute change
)

// ErrorType classifies sector-level kernel errors.
type ErrorType string

const (
	ErrCriticalMedium ErrorType = "critical medium error"
	ErrIO             ErrorType = "I/O error"
)

// ErrorEvent is a discrete reported failure. Only the fields of its Kind are set.
type ErrorEvent struct {
	Kind EventKind `json:"kind" msgpack:"kind"`
	Time time.Time `json:"time" msgpack:"time"`

	// block
	BlockIndex   int    `json:"block_index,omitempty" msgpack:"block_index,omitempty"` // partition, -1 for whole disk
	LogicalBlock uint64 `json:"logical_block,omitempty" msgpack:"logical_block,omitempty"`

	// sector
	ErrorType ErrorType `json:"error_type,omitempty" msgpack:"error_type,omitempty"`
	Sector    uint64    `json:"sector,omitempty" msgpack:"sector,omitempty"`

	// block + sector
	SASIndex string `json:"sas_index,omitempty" msgpack:"sas_index,omitempty"`

	// smart
	AttributeKey   string `json:"attribute_key,omitempty" msgpack:"attribute_key,omitempty"`
	AttributeValue int64  `json:"attribute_value,omitempty" msgpack:"attribute_value,omitempty"`
}

// SmartChange holds the attributes whose value changed at one sample time.
type SmartChange struct {
	Time   time.Time        `json:"time" msgpack:"time"`
	Values map[string]int64 `json:"values" msgpack:"values"`
}

// SmartHistory is the sparse change log derived from an attribute history file.
type SmartHistory struct {
	Source  string        `json:"source" msgpack:"source"`
	Start   time.Time     `json:"start" msgpack:"start"`
	End     time.Time     `json:"end" msgpack:"end"`
	Changes []SmartChange `json:"changes,omitempty" msgpack:"changes,omitempty"`
}

// DiskErrorRecord accumulates everything known about one device in a run.
type DiskErrorRecord struct {
	Device   string `json:"device" msgpack:"device"`
	Host     string `json:"host,omitempty" msgpack:"host,omitempty"`
	Target   string `json:"target,omitempty" msgpack:"target,omitempty"`
	SASIndex string `json:"sas_index,omitempty" msgpack:"sas_index,omitempty"`

	ErrorEvents []ErrorEvent `json:"error_events,omitempty" msgpack:"error_events,omitempty"`
	RawLogLines []string     `json:"raw_log_lines,omitempty" msgpack:"raw_log_lines,omitempty"`

	SmartAttributes map[string]int64 `json:"smart_attributes,omitempty" msgpack:"smart_attributes,omitempty"`
	SmartHistory    *SmartHistory    `json:"smart_history,omitempty" msgpack:"smart_history,omitempty"`

	// Collaborator facts.
	Model       string       `json:"model,omitempty" msgpack:"model,omitempty"`
	Serial      string       `json:"serial,omitempty" msgpack:"serial,omitempty"`
	WWN         string       `json:"wwn,omitempty" msgpack:"wwn,omitempty"`
	Location    string       `json:"location,omitempty" msgpack:"location,omitempty"`
	MountPoints []string     `json:"mount_points,omitempty" msgpack:"mount_points,omitempty"`
	IOErrors    uint64       `json:"io_errors,omitempty" msgpack:"io_errors,omitempty"`
	Health      *SmartHealth `json:"health,omitempty" msgpack:"health,omitempty"`
}

// EarliestError returns the time of the first recorded error event.
func (r *DiskErrorRecord) EarliestError() (time.Time, bool) {
	if r == nil || len(r.ErrorEvents) == 0 {
		return time.Time{}, false
	}
	return r.ErrorEvents[0].Time, true
}

// CountKind returns how many events of kind k the record holds.
func (r *DiskErrorRecord) CountKind(k EventKind) int {
	n := 0
	for _, e := range r.ErrorEvents {
		if e.Kind == k {
			n++
		}
	}
	return n
}
