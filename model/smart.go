package model

import "sort"

// DeviceInfo holds already-parsed facts about a disk supplied by collaborators
// (smartctl, mount table, controller tools).
type DeviceInfo struct {
	Device      string           // short name: "sda"
	Model       string
	Serial      string
	WWN         string
	Protocol    string           // "ata" or "scsi"
	Location    string           // controller/enclosure/slot, free-form
	Attributes  map[string]int64 // vendor attribute key -> raw value
	MountPoints []string
	IOErrors    uint64           // sysfs ioerr_cnt
	Health      *SmartHealth
}

// SmartHealth is the decoded smartctl exit status.
type SmartHealth struct {
	ExitStatus            int  `json:"exit_status" msgpack:"exit_status"`
	CommandLineError      bool `json:"command_line_error,omitempty" msgpack:"command_line_error,omitempty"`
	DeviceOpenFailed      bool `json:"device_open_failed,omitempty" msgpack:"device_open_failed,omitempty"`
	SmartCommandFailed    bool `json:"smart_command_failed,omitempty" msgpack:"smart_command_failed,omitempty"`
	DiskFailing           bool `json:"disk_failing,omitempty" msgpack:"disk_failing,omitempty"`
	PrefailAttributes     bool `json:"prefail_attributes,omitempty" msgpack:"prefail_attributes,omitempty"`
	PastPrefailAttributes bool `json:"past_prefail_attributes,omitempty" msgpack:"past_prefail_attributes,omitempty"`
	ErrorLogHasErrors     bool `json:"error_log_has_errors,omitempty" msgpack:"error_log_has_errors,omitempty"`
	SelfTestLogHasErrors  bool `json:"self_test_log_has_errors,omitempty" msgpack:"self_test_log_has_errors,omitempty"`
}

// DecodeSmartExit maps smartctl's documented exit bits onto SmartHealth.
func DecodeSmartExit(status int) *SmartHealth {
	bit := func(n uint) bool { return status&(1<<n) != 0 }
	return &SmartHealth{
		ExitStatus:            status,
		CommandLineError:      bit(0),
		DeviceOpenFailed:      bit(1),
		SmartCommandFailed:    bit(2),
		DiskFailing:           bit(3),
		PrefailAttributes:     bit(4),
		PastPrefailAttributes: bit(5),
		ErrorLogHasErrors:     bit(6),
		SelfTestLogHasErrors:  bit(7),
	}
}

// Failing reports whether any bit beyond the tool-usage bits is set.
func (h *SmartHealth) Failing() bool {
	if h == nil {
		return false
	}
	return h.DiskFailing || h.PrefailAttributes || h.PastPrefailAttributes ||
		h.ErrorLogHasErrors || h.SelfTestLogHasErrors
}

// VendorAttributes is the fixed table of attributes tracked in SMART history.
// ATA attributes are keyed by decimal id, SCSI error counters by smartd's key.
var VendorAttributes = map[string]string{
	"5":   "Reallocated_Sector_Ct",
	"10":  "Spin_Retry_Count",
	"184": "End-to-End_Error",
	"187": "Reported_Uncorrect",
	"188": "Command_Timeout",
	"196": "Reallocated_Event_Count",
	"197": "Current_Pending_Sector",
	"198": "Offline_Uncorrectable",
	"199": "UDMA_CRC_Error_Count",

	"read-total-unc-errors":     "Read uncorrected errors",
	"write-total-unc-errors":    "Write uncorrected errors",
	"verify-total-unc-errors":   "Verify uncorrected errors",
	"non-medium-errors":         "Non-medium errors",
	"read-total-err-corrected":  "Read errors corrected",
	"write-total-err-corrected": "Write errors corrected",
}

// IsVendorAttribute reports whether key is in the tracked table.
func IsVendorAttribute(key string) bool {
	_, ok := VendorAttributes[key]
	return ok
}

// AttributeLabel returns a display label, or the key itself when unknown.
func AttributeLabel(key string) string {
	if l, ok := VendorAttributes[key]; ok {
		return l
	}
	return key
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
