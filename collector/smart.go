package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ftahirops/disktriage/model"
)

// CommandRunner runs an external tool and returns its stdout and exit status.
type CommandRunner func(name string, args ...string) (out []byte, status int, err error)

// ExecRunner runs commands with os/exec. A non-zero exit is not an error:
// smartctl sets exit bits for disk health as well as for failures.
func ExecRunner(name string, args ...string) ([]byte, int, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return out, ee.ExitCode(), nil
		}
		return out, -1, err
	}
	return out, 0, nil
}

// SmartctlReader reads identity and vendor attributes through smartctl --json.
type SmartctlReader struct {
	Path string
	Run  CommandRunner
}

// NewSmartctlReader creates a reader for the given smartctl binary.
func NewSmartctlReader(path string) *SmartctlReader {
	return &SmartctlReader{Path: path, Run: ExecRunner}
}

func (s *SmartctlReader) Name() string { return "smartctl" }

// smartctlJSON is the relevant subset of smartctl --json output.
type smartctlJSON struct {
	Smartctl struct {
		ExitStatus int `json:"exit_status"`
	} `json:"smartctl"`
	Device struct {
		Name     string `json:"name"`
		Protocol string `json:"protocol"`
	} `json:"device"`
	ModelName    string `json:"model_name"`
	ScsiModel    string `json:"scsi_model_name"`
	SerialNumber string `json:"serial_number"`
	WWN          *struct {
		NAA uint64 `json:"naa"`
		OUI uint64 `json:"oui"`
		ID  uint64 `json:"id"`
	} `json:"wwn"`
	LogicalUnitID      string `json:"logical_unit_id"`
	ATASmartAttributes struct {
		Table []struct {
			ID  int `json:"id"`
			Raw struct {
				Value int64 `json:"value"`
			} `json:"raw"`
		} `json:"table"`
	} `json:"ata_smart_attributes"`
	ScsiErrorCounterLog map[string]struct {
		TotalErrorsCorrected   int64 `json:"total_errors_corrected"`
		TotalUncorrectedErrors int64 `json:"total_uncorrected_errors"`
	} `json:"scsi_error_counter_log"`
}

// Collect fills model, serial, WWN, tracked attributes and decoded exit bits.
func (s *SmartctlReader) Collect(info *model.DeviceInfo) error {
	run := s.Run
	if run == nil {
		run = ExecRunner
	}
	out, status, err := run(s.Path, "-a", "--json", "/dev/"+info.Device)
	if err != nil {
		return fmt.Errorf("smartctl %s: %w", info.Device, err)
	}
	info.Health = model.DecodeSmartExit(status)
	if len(out) == 0 {
		return fmt.Errorf("smartctl %s: exit %d with no output", info.Device, status)
	}
	return parseSmartctl(out, info)
}

func parseSmartctl(out []byte, info *model.DeviceInfo) error {
	var data smartctlJSON
	if err := json.Unmarshal(out, &data); err != nil {
		return fmt.Errorf("smartctl %s: parse: %w", info.Device, err)
	}
	if info.Health == nil || info.Health.ExitStatus == 0 {
		info.Health = model.DecodeSmartExit(data.Smartctl.ExitStatus)
	}

	info.Model = data.ModelName
	if info.Model == "" {
		info.Model = data.ScsiModel
	}
	info.Serial = data.SerialNumber
	info.Protocol = strings.ToLower(data.Device.Protocol)
	switch {
	case data.WWN != nil:
		info.WWN = fmt.Sprintf("%x%06x%09x", data.WWN.NAA, data.WWN.OUI, data.WWN.ID)
	case data.LogicalUnitID != "":
		info.WWN = strings.TrimPrefix(data.LogicalUnitID, "0x")
	}

	attrs := make(map[string]int64)
	for _, a := range data.ATASmartAttributes.Table {
		key := strconv.Itoa(a.ID)
		if model.IsVendorAttribute(key) {
			attrs[key] = a.Raw.Value
		}
	}
	for op, c := range data.ScsiErrorCounterLog {
		if k := op + "-total-unc-errors"; model.IsVendorAttribute(k) {
			attrs[k] = c.TotalUncorrectedErrors
		}
		if k := op + "-total-err-corrected"; model.IsVendorAttribute(k) {
			attrs[k] = c.TotalErrorsCorrected
		}
	}
	if len(attrs) > 0 {
		info.Attributes = attrs
	}
	return nil
}
