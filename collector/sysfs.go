package collector

import (
	"path/filepath"
	"strings"

	"github.com/ftahirops/disktriage/model"
	"github.com/ftahirops/disktriage/util"
)

// SysfsCollector reads what the kernel exposes under /sys/block: the SCSI
// address and SAS end device a disk hangs off, its WWID and error counter.
// Fields already filled by smartctl are left alone.
type SysfsCollector struct {
	Root string // defaults to /sys
}

func (s *SysfsCollector) Name() string { return "sysfs" }

func (s *SysfsCollector) Collect(info *model.DeviceInfo) error {
	root := s.Root
	if root == "" {
		root = "/sys"
	}
	dev := filepath.Join(root, "block", info.Device, "device")

	if real, err := filepath.EvalSymlinks(dev); err == nil {
		if loc := sysfsLocation(real); loc != "" && info.Location == "" {
			info.Location = loc
		}
	}
	if info.WWN == "" {
		if wwid, err := util.ReadFileString(filepath.Join(dev, "wwid")); err == nil {
			info.WWN = strings.TrimPrefix(strings.TrimPrefix(wwid, "naa."), "0x")
		}
	}
	if info.Model == "" {
		if m, err := util.ReadFileString(filepath.Join(dev, "model")); err == nil {
			info.Model = m
		}
	}
	if v, err := util.ReadFileString(filepath.Join(dev, "ioerr_cnt")); err == nil {
		info.IOErrors = util.ParseCounter(v)
	}
	return nil
}

// sysfsLocation builds "expander-0:0/end_device-0:7/0:0:7:0" style locations
// from a resolved device path. Only the components present are used.
func sysfsLocation(path string) string {
	var parts []string
	for _, c := range strings.Split(path, string(filepath.Separator)) {
		switch {
		case strings.HasPrefix(c, "expander-"), strings.HasPrefix(c, "end_device-"):
			parts = append(parts, c)
		}
	}
	hctl := filepath.Base(path)
	if strings.Count(hctl, ":") == 3 {
		parts = append(parts, hctl)
	}
	return strings.Join(parts, "/")
}
