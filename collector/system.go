package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/ftahirops/disktriage/model"
)

// PartitionLister returns the mount table. Swapped out in tests.
type PartitionLister func() ([]disk.PartitionStat, error)

// MountCollector fills the mount points of a disk and its partitions.
type MountCollector struct {
	List PartitionLister
}

func (m *MountCollector) Name() string { return "mounts" }

func (m *MountCollector) Collect(info *model.DeviceInfo) error {
	list := m.List
	if list == nil {
		list = func() ([]disk.PartitionStat, error) { return disk.Partitions(true) }
	}
	parts, err := list()
	if err != nil {
		return fmt.Errorf("mount table: %w", err)
	}
	var mounts []string
	for _, p := range parts {
		if !strings.HasPrefix(p.Device, "/dev/") {
			continue
		}
		if BaseDevice(filepath.Base(p.Device)) == info.Device {
			mounts = append(mounts, p.Mountpoint)
		}
	}
	sort.Strings(mounts)
	info.MountPoints = mounts
	return nil
}

// Hostname returns the host name reported by the OS.
func Hostname() string {
	if hi, err := host.Info(); err == nil && hi.Hostname != "" {
		return hi.Hostname
	}
	h, _ := os.Hostname()
	return h
}
