package collector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/disktriage/model"
)

func TestBaseDevice(t *testing.T) {
	cases := map[string]string{
		"sdh":       "sdh",
		"sdh1":      "sdh",
		"sdab12":    "sdab",
		"vda3":      "vda",
		"nvme0n1":   "nvme0n1",
		"nvme0n1p2": "nvme0n1",
		"mmcblk0p1": "mmcblk0",
		"mmcblk0":   "mmcblk0",
		"dm-3":      "dm-3",
		"md127":     "md127",
		"loop7":     "loop7",
	}
	for in, want := range cases {
		assert.Equal(t, want, BaseDevice(in), in)
	}
}

func TestResolveDevices(t *testing.T) {
	dir := t.TempDir()
	sdh := filepath.Join(dir, "sdh")
	sdh1 := filepath.Join(dir, "sdh1")
	require.NoError(t, os.WriteFile(sdh, nil, 0644))
	require.NoError(t, os.WriteFile(sdh1, nil, 0644))
	byID := filepath.Join(dir, "wwn-0x5000cca02b1a2b3c")
	require.NoError(t, os.Symlink(sdh, byID))

	got, err := ResolveDevices([]string{byID, sdh1, sdh})
	require.NoError(t, err)
	assert.Equal(t, []string{"sdh"}, got)

	_, err = ResolveDevices([]string{filepath.Join(dir, "sdz")})
	assert.Error(t, err)
}

func TestMountCollector(t *testing.T) {
	m := &MountCollector{List: func() ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sdh2", Mountpoint: "/srv/b"},
			{Device: "/dev/sdh1", Mountpoint: "/srv/a"},
			{Device: "/dev/sdb1", Mountpoint: "/"},
			{Device: "tmpfs", Mountpoint: "/run"},
		}, nil
	}}
	info := model.DeviceInfo{Device: "sdh"}
	require.NoError(t, m.Collect(&info))
	assert.Equal(t, []string{"/srv/a", "/srv/b"}, info.MountPoints)

	failing := &MountCollector{List: func() ([]disk.PartitionStat, error) { return nil, errors.New("no mtab") }}
	assert.Error(t, failing.Collect(&info))
}

func TestSysfsCollector(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "devices", "pci0000:00", "host0", "port-0:0", "expander-0:0",
		"port-0:0:7", "end_device-0:0:7", "target0:0:7", "0:0:7:0")
	require.NoError(t, os.MkdirAll(real, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(real, "wwid"), []byte("naa.5000cca02b1a2b3c\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(real, "model"), []byte("HUC109060CSS600 \n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(real, "ioerr_cnt"), []byte("0x1a\n"), 0644))
	block := filepath.Join(root, "block", "sdh")
	require.NoError(t, os.MkdirAll(block, 0755))
	require.NoError(t, os.Symlink(real, filepath.Join(block, "device")))

	s := &SysfsCollector{Root: root}
	info := model.DeviceInfo{Device: "sdh"}
	require.NoError(t, s.Collect(&info))
	assert.Equal(t, "expander-0:0/end_device-0:0:7/0:0:7:0", info.Location)
	assert.Equal(t, "5000cca02b1a2b3c", info.WWN)
	assert.Equal(t, "HUC109060CSS600", info.Model)
	assert.Equal(t, uint64(26), info.IOErrors)

	// smartctl facts win.
	info = model.DeviceInfo{Device: "sdh", WWN: "5000c500a1ab1c4e", Model: "X"}
	require.NoError(t, s.Collect(&info))
	assert.Equal(t, "5000c500a1ab1c4e", info.WWN)
	assert.Equal(t, "X", info.Model)

	// Unknown disks are not an error.
	info = model.DeviceInfo{Device: "sdz"}
	require.NoError(t, s.Collect(&info))
	assert.Empty(t, info.Location)
}

type stubCollector struct {
	name string
	err  error
}

func (s stubCollector) Name() string { return s.name }

func (s stubCollector) Collect(info *model.DeviceInfo) error {
	if s.err != nil {
		return s.err
	}
	info.Location = s.name
	return nil
}

func TestRegistryCollectAll(t *testing.T) {
	assert.Equal(t, []string{"smartctl", "mounts", "sysfs"}, NewRegistry("smartctl").Names())
	assert.Equal(t, []string{"mounts", "sysfs"}, NewRegistry("").Names())

	r := &Registry{}
	r.Add(stubCollector{name: "a"})
	r.Add(stubCollector{name: "broken", err: errors.New("boom")})
	r.Add(stubCollector{name: "c"})

	info, errs := r.CollectAll("sdh")
	assert.Equal(t, "sdh", info.Device)
	assert.Equal(t, "c", info.Location)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "boom")
}
