package collector

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveDevices turns device paths (including /dev/disk/by-* symlinks) into
// canonical disk names such as "sdh". Partitions resolve to their disk.
// Duplicates are dropped, first occurrence kept.
func ResolveDevices(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, p := range paths {
		if !strings.Contains(p, "/") {
			p = "/dev/" + p
		}
		real, err := filepath.EvalSymlinks(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		name := BaseDevice(filepath.Base(real))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// BaseDevice strips a partition suffix: sdh1 -> sdh, nvme0n1p2 -> nvme0n1.
func BaseDevice(name string) string {
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if i := strings.LastIndex(name, "p"); i > 0 && i < len(name)-1 && allDigits(name[i+1:]) && allDigits(name[i-1:i]) {
			return name[:i]
		}
		return name
	}
	if strings.HasPrefix(name, "dm-") || strings.HasPrefix(name, "md") || strings.HasPrefix(name, "loop") {
		return name
	}
	return strings.TrimRight(name, "0123456789")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
