package util

import (
	"os"
	"strconv"
	"strings"
)

// ReadFileString reads a small file (sysfs attribute, proc entry) and returns
// its contents with surrounding whitespace removed.
func ReadFileString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ParseCounter parses a decimal or 0x-prefixed hex counter, returning 0 on error.
func ParseCounter(s string) uint64 {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, _ := strconv.ParseUint(s, base, 64)
	return v
}
