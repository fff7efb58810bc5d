package engine

import (
	"fmt"
	"strings"
	"time"
)

// fixedNow is the reference clock of every parser test.
var fixedNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func nowFunc() time.Time { return fixedNow }

// kline builds a kernel syslog line at Oct 17 with the given second offset.
func kline(sec int, rest string) string {
	return fmt.Sprintf("Oct 17 03:12:%02d host01 kernel: [1234%03d.123456] %s", sec, sec, rest)
}

// sliceSource feeds lines to the parser.
type sliceSource struct {
	lines []string
	i     int
	err   error
}

func newSource(lines ...string) *sliceSource { return &sliceSource{lines: lines} }

func (s *sliceSource) Next() (string, bool) {
	if s.i >= len(s.lines) {
		return "", false
	}
	s.i++
	return s.lines[s.i-1], true
}

func (s *sliceSource) Err() error { return s.err }

// mediumErrorSequence is an mpt2sas medium error on sdh, sector 6353827720.
func mediumErrorSequence() []string {
	return []string{
		kline(1, "mpt2sas0: log_info(0x31080000): originator(PL), code(0x08), sub_code(0x0000)"),
		kline(1, "sd 0:0:7:0: [sdh] Unhandled sense code"),
		kline(1, "sd 0:0:7:0: [sdh]  Result: hostbyte=invalid driverbyte=DRIVER_SENSE"),
		kline(1, "sd 0:0:7:0: [sdh]  Sense Key : Medium Error [current] [descriptor]"),
		kline(1, "Descriptor sense data with sense descriptors (in hex):"),
		kline(1, "        72 03 11 00 00 00 00 34 00 0a 80 00 00 00 00 00"),
		kline(1, "        7a 97 6e 98"),
		kline(1, "sd 0:0:7:0: [sdh]  Add. Sense: Unrecovered read error"),
		kline(1, "sd 0:0:7:0: [sdh] CDB: Read(16): 88 00 00 00 00 01 7a 97 6e 98 00 00 00 08 00 00"),
		kline(2, "end_request: critical medium error, dev sdh, sector 6353827720"),
	}
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") + "\n" }
