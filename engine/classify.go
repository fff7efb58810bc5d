package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/disktriage/model"
)

// LineKind is the category a kernel log line falls into.
type LineKind int

// Classification order. Classify tries each category in this order and the
// first match wins.
const (
	LineOriginator   LineKind = iota + 1 // controller log_info with originator/code
	LineTarget                           // sd H:C:T:L: [sdX] failure header
	LineSense                            // sense key, result bytes, descriptor header, info field
	LineHex                              // bare hex payload
	LineCDB                              // command descriptor block
	LineBlockIOError                     // Buffer I/O error ... logical block N (terminating)
	LineSectorError                      // [end_request: ]critical medium error / I/O error, dev X, sector N (terminating)
	LineNoise                            // firewall, benign sd chatter, mount messages
	LineUnknown
)

var lineKindNames = map[LineKind]string{
	LineOriginator:   "originator",
	LineTarget:       "target",
	LineSense:        "sense",
	LineHex:          "hex",
	LineCDB:          "cdb",
	LineBlockIOError: "block_io_error",
	LineSectorError:  "sector_error",
	LineNoise:        "noise",
	LineUnknown:      "unknown",
}

func (k LineKind) String() string {
	if s, ok := lineKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Terminating reports whether a line of this kind commits a sequence.
func (k LineKind) Terminating() bool {
	return k == LineBlockIOError || k == LineSectorError
}

// Interior reports whether a line of this kind is buffered as sequence context.
func (k LineKind) Interior() bool {
	return k >= LineOriginator && k <= LineCDB
}

// Line is a classified kernel message. Only the fields of its Kind are set.
type Line struct {
	Kind LineKind
	Text string

	// originator
	SASIndex string
	Code     string

	// target
	Target string

	// target, block, sector
	Devname string

	// cdb
	Opcode string

	// block
	Partition    int // -1 when the message named the whole disk
	LogicalBlock uint64

	// sector
	ErrorType model.ErrorType
	Sector    uint64
}

var (
	reOriginator = regexp.MustCompile(`^mpt\d*sas(?:_cm)?(\d+): log_info\((0x[0-9a-fA-F]+)\): originator\((\w+)\), code\((0x[0-9a-fA-F]+)\)`)
	reTarget     = regexp.MustCompile(`^sd (\d+:\d+:\d+:\d+): \[(\w+)\]\s+(?:tag#\d+\s+)?(?:Unhandled (?:sense|error) code|FAILED Result:|Device not ready)`)
	reSense      = regexp.MustCompile(`^(?:sd \d+:\d+:\d+:\d+: \[\w+\]\s+)?(?:tag#\d+\s+)?(?:Result: hostbyte=|Sense Key\s*:|Descriptor sense data with sense descriptors|Add\. Sense:|Info fld=0x|<<vendor>>)`)
	reHex        = regexp.MustCompile(`^\s*(?:[0-9a-fA-F]{2}\s+)*[0-9a-fA-F]{2}\s*$`)
	reCDB        = regexp.MustCompile(`^(?:sd \d+:\d+:\d+:\d+: \[\w+\]\s+)?(?:tag#\d+\s+)?CDB:\s+(?:((?:Read|Write|Verify)\(\d+\)):?|opcode=(0x[0-9a-fA-F]+))`)
	reBlockIO    = regexp.MustCompile(`^Buffer I/O error on dev(?:ice)? ([a-z]+)(\d*), logical block (\d+)`)
	reSector     = regexp.MustCompile(`^(?:(?:end_request|blk_update_request|print_req_error): )?(critical medium error|I/O error),? dev ([a-z]+)(\d*), sector (\d+)`)

	reNoiseFirewall = regexp.MustCompile(`^\[UFW |IN=\S* OUT=|iptables|nf_conntrack|netfilter`)
	reNoiseSd       = regexp.MustCompile(`^sd \d+:\d+:\d+:\d+: `)
	reNoiseMount    = regexp.MustCompile(`^(?:EXT[234]-fs \(\S+\): (?:mounted|re-mounted)|XFS \(\S+\): (?:Mounting|Ending clean mount|Unmounting)|BTRFS info \(device \S+\): (?:disk space|use \S+ compression))`)
)

// Classify assigns the message part of a kernel log line to exactly one category.
func Classify(rest string) Line {
	ln := Line{Text: rest, Partition: -1}

	if m := reOriginator.FindStringSubmatch(rest); m != nil {
		ln.Kind = LineOriginator
		ln.SASIndex = m[1]
		ln.Code = m[4]
		return ln
	}
	if m := reTarget.FindStringSubmatch(rest); m != nil {
		ln.Kind = LineTarget
		ln.Target = m[1]
		ln.Devname = m[2]
		return ln
	}
	if reSense.MatchString(rest) {
		ln.Kind = LineSense
		return ln
	}
	if reHex.MatchString(rest) {
		ln.Kind = LineHex
		return ln
	}
	if m := reCDB.FindStringSubmatch(rest); m != nil {
		ln.Kind = LineCDB
		ln.Opcode = m[1]
		if ln.Opcode == "" {
			ln.Opcode = m[2]
		}
		return ln
	}
	if m := reBlockIO.FindStringSubmatch(rest); m != nil {
		block, err := strconv.ParseUint(m[3], 10, 64)
		if err == nil {
			ln.Kind = LineBlockIOError
			ln.Devname = m[1]
			ln.Partition = partitionIndex(m[2])
			ln.LogicalBlock = block
			return ln
		}
	}
	if m := reSector.FindStringSubmatch(rest); m != nil {
		sector, err := strconv.ParseUint(m[4], 10, 64)
		if err == nil {
			ln.Kind = LineSectorError
			ln.ErrorType = model.ErrorType(m[1])
			ln.Devname = m[2]
			ln.Partition = partitionIndex(m[3])
			ln.Sector = sector
			return ln
		}
	}
	if reNoiseFirewall.MatchString(rest) || reNoiseSd.MatchString(rest) || reNoiseMount.MatchString(rest) {
		ln.Kind = LineNoise
		return ln
	}
	ln.Kind = LineUnknown
	return ln
}

func partitionIndex(s string) int {
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// Header is the syslog prefix of a kernel line.
type Header struct {
	Month  string
	Day    int
	Clock  string // HH:MM:SS
	Host   string
	Uptime string // seconds since boot as printed, e.g. "1234567.123456"
	Rest   string
}

var reHeader = regexp.MustCompile(`^([A-Z][a-z]{2})\s+(\d{1,2}) (\d{2}:\d{2}:\d{2}) (\S+) kernel: \[\s*(\d+\.\d+)\]\s?(.*)$`)

// ParseHeader splits a syslog kernel line. Lines without the kernel header
// are not classified at all.
func ParseHeader(line string) (Header, bool) {
	m := reHeader.FindStringSubmatch(line)
	if m == nil {
		return Header{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return Header{}, false
	}
	return Header{
		Month:  m[1],
		Day:    day,
		Clock:  m[3],
		Host:   m[4],
		Uptime: m[5],
		Rest:   strings.TrimRight(m[6], " \t"),
	}, true
}

// Time resolves the year-less syslog timestamp against now: the current year,
// or the previous one when that would put the entry in the future.
func (h Header) Time(now time.Time) time.Time {
	loc := now.Location()
	stamp := fmt.Sprintf("%s %d %s", h.Month, h.Day, h.Clock)
	t, err := time.ParseInLocation("Jan 2 15:04:05 2006", fmt.Sprintf("%s %d", stamp, now.Year()), loc)
	if err != nil {
		return time.Time{}
	}
	if t.After(now) {
		t = t.AddDate(-1, 0, 0)
	}
	return t
}
