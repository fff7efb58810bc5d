package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/disktriage/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LineKind
	}{
		{"mpt2sas originator", "mpt2sas0: log_info(0x31080000): originator(PL), code(0x08), sub_code(0x0000)", LineOriginator},
		{"mpt3sas originator", "mpt3sas_cm1: log_info(0x31110d00): originator(PL), code(0x11), sub_code(0x0d00)", LineOriginator},
		{"unhandled sense", "sd 0:0:7:0: [sdh] Unhandled sense code", LineTarget},
		{"failed result with tag", "sd 2:0:3:0: [sdc] tag#12 FAILED Result: hostbyte=DID_OK driverbyte=DRIVER_SENSE", LineTarget},
		{"result bytes", "sd 0:0:7:0: [sdh]  Result: hostbyte=invalid driverbyte=DRIVER_SENSE", LineSense},
		{"sense key", "sd 0:0:7:0: [sdh] tag#3 Sense Key : Medium Error [current] [descriptor]", LineSense},
		{"descriptor header", "Descriptor sense data with sense descriptors (in hex):", LineSense},
		{"add sense", "sd 0:0:7:0: [sdh]  Add. Sense: Unrecovered read error", LineSense},
		{"info field", "sd 0:0:7:0: [sdh]  Info fld=0x17a976e98", LineSense},
		{"hex payload", "        72 03 11 00 00 00 00 34 00 0a 80 00", LineHex},
		{"short hex payload", "7a 97 6e 98", LineHex},
		{"cdb read16", "sd 0:0:7:0: [sdh] CDB: Read(16): 88 00 00 00 00 01 7a 97 6e 98 00 00 00 08 00 00", LineCDB},
		{"cdb write10 no colon", "sd 0:0:7:0: [sdh] tag#0 CDB: Write(10) 2a 00 01 7a 97 6e 00 00 08 00", LineCDB},
		{"cdb opcode form", "sd 0:0:7:0: [sdh] tag#0 CDB: opcode=0x88 88 00 00 00 00 01 7a 97 6e 98 00 00 00 08 00 00", LineCDB},
		{"buffer io error", "Buffer I/O error on device sdh1, logical block 794228459", LineBlockIOError},
		{"buffer io error dev", "Buffer I/O error on dev sdb, logical block 12, async page read", LineBlockIOError},
		{"end_request medium", "end_request: critical medium error, dev sdh, sector 6353827720", LineSectorError},
		{"blk_update io error", "blk_update_request: I/O error, dev sdc, sector 2048 op 0x0:(READ) flags 0x0 phys_seg 1 prio class 0", LineSectorError},
		{"medium error no prefix", "critical medium error, dev sdh, sector 6353827720 op 0x0:(READ) flags 0x0 phys_seg 1 prio class 0", LineSectorError},
		{"io error no prefix", "I/O error, dev sdc, sector 2048 op 0x1:(WRITE) flags 0x800 phys_seg 1 prio class 2", LineSectorError},
		{"firewall", "[UFW BLOCK] IN=eth0 OUT= MAC=00:00 SRC=10.0.0.1 DST=10.0.0.2", LineNoise},
		{"netfilter fields", "IN=eth0 OUT= MAC=52:54:00 SRC=1.2.3.4", LineNoise},
		{"sd attach", "sd 0:0:0:0: [sda] Attached SCSI disk", LineNoise},
		{"sd write cache", "sd 0:0:0:0: [sda] Write cache: enabled, read cache: enabled", LineNoise},
		{"ext4 mount", "EXT4-fs (sda1): mounted filesystem with ordered data mode. Opts: (null)", LineNoise},
		{"xfs mount", "XFS (sdb1): Mounting V5 Filesystem", LineNoise},
		{"unknown", "e1000e: eth0 NIC Link is Up 1000 Mbps Full Duplex", LineUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.want, got.Kind, "kind %s", got.Kind)
		})
	}
}

func TestClassifyFields(t *testing.T) {
	ln := Classify("mpt3sas_cm1: log_info(0x31110d00): originator(PL), code(0x11), sub_code(0x0d00)")
	assert.Equal(t, "1", ln.SASIndex)
	assert.Equal(t, "0x11", ln.Code)

	ln = Classify("sd 0:0:7:0: [sdh] Unhandled sense code")
	assert.Equal(t, "0:0:7:0", ln.Target)
	assert.Equal(t, "sdh", ln.Devname)

	ln = Classify("Buffer I/O error on device sdh1, logical block 794228459")
	assert.Equal(t, "sdh", ln.Devname)
	assert.Equal(t, 1, ln.Partition)
	assert.Equal(t, uint64(794228459), ln.LogicalBlock)

	ln = Classify("Buffer I/O error on dev sdb, logical block 12, async page read")
	assert.Equal(t, -1, ln.Partition)

	ln = Classify("end_request: critical medium error, dev sdh, sector 6353827720")
	assert.Equal(t, model.ErrCriticalMedium, ln.ErrorType)
	assert.Equal(t, "sdh", ln.Devname)
	assert.Equal(t, uint64(6353827720), ln.Sector)

	ln = Classify("I/O error, dev sdc3, sector 2048 op 0x1:(WRITE) flags 0x800 phys_seg 1 prio class 2")
	assert.Equal(t, model.ErrIO, ln.ErrorType)
	assert.Equal(t, "sdc", ln.Devname)
	assert.Equal(t, uint64(2048), ln.Sector)

	ln = Classify("sd 0:0:7:0: [sdh] CDB: Read(16): 88 00")
	assert.Equal(t, "Read(16)", ln.Opcode)
}

func TestKindPredicates(t *testing.T) {
	for _, k := range []LineKind{LineOriginator, LineTarget, LineSense, LineHex, LineCDB} {
		assert.True(t, k.Interior(), k.String())
		assert.False(t, k.Terminating(), k.String())
	}
	for _, k := range []LineKind{LineBlockIOError, LineSectorError} {
		assert.True(t, k.Terminating(), k.String())
		assert.False(t, k.Interior(), k.String())
	}
	assert.False(t, LineNoise.Interior())
	assert.False(t, LineUnknown.Terminating())
	assert.Equal(t, "sector_error", LineSectorError.String())
}

func TestParseHeader(t *testing.T) {
	h, ok := ParseHeader("Oct  7 03:12:45 storage-07 kernel: [ 1234.567890] sd 0:0:7:0: [sdh] Unhandled sense code")
	require.True(t, ok)
	assert.Equal(t, "Oct", h.Month)
	assert.Equal(t, 7, h.Day)
	assert.Equal(t, "03:12:45", h.Clock)
	assert.Equal(t, "storage-07", h.Host)
	assert.Equal(t, "1234.567890", h.Uptime)
	assert.Equal(t, "sd 0:0:7:0: [sdh] Unhandled sense code", h.Rest)

	for _, line := range []string{
		"",
		"Oct  7 03:12:45 storage-07 sshd[123]: Accepted publickey for root",
		"Oct  7 03:12:45 storage-07 kernel: no uptime stamp here",
		"sd 0:0:7:0: [sdh] Unhandled sense code",
	} {
		_, ok := ParseHeader(line)
		assert.False(t, ok, line)
	}
}

func TestHeaderTimeYear(t *testing.T) {
	now := time.Date(2026, time.January, 2, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		month string
		day   int
		want  time.Time
	}{
		{"same year", "Jan", 1, time.Date(2026, time.January, 1, 3, 12, 45, 0, time.UTC)},
		{"previous year", "Dec", 31, time.Date(2025, time.December, 31, 3, 12, 45, 0, time.UTC)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := Header{Month: c.month, Day: c.day, Clock: "03:12:45"}
			assert.Equal(t, c.want, h.Time(now))
		})
	}
}
