package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/disktriage/config"
	"github.com/ftahirops/disktriage/model"
	"github.com/ftahirops/disktriage/store"
)

// kernLine stamps rest with yesterday's date so year resolution is stable.
func kernLine(rest string) string {
	ts := time.Now().Add(-24 * time.Hour).Format("Jan _2 15:04:05")
	return fmt.Sprintf("%s host01 kernel: [1234567.123456] %s", ts, rest)
}

func writeKernLog(t *testing.T, dir string, rests ...string) string {
	t.Helper()
	var sb strings.Builder
	for _, r := range rests {
		sb.WriteString(kernLine(r))
		sb.WriteString("\n")
	}
	path := filepath.Join(dir, "kern.log")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

var mediumError = []string{
	"mpt2sas0: log_info(0x31080000): originator(PL), code(0x08), sub_code(0x0000)",
	"sd 0:0:7:0: [sdh] Unhandled sense code",
	"sd 0:0:7:0: [sdh]  Sense Key : Medium Error [current] [descriptor]",
	"sd 0:0:7:0: [sdh] CDB: Read(16): 88 00 00 00 00 01 7a 97 6e 98 00 00 00 08 00 00",
	"end_request: critical medium error, dev sdh, sector 6353827720",
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScanJSON(t *testing.T) {
	dir := t.TempDir()
	logPath := writeKernLog(t, dir, mediumError...)

	out, err := execute(t, "scan", "--log", logPath, "--smart-dir", dir, "--no-collect", "--json")
	require.NoError(t, err)

	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{logPath}, res.Files)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "sdh", rec.Device)
	assert.Equal(t, "0:0:7:0", rec.Target)
	assert.Equal(t, "0", rec.SASIndex)
	require.Len(t, rec.ErrorEvents, 1)
	assert.Equal(t, uint64(6353827720), rec.ErrorEvents[0].Sector)
	assert.Len(t, rec.RawLogLines, len(mediumError))
}

func TestScanSummaryAndExports(t *testing.T) {
	dir := t.TempDir()
	logPath := writeKernLog(t, dir, mediumError...)
	db := filepath.Join(dir, "runs.db")
	mp := filepath.Join(dir, "records.msgpack")
	jsonl := filepath.Join(dir, "records.jsonl")
	prom := filepath.Join(dir, "disktriage.prom")

	out, err := execute(t, "scan", "--log", logPath, "--smart-dir", dir, "--no-collect",
		"--db", db, "--msgpack", mp, "--event-log", jsonl, "--metrics", prom)
	require.NoError(t, err)
	assert.Contains(t, out, "sector 6353827720")

	for _, path := range []string{db, mp, jsonl} {
		recs, err := loadRecords(path, "", "")
		require.NoError(t, err, path)
		require.Len(t, recs, 1, path)
		assert.Equal(t, "sdh", recs[0].Device, path)
	}

	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `disktriage_error_events_total{device="sdh",kind="sector"} 1`)
}

func TestScanIdentityViolationExitCode(t *testing.T) {
	dir := t.TempDir()
	logPath := writeKernLog(t, dir,
		"sd 0:0:1:0: [sda] Unhandled sense code",
		"end_request: I/O error, dev sda, sector 100",
		"end_request: I/O error, dev sdb, sector 200",
	)

	out, err := execute(t, "scan", "--log", logPath, "--smart-dir", dir, "--no-collect", "--json")
	var exit ExitCodeError
	require.True(t, errors.As(err, &exit), "err = %v", err)
	assert.Equal(t, 2, exit.Code)

	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0], "device identity violation")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "sda", res.Records[0].Device)
}

func TestScanExplicitDeviceWithoutErrors(t *testing.T) {
	dir := t.TempDir()
	logPath := writeKernLog(t, dir, mediumError...)
	dev := filepath.Join(dir, "sdk")
	require.NoError(t, os.WriteFile(dev, nil, 0644))

	out, err := execute(t, "scan", "--log", logPath, "--smart-dir", dir, "--no-collect", "--json", dev)
	require.NoError(t, err)
	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Records, 1)
	assert.Equal(t, "sdk", res.Records[0].Device)
	assert.Empty(t, res.Records[0].ErrorEvents)
}

func TestLoadRecordsBySerial(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	first := time.Date(2026, time.October, 16, 3, 0, 0, 0, time.UTC)
	_, err = st.SaveRun(ctx, store.Run{ID: "first", StartedAt: first, Host: "host01"}, []*model.DiskErrorRecord{
		{Device: "sdh", Serial: "KXGZ1234", IOErrors: 10},
		{Device: "sda", Serial: "S1"},
	})
	require.NoError(t, err)
	_, err = st.SaveRun(ctx, store.Run{ID: "second", StartedAt: first.Add(24 * time.Hour), Host: "host01"}, []*model.DiskErrorRecord{
		{Device: "sdj", Serial: "KXGZ1234", IOErrors: 25},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	tests := []struct {
		name    string
		path    string
		runID   string
		serial  string
		devices []string
		wantErr string
	}{
		{name: "newest run", path: db, devices: []string{"sdj"}},
		{name: "named run", path: db, runID: "first", devices: []string{"sdh", "sda"}},
		{name: "serial across runs", path: db, serial: "KXGZ1234", devices: []string{"sdh", "sdj"}},
		{name: "unknown serial", path: db, serial: "NOPE", wantErr: "no records for serial NOPE"},
		{name: "serial needs database", path: filepath.Join(dir, "records.jsonl"), serial: "KXGZ1234", wantErr: "needs a run database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := loadRecords(tt.path, tt.runID, tt.serial)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, r := range recs {
				got = append(got, r.Device)
			}
			assert.ElementsMatch(t, tt.devices, got)
		})
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disktriage", "config.toml")
	t.Setenv("DISKTRIAGE_SMART_DIR", "/srv/smartd")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), `smart_dir = "/srv/smartd"`)
	assert.Contains(t, string(text), `log_path = "`+config.Default().LogPath+`"`)

	_, err = execute(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "--config", path, "--log-level", "warn", "config", "init", "--force")
	require.NoError(t, err)
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestSmartHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	data := "2026-10-01 00:00:01;5;200;0;\n2026-10-02 00:00:01;5;200;0;\n2026-10-03 00:00:01;5;199;3;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "attrlog.ST4000-Z1Z0.ata.csv"), []byte(data), 0644))

	out, err := execute(t, "smart-history", "--smart-dir", dir, "ST4000", "Z1Z0")
	require.NoError(t, err)
	assert.Contains(t, out, "3 samples")
	assert.Contains(t, out, "2026-10-03 00:00:01  Reallocated_Sector_Ct=3")
	assert.Contains(t, out, "earliest change: 2026-10-03 00:00:01")

	_, err = execute(t, "smart-history", "--smart-dir", dir, "OTHER", "X")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "disktriage v"+Version+"\n", out)
}

func TestExitCodeError(t *testing.T) {
	err := fmt.Errorf("scan: %w", ExitCodeError{Code: 2})
	var exit ExitCodeError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.Code)
	assert.Equal(t, "exit 2", exit.Error())
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	defer func() { global = globalFlags{} }()

	global = globalFlags{verbose: true}
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "debug", cfg.LogLevel)

	global = globalFlags{verbose: true, logLevel: "warn"}
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}
