package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ftahirops/disktriage/collector"
	"github.com/ftahirops/disktriage/config"
	"github.com/ftahirops/disktriage/engine"
	"github.com/ftahirops/disktriage/metrics"
	"github.com/ftahirops/disktriage/model"
	"github.com/ftahirops/disktriage/store"
	"github.com/ftahirops/disktriage/ui"
)

type scanOptions struct {
	logPath    string
	days       int
	smartDir   string
	jsonOut    bool
	msgpackOut string
	dbPath     string
	metrics    string
	eventLog   string
	noSmartctl bool
	noCollect  bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions
	c := &cobra.Command{
		Use:   "scan [device...]",
		Short: "Scan kernel logs and SMART history, print one record per affected disk",
		Long: `Scan the kernel log retention window for SCSI/SAS error sequences.

Devices may be given as names (sdh) or paths, including /dev/disk/by-id links.
Without devices every disk named by an error in the logs is reported.`,
		Example: `  disktriage scan
  disktriage scan /dev/disk/by-id/wwn-0x5000c500a1b2c3d4
  disktriage scan --days 30 --json sdh sdk
  disktriage scan --db /var/lib/disktriage/runs.db --metrics /var/lib/node_exporter/disktriage.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyScanFlags(cmd, &cfg, opts)
			return runScan(cmd.OutOrStdout(), cfg, opts, args)
		},
	}
	f := c.Flags()
	f.StringVar(&opts.logPath, "log", "", "kernel log base path (default from config: /var/log/kern.log)")
	f.IntVar(&opts.days, "days", 0, "retention window in days")
	f.StringVar(&opts.smartDir, "smart-dir", "", "smartd attribute log directory")
	f.BoolVar(&opts.jsonOut, "json", false, "print records as JSON instead of the summary")
	f.StringVar(&opts.msgpackOut, "msgpack", "", "also write records to FILE in msgpack")
	f.StringVar(&opts.dbPath, "db", "", "store the run in this SQLite database")
	f.StringVar(&opts.metrics, "metrics", "", "write Prometheus textfile metrics to FILE")
	f.StringVar(&opts.eventLog, "event-log", "", "append records to this JSONL file")
	f.BoolVar(&opts.noSmartctl, "no-smartctl", false, "do not run smartctl")
	f.BoolVar(&opts.noCollect, "no-collect", false, "skip all collaborators (smartctl, mount table, sysfs)")
	return c
}

func applyScanFlags(cmd *cobra.Command, cfg *config.Config, opts scanOptions) {
	f := cmd.Flags()
	if f.Changed("log") {
		cfg.LogPath = opts.logPath
	}
	if f.Changed("days") {
		cfg.RetentionDays = opts.days
	}
	if f.Changed("smart-dir") {
		cfg.SmartDir = opts.smartDir
	}
	if f.Changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if f.Changed("metrics") {
		cfg.MetricsTextfile = opts.metrics
	}
	if f.Changed("event-log") {
		cfg.EventLog = opts.eventLog
	}
	if opts.noSmartctl {
		cfg.Smartctl = ""
	}
}

// scanResult is the JSON shape of -json output.
type scanResult struct {
	Timestamp  string                   `json:"timestamp"`
	Host       string                   `json:"host"`
	Files      []string                 `json:"files"`
	Skipped    []string                 `json:"skipped,omitempty"`
	Violations []string                 `json:"violations,omitempty"`
	Records    []*model.DiskErrorRecord `json:"records"`
}

func runScan(out io.Writer, cfg config.Config, opts scanOptions, args []string) error {
	started := time.Now()

	var devices []string
	if len(args) > 0 {
		var err error
		if devices, err = collector.ResolveDevices(args); err != nil {
			return err
		}
	}

	host := collector.Hostname()
	seg := &collector.Segmenter{Base: cfg.LogPath, RetentionDays: cfg.RetentionDays}
	corr := engine.NewCorrelator(seg, engine.HistoryLocator{Dir: cfg.SmartDir})
	corr.Devices = devices
	corr.Verbose = cfg.Verbose
	corr.Host = host

	report, err := corr.ScanLogs()
	if err != nil {
		log.Warn().Err(err).Msg("Kernel log scan failed, continuing with SMART data only")
	}
	log.Info().Int("files", len(report.Files)).Int("skipped", len(report.Skipped)).
		Int("commits", report.Stats.Commits).Int("disks", corr.Registry.Len()).Msg("Kernel logs scanned")

	targets := devices
	if len(targets) == 0 {
		targets = corr.Registry.Devices()
	}
	if !opts.noCollect {
		collectors := collector.NewRegistry(cfg.Smartctl)
		for _, dev := range targets {
			info, errs := collectors.CollectAll(dev)
			for _, e := range errs {
				log.Warn().Err(e).Str("device", dev).Msg("Collaborator failed")
			}
			if _, err := corr.MergeDevice(info); err != nil {
				log.Warn().Err(err).Str("device", dev).Msg("Cannot merge device facts")
			}
		}
	} else {
		for _, dev := range targets {
			if _, err := corr.Registry.GetOrCreate(dev, host); err != nil {
				return err
			}
		}
	}

	recs := corr.Registry.Records()

	if opts.jsonOut {
		res := scanResult{
			Timestamp: started.Format(time.RFC3339),
			Host:      host,
			Files:     report.Files,
			Skipped:   report.Skipped,
			Records:   recs,
		}
		for _, v := range report.Violations {
			res.Violations = append(res.Violations, v.Error())
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, ui.RenderSummary(recs, started))
	}

	if err := exportRun(cfg, opts, started, host, report, recs); err != nil {
		return err
	}

	if report.ViolationCount() > 0 {
		return ExitCodeError{Code: 2}
	}
	return nil
}

// exportRun writes the optional outputs. Each is independent of the others.
func exportRun(cfg config.Config, opts scanOptions, started time.Time, host string, report engine.RunReport, recs []*model.DiskErrorRecord) error {
	if cfg.EventLog != "" {
		if err := engine.NewRecordLogWriter(cfg.EventLog).Write(recs); err != nil {
			return fmt.Errorf("event log: %w", err)
		}
	}

	if opts.msgpackOut != "" {
		f, err := os.Create(opts.msgpackOut)
		if err != nil {
			return fmt.Errorf("msgpack export: %w", err)
		}
		werr := engine.WriteMsgpack(f, recs)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("msgpack export: %w", werr)
		}
	}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveRun(context.Background(), store.Run{
			StartedAt:  started,
			Host:       host,
			Files:      len(report.Files),
			Violations: report.ViolationCount(),
		}, recs)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		log.Info().Str("run", id).Str("db", cfg.DBPath).Msg("Run stored")
	}

	if cfg.MetricsTextfile != "" {
		exp := metrics.NewExporter()
		exp.Observe(recs, len(report.Files), report.ViolationCount())
		if err := exp.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("metrics textfile: %w", err)
		}
	}
	return nil
}
