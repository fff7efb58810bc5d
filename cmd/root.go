package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ftahirops/disktriage/config"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// ExitCodeError signals a non-zero exit code without calling os.Exit directly.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	verbose    bool
}

var global globalFlags

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "disktriage",
		Short: "Correlate kernel disk errors and SMART history into per-disk incident records",
		Long: `disktriage walks rotated kernel logs, rebuilds SCSI/SAS error sequences into
per-disk error records and merges smartd attribute history and smartctl facts
for each affected disk.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&global.configPath, "config", "", "config file (default: "+config.Path()+")")
	root.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "report unrecognized kernel lines")

	root.AddCommand(newScanCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newBrowseCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "disktriage v%s\n", Version)
		},
	}
}

// Run parses the command line and executes the selected command.
func Run() error {
	return newRootCmd().Execute()
}

// loadConfig loads the config file and environment, then applies global flags.
func loadConfig() (config.Config, error) {
	path := global.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if global.logLevel != "" {
		cfg.LogLevel = global.logLevel
	}
	if global.verbose {
		cfg.Verbose = true
		if global.logLevel == "" {
			cfg.LogLevel = "debug"
		}
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

// setupLogging configures zerolog based on log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
