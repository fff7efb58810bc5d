package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftahirops/disktriage/engine"
	"github.com/ftahirops/disktriage/model"
)

func newHistoryCmd() *cobra.Command {
	var smartDir, device string
	c := &cobra.Command{
		Use:   "smart-history MODEL SERIAL",
		Short: "Show the SMART attribute changes recorded by smartd for one disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("smart-dir") {
				cfg.SmartDir = smartDir
			}
			if device == "" {
				device = args[1]
			}

			loc := engine.HistoryLocator{Dir: cfg.SmartDir}
			snaps, hf, err := engine.LoadHistory(loc, args[0], args[1])
			if err != nil {
				return err
			}
			reg := engine.NewRegistry()
			rec, err := reg.GetOrCreate(device, "")
			if err != nil {
				return err
			}
			rec.Model, rec.Serial = args[0], args[1]
			hist := engine.MergeHistory(reg, rec, snaps, hf.Path)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d samples, %s .. %s)\n", hf.Path, len(snaps),
				hist.Start.Format("2006-01-02 15:04:05"), hist.End.Format("2006-01-02 15:04:05"))
			for _, ch := range hist.Changes {
				var parts []string
				for _, k := range model.SortedKeys(ch.Values) {
					parts = append(parts, fmt.Sprintf("%s=%d", model.AttributeLabel(k), ch.Values[k]))
				}
				fmt.Fprintf(out, "%s  %s\n", ch.Time.Format("2006-01-02 15:04:05"), strings.Join(parts, " "))
			}
			if t, ok := rec.EarliestError(); ok {
				fmt.Fprintf(out, "earliest change: %s\n", t.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	c.Flags().StringVar(&smartDir, "smart-dir", "", "smartd attribute log directory")
	c.Flags().StringVar(&device, "device", "", "device name to label the record with (default: serial)")
	return c
}
