package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftahirops/disktriage/engine"
	"github.com/ftahirops/disktriage/model"
	"github.com/ftahirops/disktriage/store"
	"github.com/ftahirops/disktriage/ui"
)

func newBrowseCmd() *cobra.Command {
	var runID, serial string
	c := &cobra.Command{
		Use:   "browse FILE",
		Short: "Browse saved records interactively (JSONL event log, msgpack export or run database)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			recs, err := loadRecords(args[0], runID, serial)
			if err != nil {
				return err
			}
			return ui.RunBrowser(recs)
		},
	}
	c.Flags().StringVar(&runID, "run", "", "run id when FILE is a database (default: newest run)")
	c.Flags().StringVar(&serial, "serial", "", "show every stored record of one disk serial across runs (database only)")
	return c
}

// loadRecords picks a reader by file extension. A non-empty serial selects
// that disk's records from every stored run instead of a single run.
func loadRecords(path, runID, serial string) ([]*model.DiskErrorRecord, error) {
	isDB := strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite")
	if serial != "" && !isDB {
		return nil, fmt.Errorf("%s: --serial needs a run database", path)
	}
	switch {
	case isDB:
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		ctx := context.Background()
		if serial != "" {
			recs, err := st.BySerial(ctx, serial)
			if err != nil {
				return nil, err
			}
			if len(recs) == 0 {
				return nil, fmt.Errorf("%s: no records for serial %s", path, serial)
			}
			return recs, nil
		}
		if runID == "" {
			runs, err := st.Runs(ctx)
			if err != nil {
				return nil, err
			}
			if len(runs) == 0 {
				return nil, fmt.Errorf("%s: no runs stored", path)
			}
			runID = runs[0].ID
		}
		return st.Records(ctx, runID)
	case strings.HasSuffix(path, ".msgpack") || strings.HasSuffix(path, ".mp"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return engine.ReadMsgpack(f)
	default:
		return engine.ReadRecordLog(path)
	}
}
