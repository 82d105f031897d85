package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prodcal/core/runlog"
)

var (
	logsStart  string
	logsEnd    string
	logsStatus string
	logsLimit  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recorded schedule fetches",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsStart, "start", "", "only records at or after this RFC3339 time")
	logsCmd.Flags().StringVar(&logsEnd, "end", "", "only records at or before this RFC3339 time")
	logsCmd.Flags().StringVar(&logsStatus, "status", "", "ok or error")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 0, "keep only the most recent records")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := runlog.Query{Status: logsStatus, Limit: logsLimit}
	if logsStart != "" {
		if q.Start, err = time.Parse(time.RFC3339, logsStart); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}
	if logsEnd != "" {
		if q.End, err = time.Parse(time.RFC3339, logsEnd); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	store, err := runlog.NewStore(cfg.RunLog.Options())
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
