package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prodcal/app"
	"github.com/kilianp07/prodcal/core/calendar"
	"github.com/kilianp07/prodcal/core/schedule"
	"github.com/kilianp07/prodcal/core/visibility"
	"github.com/kilianp07/prodcal/infra/cache"
	"github.com/kilianp07/prodcal/pkg/export"
)

var (
	renderDate    string
	renderView    string
	renderMachine string
	renderOffset  int
	renderFormat  string
	renderOutput  string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch the schedule and print one calendar view",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderDate, "date", "", "day to render (YYYY-MM-DD, default today)")
	renderCmd.Flags().StringVar(&renderView, "view", "DAILY", "DAILY or INDIVIDUAL")
	renderCmd.Flags().StringVar(&renderMachine, "machine", "", "machine of the individual view")
	renderCmd.Flags().IntVar(&renderOffset, "offset", 0, "first visible machine of the daily view")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "text", "output format: json, csv or text")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc := cfg.View.Location()
	mode, err := calendar.ParseViewMode(renderView)
	if err != nil {
		return err
	}
	p := calendar.Params{Mode: mode, Machine: renderMachine, MachineOffset: renderOffset}
	if renderDate == "" {
		p.Date = visibility.StartOfDay(time.Now(), loc)
	} else if p.Date, err = calendar.ParseDate(renderDate, loc); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	r, err := app.NewRenderer(cfg, nil, cache.Null{}, nil)
	if err != nil {
		return err
	}
	out, err := r.Render(ctx, p)
	if err != nil {
		return fmt.Errorf("%s", schedule.HumanMessage(err))
	}

	w := cmd.OutOrStdout()
	if renderOutput != "" {
		f, err := os.Create(renderOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, renderFormat, out.View)
}
