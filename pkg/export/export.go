// Package export writes rendered calendar views for the command line.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/prodcal/core/calendar"
)

// Formats lists the accepted Write formats.
var Formats = []string{"json", "csv", "text"}

// Write encodes v in the named format.
func Write(w io.Writer, format string, v calendar.View) error {
	switch strings.ToLower(format) {
	case "", "json":
		return WriteJSON(w, v)
	case "csv":
		return WriteCSV(w, v)
	case "text":
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteJSON writes the view as indented JSON.
func WriteJSON(w io.Writer, v calendar.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var csvHeader = []string{
	"column", "machine_id", "block_id", "kind", "start", "end",
	"top_px", "height_px", "is_last", "is_continuation", "is_partial",
	"product", "quantity", "orders", "delayed_orders",
}

// WriteCSV writes one row per positioned cell.
func WriteCSV(w io.Writer, v calendar.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, col := range v.Columns {
		for _, c := range col.Blocks {
			delayed := make([]string, len(c.DelayedOrders))
			for i, d := range c.DelayedOrders {
				delayed[i] = d.OrderID
			}
			rec := []string{
				col.Key,
				c.MachineID,
				c.ID,
				c.Kind.String(),
				c.Start.Format(time.RFC3339),
				c.End.Format(time.RFC3339),
				strconv.FormatFloat(c.Top, 'f', -1, 64),
				strconv.FormatFloat(c.Height, 'f', -1, 64),
				strconv.FormatBool(c.IsLast),
				strconv.FormatBool(c.IsContinuation),
				strconv.FormatBool(c.IsPartial),
				c.ProductLabel,
				strconv.Itoa(c.Quantity),
				strings.Join(c.OrderIDs, ";"),
				strings.Join(delayed, ";"),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
