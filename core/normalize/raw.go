package normalize

import "encoding/json"

// Raw item types emitted by the scheduling backend.
const (
	TypeProduction = "PRODUCTION"
	TypeOT         = "OT"
	TypeSetup      = "SETUP"
)

// RawItem is one entry of the backend "schedule" array. Start and End are
// hour offsets from the request's start_datetime. Optional fields are
// pointers so that absence can be told apart from zero.
type RawItem struct {
	ID      string   `json:"id,omitempty"`
	Machine string   `json:"machine"`
	Type    string   `json:"type"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`

	// PRODUCTION (multi-order) fields.
	OrderIDs []string `json:"ot_ids,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
	Product  *string  `json:"product,omitempty"`
	Format   *string  `json:"format,omitempty"`
	OnTime   *bool    `json:"on_time,omitempty"`

	// OT (legacy single-order) fields.
	QtyClient *int     `json:"qty_cliente,omitempty"`
	Qty       *int     `json:"qty,omitempty"`
	QtyExtra  *int     `json:"qty_extra,omitempty"`
	Due       *float64 `json:"due,omitempty"`
}

// RawDelay is one entry of summary.atrasos.
type RawDelay struct {
	OrderID    string   `json:"ot_id"`
	DelayHours float64  `json:"atraso_horas"`
	Due        *float64 `json:"due,omitempty"`
	Completion *float64 `json:"completion,omitempty"`
	Cluster    *int     `json:"cluster,omitempty"`
}

// RawSummary is the backend's scheduling summary. Only the delay list is
// interpreted; the rest is kept for pass-through.
type RawSummary struct {
	Delays []RawDelay                 `json:"atrasos,omitempty"`
	Extra  map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unknown summary keys in Extra.
func (s *RawSummary) UnmarshalJSON(b []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	if raw, ok := all["atrasos"]; ok {
		if err := json.Unmarshal(raw, &s.Delays); err != nil {
			return err
		}
		delete(all, "atrasos")
	}
	if len(all) > 0 {
		s.Extra = all
	}
	return nil
}

// MarshalJSON writes the delay list together with the pass-through keys.
func (s RawSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.Delays != nil {
		out["atrasos"] = s.Delays
	}
	return json.Marshal(out)
}

// Response is the body returned by the scheduling backend.
type Response struct {
	Schedule          []RawItem                  `json:"schedule"`
	ScheduleByMachine map[string]json.RawMessage `json:"schedule_by_machine,omitempty"`
	Summary           RawSummary                 `json:"summary"`
	Logs              []string                   `json:"logs"`
}
