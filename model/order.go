package model

import "encoding/json"

// knownIntentFields are the OrderIntent fields handled explicitly; anything
// else lands in Extra and is forwarded verbatim to the order service.
var knownIntentFields = map[string]bool{
	"userId":    true,
	"itemId":    true,
	"startDate": true,
	"endDate":   true,
	"notes":     true,
	"metadata":  true,
}

// OrderIntent is the client-supplied order creation payload. Unknown fields
// are tolerated for forward compatibility: they are captured in Extra on
// decode and re-emitted on encode.
type OrderIntent struct {
	UserID    string         `json:"userId"`
	ItemID    string         `json:"itemId"`
	StartDate string         `json:"startDate,omitempty"`
	EndDate   string         `json:"endDate,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Extra     map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and captures any remaining
// top-level keys into Extra.
func (o *OrderIntent) UnmarshalJSON(data []byte) error {
	type alias OrderIntent
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownIntentFields[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw[key], &v); err != nil {
			return err
		}
		if known.Extra == nil {
			known.Extra = make(map[string]any)
		}
		known.Extra[key] = v
	}

	*o = OrderIntent(known)
	return nil
}

// MarshalJSON emits the known fields (empty optionals omitted) merged with
// the Extra bag. Known fields win on key collision.
func (o OrderIntent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Extra)+6)
	for k, v := range o.Extra {
		out[k] = v
	}

	out["userId"] = o.UserID
	out["itemId"] = o.ItemID
	if o.StartDate != "" {
		out["startDate"] = o.StartDate
	}
	if o.EndDate != "" {
		out["endDate"] = o.EndDate
	}
	if o.Notes != "" {
		out["notes"] = o.Notes
	}
	if o.Metadata != nil {
		out["metadata"] = o.Metadata
	}

	return json.Marshal(out)
}
