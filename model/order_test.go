package model

import (
	"encoding/json"
	"testing"
)

func TestOrderIntent_capturesUnknownFields(t *testing.T) {
	raw := `{"userId":"u-1","itemId":"i-1","notes":"hem adjusted","giftWrap":true,"insurance":{"tier":"gold"}}`

	var intent OrderIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if intent.UserID != "u-1" || intent.ItemID != "i-1" || intent.Notes != "hem adjusted" {
		t.Errorf("known fields = %+v", intent)
	}
	if intent.Extra["giftWrap"] != true {
		t.Errorf("Extra[giftWrap] = %v", intent.Extra["giftWrap"])
	}
	if nested, ok := intent.Extra["insurance"].(map[string]any); !ok || nested["tier"] != "gold" {
		t.Errorf("Extra[insurance] = %v", intent.Extra["insurance"])
	}
}

func TestOrderIntent_forwardsExtrasOnEncode(t *testing.T) {
	intent := OrderIntent{
		UserID: "u-1",
		ItemID: "i-1",
		Extra:  map[string]any{"giftWrap": true},
	}

	data, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	if out["userId"] != "u-1" || out["itemId"] != "i-1" || out["giftWrap"] != true {
		t.Errorf("encoded = %v", out)
	}
}

func TestOrderIntent_omitsEmptyOptionals(t *testing.T) {
	data, err := json.Marshal(OrderIntent{UserID: "u-1", ItemID: "i-1"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	for _, key := range []string{"startDate", "endDate", "notes", "metadata"} {
		if _, present := out[key]; present {
			t.Errorf("empty optional %q serialized", key)
		}
	}
}

func TestOrderIntent_knownFieldsWinOverExtras(t *testing.T) {
	intent := OrderIntent{
		UserID: "u-1",
		ItemID: "i-1",
		Extra:  map[string]any{"userId": "spoofed"},
	}

	data, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	if out["userId"] != "u-1" {
		t.Errorf("userId = %v, want validated value", out["userId"])
	}
}
