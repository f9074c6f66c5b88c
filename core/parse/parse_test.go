package parse

import "testing"

type edgeArgs struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Token  string `json:"token,omitempty"`
}

func TestParseStringAsPrimitives(t *testing.T) {
	if got, err := ParseStringAs[string]("hello"); err != nil || got != "hello" {
		t.Errorf("string: %q, %v", got, err)
	}
	if got, err := ParseStringAs[bool]("true"); err != nil || !got {
		t.Errorf("bool: %v, %v", got, err)
	}
	if got, err := ParseStringAs[int]("42"); err != nil || got != 42 {
		t.Errorf("int: %d, %v", got, err)
	}
	if got, err := ParseStringAs[float64]("3.5"); err != nil || got != 3.5 {
		t.Errorf("float: %v, %v", got, err)
	}
	if _, err := ParseStringAs[int]("not a number"); err == nil {
		t.Error("invalid int accepted")
	}
}

func TestParseStringAsStruct(t *testing.T) {
	got, err := ParseStringAs[edgeArgs](`{"source":"w1","target":"s1","token":"USDC"}`)
	if err != nil {
		t.Fatalf("ParseStringAs: %v", err)
	}
	if got.Source != "w1" || got.Target != "s1" || got.Token != "USDC" {
		t.Errorf("parsed = %+v", got)
	}
}

func TestParseStringAsRepairsMalformedJSON(t *testing.T) {
	// Single quotes and unquoted keys, the usual model output defects.
	got, err := ParseStringAs[edgeArgs](`{source: 'w1', target: 's1'}`)
	if err != nil {
		t.Fatalf("repair path failed: %v", err)
	}
	if got.Source != "w1" || got.Target != "s1" {
		t.Errorf("parsed = %+v", got)
	}
}

func TestParseStringAsEmptyMeansNoArguments(t *testing.T) {
	got, err := ParseStringAs[edgeArgs]("")
	if err != nil {
		t.Fatalf("empty content: %v", err)
	}
	if got != (edgeArgs{}) {
		t.Errorf("parsed = %+v, want zero value", got)
	}
}

func TestParseStringAsMap(t *testing.T) {
	got, err := ParseStringAs[map[string]any](`{"leverage": 3, "venue": "Hyperliquid"}`)
	if err != nil {
		t.Fatalf("ParseStringAs: %v", err)
	}
	if got["venue"] != "Hyperliquid" {
		t.Errorf("parsed = %+v", got)
	}
}
