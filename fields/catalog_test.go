package fields

import "testing"

func TestSymbolic(t *testing.T) {
	tests := []struct {
		service ServiceID
		code    int
		want    string
		wantOk  bool
	}{
		{QUOTE, 0, "key", true},
		{QUOTE, 1, "BID_PRICE", true},
		{QUOTE, 49, "MARK", true},
		{QUOTE, 52, "REGULAR_MARKET_TRADE_TIME_IN_LONG", true},
		{QUOTE, 53, "", false},
		{QUOTE, -1, "", false},
		{OPTION, 0, "key", true},
		{"NOT_A_SERVICE", 0, "", false},
	}
	for _, tt := range tests {
		got, ok := Symbolic(tt.service, tt.code)
		if ok != tt.wantOk || got != tt.want {
			t.Errorf("Symbolic(%s, %d) = (%q, %v), want (%q, %v)", tt.service, tt.code, got, ok, tt.want, tt.wantOk)
		}
	}
}

func TestCodeOf_RoundTrip(t *testing.T) {
	for _, code := range AllFieldCodes(QUOTE) {
		name, ok := Symbolic(QUOTE, code)
		if !ok {
			t.Fatalf("Symbolic(QUOTE, %d) missing", code)
		}
		gotCode, ok := CodeOf(QUOTE, name)
		if !ok || gotCode != code {
			t.Errorf("CodeOf(QUOTE, %q) = (%d, %v), want (%d, true)", name, gotCode, ok, code)
		}
	}
}

func TestAllFieldCodes_Contiguous(t *testing.T) {
	codes := AllFieldCodes(QUOTE)
	if len(codes) == 0 {
		t.Fatal("expected non-empty field codes for QUOTE")
	}
	for i, c := range codes {
		if c != i {
			t.Errorf("AllFieldCodes(QUOTE)[%d] = %d, want %d", i, c, i)
		}
	}
}

func TestSymbolForKey(t *testing.T) {
	tests := []struct {
		key    string
		want   string
		wantOk bool
	}{
		{"1", "BID_PRICE", true},
		{"not-a-number", "", false},
		{"9999", "", false},
	}
	for _, tt := range tests {
		got, ok := SymbolForKey(QUOTE, tt.key)
		if ok != tt.wantOk || got != tt.want {
			t.Errorf("SymbolForKey(QUOTE, %q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOk)
		}
	}
}
