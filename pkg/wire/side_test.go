package wire

import "testing"

func TestSide(t *testing.T) {
	tests := []struct {
		side Side
		want string
		peer Side
	}{
		{SideServer, "SERVER", SideClient},
		{SideClient, "CLIENT", SideServer},
	}

	for _, tt := range tests {
		if got := tt.side.String(); got != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.side, got, tt.want)
		}
		if got := tt.side.Peer(); got != tt.peer {
			t.Errorf("%s.Peer() = %s, want %s", tt.side, got, tt.peer)
		}
	}

	if Side(9).String() != "UNKNOWN" {
		t.Error("out-of-range side should be UNKNOWN")
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"server": SideServer, "Client": SideClient, " SERVER ": SideServer} {
		got, err := ParseSide(in)
		if err != nil || got != want {
			t.Errorf("ParseSide(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseSide("peer"); err == nil {
		t.Error("expected error for unknown side")
	}
}

func TestSideText(t *testing.T) {
	text, err := SideClient.MarshalText()
	if err != nil || string(text) != "client" {
		t.Fatalf("MarshalText = %q, %v", text, err)
	}

	var s Side
	if err := s.UnmarshalText([]byte("server")); err != nil || s != SideServer {
		t.Errorf("UnmarshalText = %v, %v", s, err)
	}
	if _, err := Side(7).MarshalText(); err == nil {
		t.Error("expected error marshaling invalid side")
	}
}
