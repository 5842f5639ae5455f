package main

import (
	"testing"
)

func TestParseArgsModes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want modeKind
	}{
		{name: "default is scan", args: nil, want: modeScan},
		{name: "migrate", args: []string{"--migrate"}, want: modeMigrate},
		{name: "test rooms", args: []string{"--test-rooms"}, want: modeTestRooms},
		{name: "announce", args: []string{"--announce", "--message", "hi"}, want: modeAnnounce},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inv, err := parseArgs(tt.args)
			if err != nil {
				t.Fatalf("parseArgs(%v): %v", tt.args, err)
			}
			if inv.kind != tt.want {
				t.Errorf("kind = %d, want %d", inv.kind, tt.want)
			}
		})
	}
}

func TestParseArgsRejectsCombinedModes(t *testing.T) {
	t.Parallel()
	if _, err := parseArgs([]string{"--migrate", "--announce"}); err == nil {
		t.Fatal("expected error for combined mode flags")
	}
}

func TestParseArgsBotIDs(t *testing.T) {
	t.Parallel()
	inv, err := parseArgs([]string{
		"--migrate",
		"--bot-id", "chat.stackexchange.com=514718",
		"--bot-id", "chat.stackoverflow.com=16115299",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if inv.identities["chat.stackexchange.com"] != 514718 {
		t.Errorf("identities = %v", inv.identities)
	}
	if inv.identities["chat.stackoverflow.com"] != 16115299 {
		t.Errorf("identities = %v", inv.identities)
	}
}

func TestParseArgsBotIDValidation(t *testing.T) {
	t.Parallel()
	if _, err := parseArgs([]string{"--bot-id", "chat.stackexchange.com=514718"}); err == nil {
		t.Fatal("--bot-id without --migrate should fail")
	}
	if _, err := parseArgs([]string{"--migrate", "--bot-id", "no-equals-sign"}); err == nil {
		t.Fatal("malformed --bot-id should fail")
	}
	if _, err := parseArgs([]string{"--migrate", "--bot-id", "host=notanumber"}); err == nil {
		t.Fatal("non-numeric id should fail")
	}
}

func TestParseArgsRejectsPositionalArgs(t *testing.T) {
	t.Parallel()
	if _, err := parseArgs([]string{"scan"}); err == nil {
		t.Fatal("expected error for positional argument")
	}
}
