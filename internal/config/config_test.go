package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sloshy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
schema: 2
nodename: testnode
threshold: 12
servers:
  chat.stackexchange.com:
    sloshy_id: 514718
    rooms:
      - id: 117114
        name: Charcoal HQ
        contact: somebody (123)
      - id: 95280
        threshold: 5
  chat.stackoverflow.com:
    sloshy_id: 16115299
    rooms:
      - id: 233626
        name: Sloshy the Thawman
        role: home
`

func TestLoadValid(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeFile(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Nodename != "testnode" {
		t.Errorf("Nodename = %q", cfg.Nodename)
	}
	if cfg.Threshold != 12*24*time.Hour {
		t.Errorf("Threshold = %v", cfg.Threshold)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("got %d servers", len(cfg.Servers))
	}
	// sorted host order
	if cfg.Servers[0].Host != "chat.stackexchange.com" {
		t.Errorf("first server = %s", cfg.Servers[0].Host)
	}
	if cfg.Servers[0].BotID != 514718 {
		t.Errorf("BotID = %d", cfg.Servers[0].BotID)
	}
	if cfg.HomeRoom == nil || cfg.HomeRoom.ID != 233626 {
		t.Fatalf("HomeRoom = %v", cfg.HomeRoom)
	}

	rooms := cfg.Servers[0].Rooms
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms", len(rooms))
	}
	if rooms[1].Name != "room-95280" {
		t.Errorf("missing name should default to placeholder, got %q", rooms[1].Name)
	}
	if got := cfg.EffectiveThreshold(rooms[0]); got != 12*24*time.Hour {
		t.Errorf("default threshold = %v", got)
	}
	if got := cfg.EffectiveThreshold(rooms[1]); got != 5*24*time.Hour {
		t.Errorf("override threshold = %v", got)
	}
}

func TestLoadRejectsMissingSchema(t *testing.T) {
	t.Parallel()
	_, err := Load(writeFile(t, `
rooms:
  - chat.stackexchange.com:
      - id: 1
        name: Sandbox
        role: home
`))
	if !errors.Is(err, ErrSchemaOutdated) {
		t.Fatalf("expected ErrSchemaOutdated, got %v", err)
	}
}

func TestLoadRejectsUnknownSchema(t *testing.T) {
	t.Parallel()
	_, err := Load(writeFile(t, strings.Replace(validConfig, "schema: 2", "schema: 9", 1)))
	if !errors.Is(err, ErrSchemaOutdated) {
		t.Fatalf("expected ErrSchemaOutdated, got %v", err)
	}
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	t.Parallel()
	_, err := Load(writeFile(t, validConfig+"\nbogus_key: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestLoadValidationErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "no servers",
			doc:  "schema: 2\n",
		},
		{
			name: "server without rooms",
			doc: `
schema: 2
servers:
  chat.stackexchange.com:
    sloshy_id: 1
    rooms: []
`,
		},
		{
			name: "room without id",
			doc: `
schema: 2
servers:
  chat.stackexchange.com:
    sloshy_id: 1
    rooms:
      - name: nameless
        role: home
`,
		},
		{
			name: "no home room",
			doc: `
schema: 2
servers:
  chat.stackexchange.com:
    sloshy_id: 1
    rooms:
      - id: 5
`,
		},
		{
			name: "two home rooms",
			doc: `
schema: 2
servers:
  chat.stackexchange.com:
    sloshy_id: 1
    rooms:
      - id: 5
        role: home
      - id: 6
        role: home
`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeFile(t, tt.doc)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadDuplicateRoomSkipped(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeFile(t, `
schema: 2
servers:
  chat.stackexchange.com:
    sloshy_id: 1
    rooms:
      - id: 5
        name: first
        role: home
      - id: 5
        name: duplicate
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Servers[0].Rooms) != 1 {
		t.Fatalf("duplicate not skipped: %d rooms", len(cfg.Servers[0].Rooms))
	}
	if len(cfg.Warnings) == 0 {
		t.Error("expected a duplicate-room warning")
	}
}

func TestLoadAuthBlockWarns(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeFile(t, validConfig+`
auth:
  email: bot@example.com
  password: hunter2
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Email != "bot@example.com" || cfg.Password != "hunter2" {
		t.Errorf("auth not picked up: %q / %q", cfg.Email, cfg.Password)
	}
	found := false
	for _, w := range cfg.Warnings {
		if strings.Contains(w, "credentials") {
			found = true
		}
	}
	if !found {
		t.Error("expected a credentials warning")
	}
}
