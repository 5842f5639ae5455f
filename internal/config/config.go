package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultThreshold is the global inactivity ceiling. The service freezes
	// rooms after 14 days of silence; thaw a little before that, just to be
	// on the safe side.
	DefaultThreshold = 12 * 24 * time.Hour

	// LowTrafficThreshold applies to rooms with very little history; the
	// freeze countdown is shorter for those.
	LowTrafficThreshold = 6 * 24 * time.Hour

	// LowTrafficMessageLimit is the message count below which a room is
	// considered low-traffic.
	LowTrafficMessageLimit = 10
)

// ErrSchemaOutdated is returned when the config file has no schema marker or
// an unexpected one. The loader never repairs the file on its own.
var ErrSchemaOutdated = errors.New(
	"config schema is missing or outdated; run sloshy --migrate first")

// RoleHome marks the room that receives the per-run status report.
const RoleHome = "home"

// Config is the validated, in-memory configuration. It is built once at
// startup and treated as read-only for the rest of the run.
type Config struct {
	Nodename  string
	Local     bool
	Threshold time.Duration
	Logging   LoggingSettings

	// Servers in sorted host order; room order within a server follows the
	// file.
	Servers []*Server

	// HomeRoom is the single room tagged role: home.
	HomeRoom *Room

	// Email and Password are only set when the discouraged auth block is
	// present in the file; credentials normally come from the environment.
	Email    string
	Password string

	// Warnings collects non-fatal findings from validation (duplicate rooms,
	// embedded credentials) for the caller to log.
	Warnings []string
}

type LoggingSettings struct {
	Level       string
	Console     bool
	FileEnabled bool
	FilePath    string
}

// Server is one chat host together with the bot's user id on that network.
type Server struct {
	Host  string
	BotID int64
	Rooms []*Room
}

// Room is a single configured chat room.
type Room struct {
	Server    *Server
	ID        int
	Name      string
	Contact   string
	Threshold time.Duration // 0 means use the global default
	Role      string
}

func (r *Room) IsHome() bool { return r.Role == RoleHome }

// URL returns the room's transcript-facing address, for human-readable
// status lines.
func (r *Room) URL() string {
	return fmt.Sprintf("https://%s/rooms/%d", r.Server.Host, r.ID)
}

func (r *Room) String() string {
	return fmt.Sprintf("%s:%d (%s)", r.Server.Host, r.ID, r.Name)
}

// EffectiveThreshold resolves the room's inactivity threshold: the per-room
// override when present, otherwise the global default.
func (c *Config) EffectiveThreshold(r *Room) time.Duration {
	if r.Threshold > 0 {
		return r.Threshold
	}
	return c.Threshold
}

// AllRooms returns every configured room in server, then file, order.
func (c *Config) AllRooms() []*Room {
	var rooms []*Room
	for _, s := range c.Servers {
		rooms = append(rooms, s.Rooms...)
	}
	return rooms
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	doc, err := ParseDocument(path)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

func build(doc *Document) (*Config, error) {
	if doc.Schema != CurrentSchema {
		return nil, fmt.Errorf("%w (schema marker: %d, want %d)",
			ErrSchemaOutdated, doc.Schema, CurrentSchema)
	}
	if len(doc.Servers) == 0 {
		return nil, errors.New("config: no servers configured")
	}

	cfg := &Config{
		Nodename:  doc.Nodename,
		Local:     doc.Local,
		Threshold: DefaultThreshold,
		Logging: LoggingSettings{
			Level:   "info",
			Console: true,
		},
	}
	if doc.Threshold > 0 {
		cfg.Threshold = time.Duration(doc.Threshold) * 24 * time.Hour
	}
	if doc.Logging != nil {
		if doc.Logging.Level != "" {
			cfg.Logging.Level = doc.Logging.Level
		}
		if doc.Logging.Console != nil {
			cfg.Logging.Console = *doc.Logging.Console
		}
		if doc.Logging.File != nil {
			cfg.Logging.FileEnabled = doc.Logging.File.Enabled
			cfg.Logging.FilePath = doc.Logging.File.Path
		}
	}
	if doc.Auth != nil {
		cfg.Email = doc.Auth.Email
		cfg.Password = doc.Auth.Password
		cfg.Warnings = append(cfg.Warnings,
			"chat credentials read from config file; prefer SLOSHY_EMAIL/SLOSHY_PASSWORD")
	}

	for _, host := range doc.hosts() {
		sd := doc.Servers[host]
		if len(sd.Rooms) == 0 {
			return nil, fmt.Errorf("config: server %s has no rooms", host)
		}
		srv := &Server{Host: host, BotID: sd.SloshyID}
		seen := make(map[int]bool, len(sd.Rooms))
		for _, rd := range sd.Rooms {
			if rd.ID <= 0 {
				return nil, fmt.Errorf("config: server %s: room without a valid id (name %q)",
					host, rd.Name)
			}
			if seen[rd.ID] {
				cfg.Warnings = append(cfg.Warnings, fmt.Sprintf(
					"skipping duplicate room %s:%d (%s)", host, rd.ID, rd.Name))
				continue
			}
			seen[rd.ID] = true

			room := &Room{
				Server:  srv,
				ID:      rd.ID,
				Name:    rd.Name,
				Contact: rd.Contact,
				Role:    rd.Role,
			}
			if room.Name == "" {
				room.Name = fmt.Sprintf("room-%d", rd.ID)
			}
			if rd.Threshold > 0 {
				room.Threshold = time.Duration(rd.Threshold) * 24 * time.Hour
			}
			if room.IsHome() {
				if cfg.HomeRoom != nil {
					return nil, fmt.Errorf("config: more than one home room (%s and %s)",
						cfg.HomeRoom, room)
				}
				cfg.HomeRoom = room
			}
			srv.Rooms = append(srv.Rooms, room)
		}
		cfg.Servers = append(cfg.Servers, srv)
	}

	if cfg.HomeRoom == nil {
		return nil, errors.New("config: no room has role: home")
	}
	return cfg, nil
}
