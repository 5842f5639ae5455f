package config

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CurrentSchema is the config layout version this binary understands.
// Documents without a schema marker are legacy and must be migrated first.
const CurrentSchema = 2

// Document is the raw on-disk shape of the config file, before validation.
//
// Both the current layout (Servers) and the legacy layout (Rooms) are
// representable so the migrator can read either; the loader only accepts
// the current one.
type Document struct {
	Schema    int                  `json:"schema,omitempty"`
	Nodename  string               `json:"nodename,omitempty"`
	Threshold int                  `json:"threshold,omitempty"` // days
	Local     bool                 `json:"local,omitempty"`
	Logging   *LoggingDoc          `json:"logging,omitempty"`
	Auth      *AuthDoc             `json:"auth,omitempty"`
	Servers   map[string]ServerDoc `json:"servers,omitempty"`

	// Rooms is the legacy layout: a sequence of single-entry host -> room-list
	// maps, with no schema marker and no per-server bot identity.
	Rooms []map[string][]RoomDoc `json:"rooms,omitempty"`
}

type ServerDoc struct {
	SloshyID int64     `json:"sloshy_id"`
	Rooms    []RoomDoc `json:"rooms"`
}

type LoggingDoc struct {
	Level   string          `json:"level,omitempty"`
	Console *bool           `json:"console,omitempty"`
	File    *LoggingFileDoc `json:"file,omitempty"`
}

type LoggingFileDoc struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type AuthDoc struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RoomDoc is a single room entry. Unknown keys are preserved in Extra so
// migration and write-back never drop fields this binary doesn't know about.
type RoomDoc struct {
	ID        int    `json:"id"`
	Name      string `json:"name,omitempty"`
	Contact   string `json:"contact,omitempty"`
	Threshold int    `json:"threshold,omitempty"` // days; 0 means global default
	Role      string `json:"role,omitempty"`

	Extra map[string]any `json:"-"`
}

func (r *RoomDoc) UnmarshalJSON(b []byte) error {
	type known struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		Contact   string `json:"contact"`
		Threshold int    `json:"threshold"`
		Role      string `json:"role"`
	}
	var k known
	if err := json.Unmarshal(b, &k); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	delete(all, "id")
	delete(all, "name")
	delete(all, "contact")
	delete(all, "threshold")
	delete(all, "role")

	var extra map[string]any
	if len(all) > 0 {
		extra = make(map[string]any, len(all))
		for key, raw := range all {
			var v any
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return err
			}
			extra[key] = denumber(v)
		}
	}
	*r = RoomDoc{
		ID:        k.ID,
		Name:      k.Name,
		Contact:   k.Contact,
		Threshold: k.Threshold,
		Role:      k.Role,
		Extra:     extra,
	}
	return nil
}

// denumber converts json.Number values back to native ints/floats so the
// YAML encoder doesn't render them as quoted strings.
func denumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, vv := range x {
			x[k] = denumber(vv)
		}
		return x
	case []any:
		for i := range x {
			x[i] = denumber(x[i])
		}
		return x
	default:
		return v
	}
}

// extraKeys returns the preserved unknown keys in sorted order, for
// deterministic serialization.
func (r *RoomDoc) extraKeys() []string {
	if len(r.Extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// hosts returns the server hostnames in sorted order.
func (d *Document) hosts() []string {
	hosts := make([]string, 0, len(d.Servers))
	for h := range d.Servers {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
