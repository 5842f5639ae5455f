package config

import (
	"errors"
	"fmt"
)

// ErrAlreadyMigrated is returned when the input document carries any schema
// marker. A marker means the file is already current, or comes from a future
// layout this binary doesn't know; either way it must not be rewritten.
var ErrAlreadyMigrated = errors.New(
	"config already carries a schema marker; refusing to migrate")

// Migrate transforms a legacy document (flat rooms list, no schema marker)
// into the current layout: versioned, rooms grouped per named server, each
// server carrying the bot's own user id on that network.
//
// The transform is pure: room order is preserved, unknown room fields are
// carried through unchanged, and top-level settings (nodename, threshold,
// local, logging, auth) survive as-is. Identities supplies the per-host bot
// user id; hosts missing from it get 0, which keeps the server valid but
// disables the announce feature until the id is filled in.
func Migrate(doc *Document, identities map[string]int64) (*Document, error) {
	if doc.Schema != 0 {
		return nil, fmt.Errorf("%w (marker: %d)", ErrAlreadyMigrated, doc.Schema)
	}
	if len(doc.Servers) > 0 {
		return nil, fmt.Errorf("%w (servers section present)", ErrAlreadyMigrated)
	}
	if len(doc.Rooms) == 0 {
		return nil, errors.New("config: legacy document has no rooms to migrate")
	}

	out := &Document{
		Schema:    CurrentSchema,
		Nodename:  doc.Nodename,
		Threshold: doc.Threshold,
		Local:     doc.Local,
		Logging:   doc.Logging,
		Auth:      doc.Auth,
		Servers:   make(map[string]ServerDoc),
	}

	for _, entry := range doc.Rooms {
		for host, rooms := range entry {
			if host == "" {
				return nil, errors.New("config: legacy room entry with empty server name")
			}
			sd := out.Servers[host] // zero value on first sight of host
			sd.SloshyID = identities[host]
			sd.Rooms = append(sd.Rooms, rooms...)
			out.Servers[host] = sd
		}
	}
	return out, nil
}
