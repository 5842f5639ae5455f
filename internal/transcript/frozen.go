package transcript

import (
	"context"
	"fmt"
	"strings"
)

// The room-info feeds tab is the cheapest place the service admits a room is
// out of service.
var frozenOrDeletedMarkers = []string{
	"Because this room is deleted, no feeds are being posted into this room.",
	"Because this room is frozen, no feeds are being posted into this room.",
}

// CheckFrozenOrDeleted returns ErrFrozenOrDeleted when the room's info page
// says the room is frozen or deleted, nil when the room is in service.
func (c *Client) CheckFrozenOrDeleted(ctx context.Context, server string, roomID int) error {
	url := fmt.Sprintf("%s://%s/rooms/info/%d/?tab=feeds", c.scheme, server, roomID)
	doc, err := c.get(ctx, url)
	if err != nil {
		return fmt.Errorf("room info %s: %w", url, err)
	}

	text := doc.doc.Find("body").Text()
	for _, marker := range frozenOrDeletedMarkers {
		if containsCollapsed(text, marker) {
			return fmt.Errorf("%w: %s:%d", ErrFrozenOrDeleted, server, roomID)
		}
	}
	return nil
}

// containsCollapsed compares with runs of whitespace collapsed, since the
// marker sentences wrap across lines in the rendered HTML.
func containsCollapsed(haystack, needle string) bool {
	return strings.Contains(collapseSpace(haystack), collapseSpace(needle))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
