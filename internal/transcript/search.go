package transcript

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tripleee/sloshy/pkg/logx"
)

// Search looks for posts by user in the room containing phrase. It returns
// the permalink of the newest match, or "" when nothing was found.
func (c *Client) Search(ctx context.Context, server string, roomID int, userID int64, phrase string) (string, error) {
	searchURL := fmt.Sprintf("%s://%s/search?q=%s&user=%d&room=%d",
		c.scheme, server, url.QueryEscape(phrase), userID, roomID)
	c.log.Debug("searching room",
		logx.String("phrase", phrase),
		logx.String("url", searchURL))

	doc, err := c.get(ctx, searchURL)
	if err != nil {
		return "", fmt.Errorf("search %s: %w", searchURL, err)
	}

	content := doc.doc.Find("div#content")
	if containsCollapsed(content.Text(), "0 messages found") {
		return "", nil
	}
	href, ok := content.Find("div.messages a").First().Attr("href")
	if !ok {
		return "", fmt.Errorf("search %s: no message link in results", searchURL)
	}
	return fmt.Sprintf("%s://%s%s", c.scheme, server, href), nil
}
