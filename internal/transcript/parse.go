package transcript

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// pageDoc wraps the parsed HTML of one service page.
type pageDoc struct {
	doc *goquery.Document
}

func newPageDoc(r io.Reader) (*pageDoc, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &pageDoc{doc: doc}, nil
}

// message is one monologue extracted from a transcript page.
type message struct {
	when   time.Time
	userID int64
	user   string
	text   string
}

// transcriptPage is the parsed form of a single transcript day.
type transcriptPage struct {
	date     time.Time
	messages []message // page order, oldest first
	prevPath string    // path of the previous (older) page, "" when none
}

// parseTranscriptPage extracts the page date, the monologues, and the
// older-page link from a transcript document.
//
// The page date comes from the <title>, which ends in " - YYYY-MM-DD" and
// sometimes carries a " (page 1 of 2)" suffix. Message timestamps are
// clock-only ("3:45 PM"); monologues without a visible timestamp inherit
// midnight of the page date.
func parseTranscriptPage(p *pageDoc) (*transcriptPage, error) {
	title := strings.TrimSpace(p.doc.Find("title").First().Text())
	if !strings.Contains(title, " - ") {
		return nil, errors.New("page title has no date component")
	}
	if i := strings.Index(title, " (page "); i >= 0 {
		title = title[:i]
	}
	datestr := title[strings.LastIndex(title, " - ")+len(" - "):]
	date, err := time.Parse("2006-01-02", datestr)
	if err != nil {
		return nil, fmt.Errorf("page date %q: %w", datestr, err)
	}

	tp := &transcriptPage{date: date}

	p.doc.Find("div.monologue").Each(func(_ int, sel *goquery.Selection) {
		m := message{when: date}
		if ts := strings.TrimSpace(sel.Find("div.timestamp").First().Text()); ts != "" {
			if clock, err := time.Parse("3:04 PM", ts); err == nil {
				m.when = date.Add(time.Duration(clock.Hour())*time.Hour +
					time.Duration(clock.Minute())*time.Minute)
			}
		}
		m.userID, m.user = parseUsername(sel.Find("div.username").First())
		m.text = strings.TrimSpace(sel.Find("div.content").First().Text())
		tp.messages = append(tp.messages, m)
	})

	if href, ok := p.doc.Find("div#main a[rel=prev]").First().Attr("href"); ok {
		tp.prevPath = href
	}
	return tp, nil
}

// parseUsername extracts the poster's id and name from a username div.
//
// Normal posters link to their profile:
//
//	<div class="username"><a href="/users/3735529/smokedetector">SmokeDetector</a></div>
//
// Deleted accounts render as bare text like "user12716323", and feed posters
// carry negative ids in their profile path.
func parseUsername(sel *goquery.Selection) (int64, string) {
	if a := sel.Find("a").First(); a.Length() > 0 {
		name := strings.TrimSpace(a.Text())
		if href, ok := a.Attr("href"); ok {
			parts := strings.Split(strings.Trim(href, "/"), "/")
			// .../users/<id>/<slug>
			for i, part := range parts {
				if part == "users" && i+1 < len(parts) {
					if id, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
						return id, name
					}
				}
			}
		}
		return 0, name
	}

	name := strings.TrimSpace(sel.Text())
	if rest, ok := strings.CutPrefix(name, "user"); ok {
		if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return id, name
		}
	}
	return 0, name
}
