package collector

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/basislager/dstcrawl/collector/clients"
	Logger "github.com/basislager/dstcrawl/utils/log"
)

// EntryKind tells whether a ressort entry links a ticker or an article.
type EntryKind string

const (
	EntryTicker  EntryKind = "ticker"
	EntryArticle EntryKind = "article"
)

// RessortEntry is one content link found on a ressort overview page.
type RessortEntry struct {
	Kind EntryKind
	ID   int64
}

var ressortEntryRe = regexp.MustCompile(`(/story/(?P<article>[0-9]+))|(/jetzt/livebericht/(?P<ticker>[0-9]+))`)

// GetRessortEntries walks the date-indexed overview pages of a ressort
// from end backwards to start and collects the ticker and article IDs
// linked on them. The dates are a guideline: the site groups entries
// loosely, so returned entries may fall slightly outside the range. Days
// without entries answer 404 and are skipped.
func (a *API) GetRessortEntries(ctx context.Context, ressort string, start, end time.Time) ([]RessortEntry, error) {
	var entries []RessortEntry
	seen := make(map[RessortEntry]bool)

	date := end
	for !date.Before(start) {
		page, err := a.site.Page(ctx, fmt.Sprintf("/%s/%d/%d/%d", strings.ToLower(ressort), date.Year(), int(date.Month()), date.Day()))
		if err != nil {
			var statusErr *clients.HTTPStatusError
			if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
				date = date.AddDate(0, 0, -1)
				continue
			}
			return nil, err
		}

		for _, match := range ressortEntryRe.FindAllStringSubmatch(page, -1) {
			entry, ok := parseRessortMatch(match)
			if !ok || seen[entry] {
				continue
			}
			seen[entry] = true
			entries = append(entries, entry)
		}

		next, ok, err := nextOverviewDate(page)
		if err != nil {
			return nil, errors.Wrapf(err, "parse overview page of %s at %s", ressort, date.Format("2006-01-02"))
		}
		if !ok || !next.Before(date) {
			break
		}
		date = next
	}

	Logger.Log.Infof("ressort %s: found %d entries", ressort, len(entries))
	return entries, nil
}

func parseRessortMatch(match []string) (RessortEntry, bool) {
	for i, name := range ressortEntryRe.SubexpNames() {
		if match[i] == "" {
			continue
		}
		switch name {
		case "article":
			id, err := strconv.ParseInt(match[i], 10, 64)
			if err == nil {
				return RessortEntry{Kind: EntryArticle, ID: id}, true
			}
		case "ticker":
			id, err := strconv.ParseInt(match[i], 10, 64)
			if err == nil {
				return RessortEntry{Kind: EntryTicker, ID: id}, true
			}
		}
	}
	return RessortEntry{}, false
}

// nextOverviewDate reads the read-more anchor pointing at the next older
// overview page. Its absence ends the walk.
func nextOverviewDate(page string) (time.Time, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return time.Time{}, false, err
	}
	href, ok := doc.Find("div.overview-readmore a").First().Attr("href")
	if !ok {
		return time.Time{}, false, nil
	}

	parts := strings.Split(strings.TrimRight(href, "/"), "/")
	if len(parts) < 3 {
		return time.Time{}, false, errors.Errorf("unexpected read-more link %q", href)
	}
	day, errD := strconv.Atoi(parts[len(parts)-1])
	month, errM := strconv.Atoi(parts[len(parts)-2])
	year, errY := strconv.Atoi(parts[len(parts)-3])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, false, errors.Errorf("unexpected read-more link %q", href)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true, nil
}
