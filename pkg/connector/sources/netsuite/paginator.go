package netsuite

import (
	"time"

	stringpool "github.com/syphon-data/syphon/pkg/strings"
)

// PageLimit is the fixed page size requested from list endpoints.
const PageLimit = 1000

// cursorDateFormat is the day/month/year layout NetSuite query filters
// expect.
const cursorDateFormat = "02/01/2006"

// Link is a HATEOAS link attached to an index record.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// IndexRecord is the lightweight entry a list endpoint returns: just the
// id and links. It exists only to drive the detail expansion.
type IndexRecord struct {
	ID    string `json:"id"`
	Links []Link `json:"links,omitempty"`
}

// ListPage is one page of a list response.
type ListPage struct {
	Items        []IndexRecord `json:"items"`
	HasMore      bool          `json:"hasMore"`
	Offset       int64         `json:"offset"`
	Count        int64         `json:"count"`
	TotalResults int64         `json:"totalResults,omitempty"`
}

// NextPage computes the offset token for the page after this one.
// more is false when the response says enumeration is complete.
func NextPage(page *ListPage) (next int64, more bool) {
	if page == nil || !page.HasMore {
		return 0, false
	}
	return page.Offset + page.Count, true
}

// ListURL builds the list request URL for one page of a stream. The limit
// is always set; the incremental filter appears only when the stream has a
// replication key and a cursor; the offset appears only past the first page.
func (s StreamSpec) ListURL(baseURL string, cursor time.Time, offset int64, hasOffset bool) string {
	ub := stringpool.NewURLBuilder(stringpool.Concat(baseURL, s.Path))
	defer ub.Close()

	ub.AddParamInt("limit", PageLimit)

	if s.ReplicationKey != "" && !cursor.IsZero() {
		filter := stringpool.Sprintf("%s AFTER \"%s\"",
			s.ReplicationKey, cursor.Format(cursorDateFormat))
		ub.AddParam("q", filter)
	}

	if hasOffset {
		ub.AddParamInt("offset", int(offset))
	}

	return ub.String()
}

// DetailURL builds the per-id detail request URL.
func (s StreamSpec) DetailURL(baseURL, id string) string {
	ub := stringpool.NewURLBuilder(stringpool.Concat(baseURL, s.Path))
	defer ub.Close()
	ub.AddPath(id)
	return ub.String()
}
