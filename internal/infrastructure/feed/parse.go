package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clbanning/mxj"
	"github.com/samber/mo"
)

func init() {
	mxj.CoerceKeysToLower(true)
}

const textKey = "#text"

// Parse decodes an XML feed body and sniffs its structure. Documents that
// match no known structure produce no entries.
func Parse(body []byte) ([]Entry, error) {
	doc, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, err
	}

	rootName, root := stripRoot(doc)
	raws, shape := sniff(rootName, root)

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch shape {
		case ShapeRSS:
			entries = append(entries, Entry{Shape: ShapeRSS, RSS: parseRSSItem(fields)})
		case ShapeGeneric:
			entries = append(entries, Entry{Shape: ShapeGeneric, Generic: parseGenericItem(fields)})
		}
	}
	return entries, nil
}

func stripRoot(doc mxj.Map) (string, map[string]any) {
	for name, value := range doc {
		if m, ok := value.(map[string]any); ok {
			return name, m
		}
		return name, nil
	}
	return "", nil
}

func sniff(rootName string, root map[string]any) ([]any, Shape) {
	if root == nil {
		return nil, 0
	}
	if channel, ok := root["channel"].(map[string]any); ok {
		if items, ok := channel["item"]; ok {
			return asList(items), ShapeRSS
		}
	}
	if jobs, ok := root["jobs"].(map[string]any); ok {
		if items, ok := jobs["job"]; ok {
			return asList(items), ShapeGeneric
		}
	}
	if items, ok := root["item"]; ok {
		return asList(items), ShapeRSS
	}
	if rootName == "jobs" {
		if items, ok := root["job"]; ok {
			return asList(items), ShapeGeneric
		}
	}
	return nil, 0
}

func parseRSSItem(f map[string]any) *RSSItem {
	return &RSSItem{
		GUID:        guidField(f["guid"]),
		Link:        textField(f, "link"),
		Title:       textField(f, "title"),
		Description: textField(f, "description"),
		Content:     textField(f, "content:encoded", "encoded"),
		Company:     textField(f, "company", "employer", "dc:creator", "creator"),
		Location:    textField(f, "job:location", "location"),
		Type:        textField(f, "type", "job_type", "jobtype"),
		Categories:  listField(f["category"]),
		PubDate:     dateField(f, "pubdate", "dc:date", "published"),
		Expiry:      dateField(f, "expirydate", "expiry", "job:expiry"),
		Salary:      salaryField(f["salary"]),
		Raw:         f,
	}
}

func parseGenericItem(f map[string]any) *GenericItem {
	return &GenericItem{
		ID:          textField(f, "id", "jobid"),
		Title:       textField(f, "title", "jobtitle"),
		Description: textField(f, "description", "jobdescription"),
		Company:     textField(f, "company", "employer"),
		Location:    textField(f, "location", "joblocation"),
		Type:        textField(f, "type", "jobtype"),
		URL:         textField(f, "url", "link"),
		ApplyURL:    textField(f, "applyurl"),
		Categories:  listField(f["category"]),
		Date:        dateField(f, "date", "postdate"),
		Expiry:      dateField(f, "expiry", "expirydate"),
		Salary:      salaryField(f["salary"]),
		Raw:         f,
	}
}

// text unwraps a decoded XML value to its character data. Repeated
// elements yield their first text value.
func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case map[string]any:
		return text(t[textKey])
	case []any:
		for _, item := range t {
			if s, ok := text(item); ok {
				return s, true
			}
		}
		return "", false
	case nil:
		return "", false
	default:
		s := strings.TrimSpace(fmt.Sprint(t))
		return s, s != ""
	}
}

func textField(f map[string]any, keys ...string) mo.Option[string] {
	for _, key := range keys {
		if s, ok := text(f[key]); ok {
			return mo.Some(s)
		}
	}
	return mo.None[string]()
}

// guidField falls back to the JSON form of a guid element that carries
// attributes but no text.
func guidField(v any) mo.Option[string] {
	if s, ok := text(v); ok {
		return mo.Some(s)
	}
	if m, ok := v.(map[string]any); ok && len(m) > 0 {
		if b, err := json.Marshal(m); err == nil {
			return mo.Some(string(b))
		}
	}
	return mo.None[string]()
}

func listField(v any) []string {
	out := make([]string, 0)
	for _, item := range asList(v) {
		if s, ok := text(item); ok {
			if cleaned := cleanHTML(s); cleaned != "" {
				out = append(out, cleaned)
			}
		}
	}
	return out
}

func dateField(f map[string]any, keys ...string) mo.Option[time.Time] {
	for _, key := range keys {
		if s, ok := text(f[key]); ok {
			if t, ok := parseTime(s); ok {
				return mo.Some(t)
			}
		}
	}
	return mo.None[time.Time]()
}

func salaryField(v any) mo.Option[RawSalary] {
	switch t := v.(type) {
	case nil:
		return mo.None[RawSalary]()
	case map[string]any:
		raw := RawSalary{
			Min:      intField(t, "min", "minvalue"),
			Max:      intField(t, "max", "maxvalue"),
			Currency: textField(t, "currency"),
			Period:   textField(t, "period", "unittext"),
		}
		if s, ok := text(t); ok {
			raw.Text = s
		}
		if raw.Min.IsAbsent() && raw.Max.IsAbsent() && raw.Text == "" {
			return mo.None[RawSalary]()
		}
		return mo.Some(raw)
	default:
		if s, ok := text(t); ok {
			return mo.Some(RawSalary{Text: s})
		}
		return mo.None[RawSalary]()
	}
}

func intField(f map[string]any, keys ...string) mo.Option[int64] {
	for _, key := range keys {
		if s, ok := text(f[key]); ok {
			if n, ok := parseAmount(s); ok {
				return mo.Some(n)
			}
		}
	}
	return mo.None[int64]()
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{t}
	}
}

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
