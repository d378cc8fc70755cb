package feed

import (
	"time"

	"github.com/samber/mo"
)

type Shape int

const (
	ShapeRSS Shape = iota + 1
	ShapeGeneric
)

func (s Shape) String() string {
	switch s {
	case ShapeRSS:
		return "rss"
	case ShapeGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// RawSalary is an explicit salary field as found in the feed.
type RawSalary struct {
	Text     string
	Min      mo.Option[int64]
	Max      mo.Option[int64]
	Currency mo.Option[string]
	Period   mo.Option[string]
}

// RSSItem is a channel item of an RSS-style feed.
type RSSItem struct {
	GUID        mo.Option[string]
	Link        mo.Option[string]
	Title       mo.Option[string]
	Description mo.Option[string]
	Content     mo.Option[string]
	Company     mo.Option[string]
	Location    mo.Option[string]
	Type        mo.Option[string]
	Categories  []string
	PubDate     mo.Option[time.Time]
	Expiry      mo.Option[time.Time]
	Salary      mo.Option[RawSalary]
	Raw         map[string]any
}

// GenericItem is a <job> element of an ad-hoc jobs feed.
type GenericItem struct {
	ID          mo.Option[string]
	Title       mo.Option[string]
	Description mo.Option[string]
	Company     mo.Option[string]
	Location    mo.Option[string]
	Type        mo.Option[string]
	URL         mo.Option[string]
	ApplyURL    mo.Option[string]
	Categories  []string
	Date        mo.Option[time.Time]
	Expiry      mo.Option[time.Time]
	Salary      mo.Option[RawSalary]
	Raw         map[string]any
}

// Entry is one parsed feed entry. Exactly one of RSS or Generic is set,
// according to Shape.
type Entry struct {
	Shape   Shape
	RSS     *RSSItem
	Generic *GenericItem
}
