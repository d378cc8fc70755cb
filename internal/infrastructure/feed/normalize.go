package feed

import (
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

// Normalize turns one parsed entry into a draft. It never fails; missing
// fields get permissive defaults and validation is left to the store side.
func Normalize(entry Entry, source job.Source, now time.Time) job.Draft {
	switch entry.Shape {
	case ShapeRSS:
		if entry.RSS != nil {
			return NormalizeRSS(*entry.RSS, source, now)
		}
	case ShapeGeneric:
		if entry.Generic != nil {
			return NormalizeGeneric(*entry.Generic, source, now)
		}
	}
	return job.Draft{Source: source, JobType: job.TypeFullTime, Location: defaultLocation, Company: defaultCompany, Categories: []string{}}
}

func NormalizeRSS(item RSSItem, source job.Source, now time.Time) job.Draft {
	title := cleanOption(item.Title).OrEmpty()
	description := cleanOption(item.Description).OrElse(cleanOption(item.Content).OrEmpty())
	link := item.Link.OrEmpty()
	guid := item.GUID.OrEmpty()
	published := item.PubDate.OrElse(now)

	sourceID := guid
	if sourceID == "" {
		sourceID = link
	}
	if sourceID == "" {
		sourceID = generateSourceID(title, published)
	}

	url := link
	if url == "" {
		url = guid
	}

	d := job.Draft{
		SourceID:      sourceID,
		Title:         title,
		Description:   description,
		Company:       resolveCompany(cleanOption(item.Company).OrEmpty(), title),
		Location:      resolveLocation(cleanOption(item.Location).OrEmpty(), title, description),
		Categories:    item.Categories,
		JobType:       scanJobType(title, description, item.Type.OrEmpty()),
		SourceURL:     url,
		ApplyURL:      url,
		Source:        source,
		PublishedDate: published,
		ExpiryDate:    item.Expiry.OrElse(published.Add(defaultExpiry)),
		RawData:       item.Raw,
	}
	d.Salary = resolveSalary(item.Salary.ToPointer(), title, description)
	return d
}

func NormalizeGeneric(item GenericItem, source job.Source, now time.Time) job.Draft {
	title := cleanOption(item.Title).OrEmpty()
	description := cleanOption(item.Description).OrEmpty()
	url := item.URL.OrEmpty()
	published := item.Date.OrElse(now)

	sourceID := item.ID.OrEmpty()
	if sourceID == "" {
		sourceID = url
	}
	if sourceID == "" {
		sourceID = generateSourceID(title, published)
	}

	rawType := item.Type.OrEmpty()
	jobType, ok := normalizeJobType(rawType)
	if !ok {
		jobType = scanJobType(title, description, rawType)
	}

	d := job.Draft{
		SourceID:      sourceID,
		Title:         title,
		Description:   description,
		Company:       resolveCompany(cleanOption(item.Company).OrEmpty(), title),
		Location:      resolveLocation(cleanOption(item.Location).OrEmpty(), title, description),
		Categories:    item.Categories,
		JobType:       jobType,
		SourceURL:     url,
		ApplyURL:      item.ApplyURL.OrElse(url),
		Source:        source,
		PublishedDate: published,
		ExpiryDate:    item.Expiry.OrElse(published.Add(defaultExpiry)),
		RawData:       item.Raw,
	}
	d.Salary = resolveSalary(item.Salary.ToPointer(), title, description)
	return d
}

func resolveCompany(explicit, title string) string {
	if explicit != "" {
		return explicit
	}
	if company, ok := extractCompany(title); ok {
		return company
	}
	return defaultCompany
}

func resolveLocation(explicit, title, description string) string {
	if explicit != "" {
		return explicit
	}
	if location, ok := extractLocation(title + " " + description); ok {
		return location
	}
	return defaultLocation
}

func resolveSalary(raw *RawSalary, title, description string) *job.Salary {
	if raw != nil {
		if salary, ok := salaryFromRaw(*raw); ok {
			return salary
		}
	}
	if salary, ok := extractSalary(title + " " + description); ok {
		return salary
	}
	return nil
}
