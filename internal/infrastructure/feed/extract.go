package feed

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	"github.com/samber/mo"
)

const (
	defaultCompany  = "Unknown Company"
	defaultLocation = "Remote"
	defaultCurrency = "USD"
	defaultPeriod   = "year"
	defaultExpiry   = 30 * 24 * time.Hour
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	companyPattern  = regexp.MustCompile(`(?i)\sat\s(.+?)(?:\s-|\s\||$)`)
	locationPattern = regexp.MustCompile(`(?i)(?:location|based in|office in):\s*([^,\n]+)`)
	salaryPattern   = regexp.MustCompile(`(?i)\$([\d,]+)\s*-\s*\$?([\d,]+)(?:(?:\s+per\s+|\s*/\s*)([a-z]+))?`)
	amountPattern   = regexp.MustCompile(`(?i)\$?([\d,]+)(?:\s*-\s*\$?([\d,]+))?(?:(?:\s+per\s+|\s*/\s*)([a-z]+))?`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)

	jobTypeKeywords = []struct {
		jobType  job.Type
		keywords []string
	}{
		{job.TypeFullTime, []string{"full-time", "full time"}},
		{job.TypePartTime, []string{"part-time", "part time"}},
		{job.TypeContract, []string{"contract"}},
		{job.TypeFreelance, []string{"freelance"}},
		{job.TypeInternship, []string{"internship"}},
		{job.TypeTemporary, []string{"temporary"}},
	}

	jobTypeSpellings = map[string]job.Type{
		"fulltime":   job.TypeFullTime,
		"parttime":   job.TypePartTime,
		"contract":   job.TypeContract,
		"contractor": job.TypeContract,
		"freelance":  job.TypeFreelance,
		"freelancer": job.TypeFreelance,
		"internship": job.TypeInternship,
		"intern":     job.TypeInternship,
		"temporary":  job.TypeTemporary,
		"temp":       job.TypeTemporary,
	}
)

// cleanHTML strips tags, unescapes the common named entities and trims.
func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(s)
}

func cleanOption(o mo.Option[string]) mo.Option[string] {
	if s, ok := o.Get(); ok {
		if cleaned := cleanHTML(s); cleaned != "" {
			return mo.Some(cleaned)
		}
	}
	return mo.None[string]()
}

func extractCompany(title string) (string, bool) {
	m := companyPattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	company := strings.TrimSpace(m[1])
	return company, company != ""
}

func extractLocation(text string) (string, bool) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	location := strings.TrimSpace(m[1])
	return location, location != ""
}

// scanJobType returns the first enumeration value whose keywords occur in
// any of texts, in enumeration order.
func scanJobType(texts ...string) job.Type {
	haystack := strings.ToLower(strings.Join(texts, " "))
	for _, candidate := range jobTypeKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(haystack, keyword) {
				return candidate.jobType
			}
		}
	}
	return job.TypeFullTime
}

// normalizeJobType maps alternate spellings ("Full Time", "intern") onto the
// enumeration.
func normalizeJobType(raw string) (job.Type, bool) {
	letters := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, raw)
	jt, ok := jobTypeSpellings[letters]
	return jt, ok
}

func extractSalary(text string) (*job.Salary, bool) {
	m := salaryPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	minAmount, okMin := parseAmount(m[1])
	maxAmount, okMax := parseAmount(m[2])
	if !okMin || !okMax {
		return nil, false
	}
	period := defaultPeriod
	if m[3] != "" {
		period = strings.ToLower(m[3])
	}
	return &job.Salary{Min: minAmount, Max: maxAmount, Currency: defaultCurrency, Period: period}, true
}

// salaryFromRaw resolves an explicit salary field. A single amount gives
// min == max.
func salaryFromRaw(raw RawSalary) (*job.Salary, bool) {
	salary := &job.Salary{
		Currency: raw.Currency.OrElse(defaultCurrency),
		Period:   strings.ToLower(raw.Period.OrElse(defaultPeriod)),
	}

	minAmount, hasMin := raw.Min.Get()
	maxAmount, hasMax := raw.Max.Get()
	if !hasMin && !hasMax {
		m := amountPattern.FindStringSubmatch(raw.Text)
		if m == nil {
			return nil, false
		}
		var ok bool
		if minAmount, ok = parseAmount(m[1]); !ok {
			return nil, false
		}
		maxAmount = minAmount
		if m[2] != "" {
			if maxAmount, ok = parseAmount(m[2]); !ok {
				maxAmount = minAmount
			}
		}
		if m[3] != "" && raw.Period.IsAbsent() {
			salary.Period = strings.ToLower(m[3])
		}
		hasMin, hasMax = true, true
	}
	if !hasMin {
		minAmount = maxAmount
	}
	if !hasMax {
		maxAmount = minAmount
	}

	salary.Min = minAmount
	salary.Max = maxAmount
	return salary, true
}

func parseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", ""))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		n = int64(f)
	}
	return n, true
}

// SourceName derives the per-feed source tag from the locator host.
func SourceName(locator string) string {
	if isLocal(locator) {
		return "local"
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

func generateSourceID(title string, published time.Time) string {
	slug := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, title)
	return slug + "-" + strconv.FormatInt(published.UnixMilli(), 10)
}
