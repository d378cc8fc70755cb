package job

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Type string

const (
	TypeFullTime   Type = "full-time"
	TypePartTime   Type = "part-time"
	TypeContract   Type = "contract"
	TypeFreelance  Type = "freelance"
	TypeInternship Type = "internship"
	TypeTemporary  Type = "temporary"
)

// Types lists the enumeration in keyword-scan priority order.
var Types = []Type{
	TypeFullTime,
	TypePartTime,
	TypeContract,
	TypeFreelance,
	TypeInternship,
	TypeTemporary,
}

func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusFilled  Status = "filled"
	StatusDeleted Status = "deleted"
)

type Salary struct {
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	Currency string `json:"currency"`
	Period   string `json:"period"`
}

type Source struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url"`
}

// Draft is a normalized posting that has not been merged into the store yet.
type Draft struct {
	SourceID      string         `json:"sourceId" validate:"required"`
	Title         string         `json:"title" validate:"required"`
	Company       string         `json:"company"`
	Description   string         `json:"description"`
	Location      string         `json:"location"`
	Categories    []string       `json:"categories"`
	JobType       Type           `json:"jobType"`
	Salary        *Salary        `json:"salary,omitempty"`
	SourceURL     string         `json:"sourceUrl"`
	ApplyURL      string         `json:"applyUrl"`
	Source        Source         `json:"source"`
	PublishedDate time.Time      `json:"publishedDate"`
	ExpiryDate    time.Time      `json:"expiryDate"`
	RawData       map[string]any `json:"rawData,omitempty"`
}

// Record is a stored posting, unique by (SourceID, Source.Name).
type Record struct {
	ID string `json:"id"`
	Draft
	Status       Status    `json:"status"`
	LastImportID string    `json:"lastImportId"`
	ImportCount  int       `json:"importCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UpsertResult struct {
	Record Record
	IsNew  bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the fields the store cannot do without.
func (d Draft) Validate() error {
	d.SourceID = strings.TrimSpace(d.SourceID)
	d.Title = strings.TrimSpace(d.Title)
	d.Source.Name = strings.TrimSpace(d.Source.Name)

	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	verr := &ValidationError{SourceID: d.SourceID, Title: d.Title}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.Fields = append(verr.Fields, strings.TrimPrefix(fe.Namespace(), "Draft."))
		}
	}
	return verr
}
