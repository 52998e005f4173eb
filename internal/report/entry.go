package report

import (
	"errors"
	"sort"

	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/loader"
)

// Status is the outcome of checking one type.
type Status string

const (
	StatusAdmitted  Status = "admitted"
	StatusRejected  Status = "rejected"
	StatusMalformed Status = "malformed"
	StatusNotFound  Status = "not-found"
	StatusError     Status = "error"
)

// Entry is one checked type.
type Entry struct {
	Name   string `json:"name" yaml:"name"`
	Status Status `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Member string `json:"member,omitempty" yaml:"member,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Summary counts entries per status.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Admitted  int `json:"admitted" yaml:"admitted"`
	Rejected  int `json:"rejected" yaml:"rejected"`
	Malformed int `json:"malformed" yaml:"malformed"`
	NotFound  int `json:"notFound" yaml:"notFound"`
	Errors    int `json:"errors" yaml:"errors"`
}

// Failed reports whether any entry was not admitted.
func (s Summary) Failed() bool {
	return s.Admitted != s.Total
}

// Report is a sorted set of entries with their summary.
type Report struct {
	Entries []Entry `json:"entries" yaml:"entries"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// NewReport sorts entries by name and computes the summary.
func NewReport(entries []Entry) *Report {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	s := Summary{Total: len(sorted)}
	for _, e := range sorted {
		switch e.Status {
		case StatusAdmitted:
			s.Admitted++
		case StatusRejected:
			s.Rejected++
		case StatusMalformed:
			s.Malformed++
		case StatusNotFound:
			s.NotFound++
		default:
			s.Errors++
		}
	}
	return &Report{Entries: sorted, Summary: s}
}

// EntryFor converts a resolve result into an Entry.
func EntryFor(name string, err error) Entry {
	e := Entry{Name: name, Status: StatusAdmitted}
	if err == nil {
		return e
	}

	var violation *loader.ClassFormatViolation
	var malformed *classfile.MalformedDescriptorError
	var notFound *loader.TypeNotFoundError
	switch {
	case errors.As(err, &violation):
		e.Status = StatusRejected
		e.Reason = string(violation.Reason)
		e.Member = violation.Member
	case errors.As(err, &malformed):
		e.Status = StatusMalformed
		e.Detail = malformed.Detail
	case errors.As(err, &notFound):
		e.Status = StatusNotFound
	default:
		e.Status = StatusError
		e.Detail = err.Error()
	}
	return e
}
