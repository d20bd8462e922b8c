package models

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Field markers written into a student row when a lookup step fails.
const (
	MarkerInvalidURL          = "Invalid URL, please try again."
	MarkerErrorOccurredPrefix = "An error occurred: "
	MarkerProcessingError     = "Error in processing URL"
	MarkerInvalidOrMissingURL = "Invalid or Missing URL"
	MarkerNoURL               = "No URL Present"
	MarkerHTMLExtraction      = "Error in HTML extraction"
	MarkerPDFExtraction       = "Error in PDF extraction"
	MarkerNotFound            = "Not able to find"
	MarkerRecheck             = "Recheck"
)

// FullGradeCutLabel renders the terminal penalty.
const FullGradeCutLabel = "Full Grade Cut"

// LastPushLayout formats commit instants in reports.
const LastPushLayout = "2006-01-02 15:04:05"

// Base report columns, in order.
const (
	ColumnName           = "Name"
	ColumnGitHubURL      = "GitHub URL"
	ColumnLastPushTime   = "Last Push Time"
	ColumnPointsDeducted = "Points Deducted"
)

// BaseColumns lists the fixed leading report columns.
func BaseColumns() []string {
	return []string{ColumnName, ColumnGitHubURL, ColumnLastPushTime, ColumnPointsDeducted}
}

// Penalty is either a point deduction in [0,24] or the full grade cut.
type Penalty struct {
	Points       int  `json:"points"`
	FullGradeCut bool `json:"fullGradeCut"`
}

func (p Penalty) String() string {
	if p.FullGradeCut {
		return FullGradeCutLabel
	}
	return strconv.Itoa(p.Points)
}

// StudentRecord is one report row. Fields hold rendered values or failure markers.
type StudentRecord struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	LastPush       string            `json:"lastPush"`
	PointsDeducted string            `json:"pointsDeducted"`
	Grades         map[string]string `json:"grades,omitempty"`
}

// Question groups the sub-question labels of one question.
type Question struct {
	Number int      `json:"number"`
	Labels []string `json:"labels"`
}

// QuestionSet is the ordered list of questions for an assignment.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// Labels flattens sub-question labels in question then sub-question order.
func (q QuestionSet) Labels() []string {
	var labels []string
	for _, question := range q.Questions {
		labels = append(labels, question.Labels...)
	}
	return labels
}

// AssignmentEntry pairs a sub-question label with its grader.
type AssignmentEntry struct {
	Label  string `json:"label"`
	Grader string `json:"grader"`
	Header string `json:"header"`
}

// Assignment is the ordered label to grader mapping.
type Assignment struct {
	Entries []AssignmentEntry `json:"entries"`
}

// ColumnHeader formats the report column for a sub-question.
func ColumnHeader(label, grader string) string {
	return fmt.Sprintf("Q%s - (%s)", label, grader)
}

// Headers returns the per-sub-question column headers in order.
func (a Assignment) Headers() []string {
	headers := make([]string, len(a.Entries))
	for i, e := range a.Entries {
		headers[i] = e.Header
	}
	return headers
}

// Lookup finds the entry for label.
func (a Assignment) Lookup(label string) (AssignmentEntry, bool) {
	for _, e := range a.Entries {
		if e.Label == label {
			return e, true
		}
	}
	return AssignmentEntry{}, false
}

// RosterEntry is one declared student.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Roster is the ordered set of declared students keyed by normalized identifier.
type Roster struct {
	Entries []RosterEntry
	index   map[string]int
}

// NewRoster indexes entries. Entries must already carry unique identifiers.
func NewRoster(entries []RosterEntry) Roster {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
	}
	return Roster{Entries: entries, index: index}
}

// Find returns the entry with the given identifier.
func (r Roster) Find(id string) (RosterEntry, bool) {
	i, ok := r.index[id]
	if !ok {
		return RosterEntry{}, false
	}
	return r.Entries[i], true
}

// Len reports the number of declared students.
func (r Roster) Len() int { return len(r.Entries) }

// NormalizeID strips every non-letter and lowercases the rest.
func NormalizeID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Report is the assembled grading table.
type Report struct {
	Columns    []string        `json:"columns"`
	Rows       []StudentRecord `json:"rows"`
	Unmatched  []string        `json:"unmatched,omitempty"`
	Assignment Assignment      `json:"assignment"`
}

// Values maps a row onto the report columns.
func (r Report) Values(row StudentRecord) map[string]string {
	values := map[string]string{
		ColumnName:           row.Name,
		ColumnGitHubURL:      row.URL,
		ColumnLastPushTime:   row.LastPush,
		ColumnPointsDeducted: row.PointsDeducted,
	}
	for _, e := range r.Assignment.Entries {
		values[e.Header] = row.Grades[e.Label]
	}
	return values
}
