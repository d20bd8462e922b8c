package service

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

// Accepted due date and time layouts.
const (
	DueDateLayout = "2006-01-02"
	DueTimeLayout = "15:04"
)

// ParseDueDateTime combines a YYYY-MM-DD date and an HH:MM time in loc.
func ParseDueDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	due, err := time.ParseInLocation(DueDateLayout+" "+DueTimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrParse.Code, appErrors.ErrParse.Status,
			fmt.Sprintf("invalid due date %q or time %q", date, clock))
	}
	return due, nil
}
