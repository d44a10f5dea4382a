package leave

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinReasonLength = 5
	MaxReasonLength = 500
	MaxCommentsLen  = 500
)

// CalculateDays returns the inclusive calendar-day count between start and end.
func CalculateDays(start, end time.Time) (int, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return int(dayNumber(end)-dayNumber(start)) + 1, nil
}

// dayNumber counts whole days from the Unix epoch for a UTC midnight. Unlike
// time.Duration it does not saturate for distant dates.
func dayNumber(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateSubmission(in SubmitInput) error {
	if strings.TrimSpace(in.ApplicantID) == "" {
		return invalidField("applicantId", "is required")
	}
	if !in.LeaveType.Valid() {
		return invalidField("leaveType", "is not a known leave type")
	}
	if in.StartDate.IsZero() {
		return invalidField("startDate", "is required")
	}
	if in.EndDate.IsZero() {
		return invalidField("endDate", "is required")
	}
	days, err := CalculateDays(in.StartDate, in.EndDate)
	if err != nil {
		return invalidField("endDate", "must be on or after startDate")
	}
	if days <= 0 {
		return invalidField("endDate", "must give a positive duration")
	}
	reasonLen := utf8.RuneCountInString(strings.TrimSpace(in.Reason))
	if reasonLen < MinReasonLength || reasonLen > MaxReasonLength {
		return invalidField("reason", "must be between 5 and 500 characters")
	}
	return nil
}

func validateComments(comments string) error {
	if utf8.RuneCountInString(comments) > MaxCommentsLen {
		return invalidField("comments", "must be at most 500 characters")
	}
	return nil
}

const (
	overrideMark  = "[admin override]"
	forwardedMark = "[forwarded]"
)

func annotate(mark, comments string) string {
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return mark
	}
	return mark + " " + comments
}
