package leave

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

type LeaveType string

const (
	LeaveAnnual      LeaveType = "ANNUAL_LEAVE"
	LeaveSick        LeaveType = "SICK_LEAVE"
	LeavePersonal    LeaveType = "PERSONAL_LEAVE"
	LeaveMaternity   LeaveType = "MATERNITY_LEAVE"
	LeavePaternity   LeaveType = "PATERNITY_LEAVE"
	LeaveBereavement LeaveType = "BEREAVEMENT_LEAVE"
	LeaveUnpaid      LeaveType = "UNPAID_LEAVE"
	LeaveOther       LeaveType = "OTHER"
)

var LeaveTypes = []LeaveType{
	LeaveAnnual,
	LeaveSick,
	LeavePersonal,
	LeaveMaternity,
	LeavePaternity,
	LeaveBereavement,
	LeaveUnpaid,
	LeaveOther,
}

func (t LeaveType) Valid() bool {
	for _, known := range LeaveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseLeaveType accepts the canonical name in any case, with or without the _LEAVE suffix.
func ParseLeaveType(raw string) (LeaveType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for _, candidate := range []LeaveType{LeaveType(normalized), LeaveType(normalized + "_LEAVE")} {
		if candidate.Valid() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: unknown leave type %q", ErrValidation, raw)
}

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// ParseDecision accepts APPROVE/APPROVED and REJECT/REJECTED in any case.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "APPROVE", "APPROVED":
		return DecisionApproved, nil
	case "REJECT", "REJECTED":
		return DecisionRejected, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrValidation, raw)
}

// Request is a leave request. CurrentApproverID is set exactly while Status is PENDING.
type Request struct {
	ID                string    `json:"id"`
	ApplicantID       string    `json:"applicantId"`
	LeaveType         LeaveType `json:"leaveType"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	Reason            string    `json:"reason"`
	Status            Status    `json:"status"`
	CurrentApproverID string    `json:"currentApproverId,omitempty"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DurationDays counts calendar days, both ends inclusive.
func (r Request) DurationDays() int {
	days, err := CalculateDays(r.StartDate, r.EndDate)
	if err != nil {
		return 0
	}
	return days
}

type HistoryEntry struct {
	ID             string    `json:"id"`
	LeaveRequestID string    `json:"leaveRequestId"`
	ApproverID     string    `json:"approverId"`
	Decision       Decision  `json:"decision"`
	Comments       string    `json:"comments,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Detail is a request together with its ordered history.
type Detail struct {
	Request
	DurationDays int            `json:"durationDays"`
	History      []HistoryEntry `json:"history"`
}

func newDetail(req Request, history []HistoryEntry) Detail {
	if history == nil {
		history = []HistoryEntry{}
	}
	return Detail{Request: req, DurationDays: req.DurationDays(), History: history}
}

type SubmitInput struct {
	ApplicantID string
	LeaveType   LeaveType
	StartDate   time.Time
	EndDate     time.Time
	Reason      string
}

type ActionInput struct {
	RequestID string
	ActorID   string
	Decision  Decision
	Comments  string
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) bounds(n int) (int, int) {
	start := min(max(p.Offset, 0), n)
	end := n
	if p.Limit > 0 {
		end = min(start+p.Limit, n)
	}
	return start, end
}
