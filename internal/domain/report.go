package domain

import "time"

// ReportStatus enumerates moderation report states.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusReviewing ReportStatus = "REVIEWING"
	ReportStatusResolved  ReportStatus = "RESOLVED"
	ReportStatusDismissed ReportStatus = "DISMISSED"
)

// ReportTarget is the kind of content a report points at.
type ReportTarget string

const (
	ReportTargetUser    ReportTarget = "USER"
	ReportTargetPersona ReportTarget = "PERSONA"
	ReportTargetSession ReportTarget = "SESSION"
	ReportTargetMessage ReportTarget = "MESSAGE"
)

var (
	ReportStatuses = NewFiniteSet("status", ReportStatusPending, ReportStatusReviewing, ReportStatusResolved, ReportStatusDismissed)
	ReportTargets  = NewFiniteSet("target_type", ReportTargetUser, ReportTargetPersona, ReportTargetSession, ReportTargetMessage)
)

// Report is a user-filed content report.
type Report struct {
	ID           string
	ReporterID   string
	TargetType   ReportTarget
	TargetID     string
	Reason       string
	Details      string
	Status       ReportStatus
	ResolvedByID *string
	Resolution   *string
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
}

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusPending:   {ReportStatusReviewing, ReportStatusResolved, ReportStatusDismissed},
	ReportStatusReviewing: {ReportStatusResolved, ReportStatusDismissed},
	ReportStatusResolved:  {},
	ReportStatusDismissed: {},
}

// IsTerminal reports whether no further moves exist.
func (s ReportStatus) IsTerminal() bool {
	return len(reportTransitions[s]) == 0
}

// Resolve records an admin decision. Terminal targets stamp the resolver,
// the free-text resolution and the time.
func (r *Report) Resolve(next ReportStatus, adminID string, resolution *string, now time.Time) error {
	allowed := false
	for _, candidate := range reportTransitions[r.Status] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return &TransitionError{Entity: "report", From: string(r.Status), Action: "move to " + string(next)}
	}
	r.Status = next
	r.UpdatedAt = now
	if next.IsTerminal() {
		r.ResolvedByID = &adminID
		r.Resolution = resolution
		r.ResolvedAt = &now
	}
	return nil
}
