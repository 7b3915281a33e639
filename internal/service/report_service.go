package service

import (
	"context"
	"strings"

	"github.com/personahub/chat-backend/internal/dispatch"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/repository"
	"github.com/personahub/chat-backend/internal/result"
)

// CreateReport files a content report.
type CreateReport struct {
	TargetType string `json:"target_type" validate:"required"`
	TargetID   string `json:"target_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=200"`
	Details    string `json:"details" validate:"max=2000"`
}

func (CreateReport) RequestName() string { return "create_report" }

func (r CreateReport) Validate() []result.FieldError {
	if r.TargetType == "" {
		return nil
	}
	return fieldProblems(domain.ReportTargets.Parse(r.TargetType))
}

// ResolveReport records a moderation decision.
type ResolveReport struct {
	ReportID   string `json:"report_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
	Resolution string `json:"resolution" validate:"max=2000"`
}

func (ResolveReport) RequestName() string { return "resolve_report" }

func (r ResolveReport) Validate() []result.FieldError {
	if r.Status == "" {
		return nil
	}
	return fieldProblems(domain.ReportStatuses.Parse(r.Status))
}

// ListReports is the moderation queue.
type ListReports struct {
	Statuses []string `json:"status"`
	Limit    int      `json:"limit" validate:"gte=0,lte=100"`
	Offset   int      `json:"offset" validate:"gte=0"`
}

func (ListReports) RequestName() string { return "list_reports" }

func (r ListReports) Validate() []result.FieldError {
	return fieldProblems(domain.ReportStatuses.ParseAll(r.Statuses))
}

// ReportService handles the moderation queue.
type ReportService struct {
	base
}

// NewReportService constructs the service.
func NewReportService(deps Dependencies) *ReportService {
	return &ReportService{base: newBase(deps)}
}

func (s *ReportService) register(reg *dispatch.Registry) {
	dispatch.Register(reg, dispatch.HandlerFunc[CreateReport, domain.Report](s.CreateReport), dispatch.Authenticated())
	dispatch.Register(reg, dispatch.HandlerFunc[ResolveReport, domain.Report](s.ResolveReport), dispatch.AdminOnly())
	dispatch.Register(reg, dispatch.HandlerFunc[ListReports, Page[domain.Report]](s.ListReports), dispatch.AdminOnly())
}

// CreateReport stores a pending report against an existing target.
func (s *ReportService) CreateReport(ctx context.Context, req CreateReport) (result.Result[domain.Report], error) {
	actor := s.actor(ctx)
	now := s.now()
	report := &domain.Report{
		ID:         s.newID(),
		ReporterID: actor.ID,
		TargetType: domain.ReportTargets.Parse(req.TargetType).Value(),
		TargetID:   req.TargetID,
		Reason:     strings.TrimSpace(req.Reason),
		Details:    strings.TrimSpace(req.Details),
		Status:     domain.ReportStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := targetExists(ctx, tx, report.TargetType, report.TargetID); err != nil {
			return err
		}
		return tx.Reports.Create(ctx, report)
	})
	if err != nil {
		return failed[domain.Report](err, "report")
	}
	return result.Success(*report), nil
}

func targetExists(ctx context.Context, tx repository.Repositories, target domain.ReportTarget, id string) error {
	var err error
	switch target {
	case domain.ReportTargetUser:
		_, err = tx.Users.GetByID(ctx, id)
	case domain.ReportTargetPersona:
		_, err = tx.Personas.GetByID(ctx, id)
	case domain.ReportTargetSession:
		_, err = tx.Sessions.GetByID(ctx, id)
	}
	if err != nil {
		return notFoundOr(err, "report target")
	}
	return nil
}

// ResolveReport moves the report along its lifecycle. Terminal statuses
// stamp the acting admin, resolution and time.
func (s *ReportService) ResolveReport(ctx context.Context, req ResolveReport) (result.Result[domain.Report], error) {
	actor := s.actor(ctx)
	next := domain.ReportStatuses.Parse(req.Status).Value()

	var out domain.Report
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		report, err := tx.Reports.GetByID(ctx, req.ReportID)
		if err != nil {
			return err
		}
		if err := report.Resolve(next, actor.ID, optionalString(strings.TrimSpace(req.Resolution)), s.now()); err != nil {
			return err
		}
		if err := tx.Reports.Update(ctx, report); err != nil {
			return err
		}
		out = *report
		return nil
	})
	if err != nil {
		return failed[domain.Report](err, "report")
	}

	if out.Status.IsTerminal() {
		s.publish(ctx, actor.ID, events.Event{
			Type:      events.EventReportResolved,
			SubjectID: out.ID,
			Payload: events.ReportResolvedPayload{
				ReporterID: out.ReporterID,
				Status:     out.Status,
				Resolution: out.Resolution,
			},
		})
	}
	return result.Success(out), nil
}

// ListReports returns reports oldest first.
func (s *ReportService) ListReports(ctx context.Context, req ListReports) (result.Result[Page[domain.Report]], error) {
	filter := repository.ReportFilter{
		Statuses: domain.ReportStatuses.ParseAll(req.Statuses).Value(),
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	items, total, err := s.store.Repos().Reports.List(ctx, filter)
	if err != nil {
		return failed[Page[domain.Report]](err, "report")
	}
	return result.Success(newPage(items, total, req.Limit, req.Offset)), nil
}
