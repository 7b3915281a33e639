package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/result"
)

func TestCreateReportChecksTarget(t *testing.T) {
	f := newFixture(t)
	f.seedPersona("p-1", true)

	r := requireOK(t, send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{
		TargetType: "persona", TargetID: "p-1", Reason: "impersonation",
	}))
	assert.Equal(t, domain.ReportTargetPersona, r.TargetType)
	assert.Equal(t, domain.ReportStatusPending, r.Status)
	assert.Equal(t, otherID, r.ReporterID)

	res := send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{
		TargetType: "USER", TargetID: "u-ghost", Reason: "spam",
	})
	assert.Equal(t, result.StatusNotFound, res.Status())
	assert.Equal(t, "report target not found", res.Message())

	res = send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{
		TargetType: "POST", TargetID: "x", Reason: "spam",
	})
	require.Equal(t, result.StatusValidationFailed, res.Status())
	assert.Equal(t, "target_type", res.Problem().Fields[0].Field)
}

func TestResolveReportLifecycle(t *testing.T) {
	f := newFixture(t)
	r := requireOK(t, send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{
		TargetType: "USER", TargetID: ownerID, Reason: "harassment",
	}))

	res := send[ResolveReport, domain.Report](t, f.as(ownerID), f.d, ResolveReport{ReportID: r.ID, Status: "REVIEWING"})
	assert.Equal(t, result.StatusForbidden, res.Status())

	reviewing := requireOK(t, send[ResolveReport, domain.Report](t, f.as(adminID), f.d, ResolveReport{ReportID: r.ID, Status: "reviewing"}))
	assert.Equal(t, domain.ReportStatusReviewing, reviewing.Status)
	assert.Nil(t, reviewing.ResolvedByID)
	assert.Empty(t, f.emitted(events.EventReportResolved))

	resolved := requireOK(t, send[ResolveReport, domain.Report](t, f.as(adminID), f.d, ResolveReport{
		ReportID: r.ID, Status: "RESOLVED", Resolution: "warned user",
	}))
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, adminID, *resolved.ResolvedByID)
	assert.Equal(t, "warned user", *resolved.Resolution)
	assert.Equal(t, t0, *resolved.ResolvedAt)
	assert.Len(t, f.emitted(events.EventReportResolved), 1)

	res = send[ResolveReport, domain.Report](t, f.as(adminID), f.d, ResolveReport{ReportID: r.ID, Status: "DISMISSED"})
	assert.Equal(t, result.StatusConflict, res.Status())
}

func TestListReportsFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	requireOK(t, send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{TargetType: "USER", TargetID: ownerID, Reason: "a"}))
	second := requireOK(t, send[CreateReport, domain.Report](t, f.as(otherID), f.d, CreateReport{TargetType: "USER", TargetID: adminID, Reason: "b"}))
	requireOK(t, send[ResolveReport, domain.Report](t, f.as(adminID), f.d, ResolveReport{ReportID: second.ID, Status: "DISMISSED"}))

	page := requireOK(t, send[ListReports, Page[domain.Report]](t, f.as(adminID), f.d, ListReports{Statuses: []string{"pending"}}))
	assert.Equal(t, 1, page.Total)

	res := send[ListReports, Page[domain.Report]](t, f.as(otherID), f.d, ListReports{})
	assert.Equal(t, result.StatusForbidden, res.Status())
}
