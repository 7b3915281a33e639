package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/personahub/chat-backend/internal/domain"
)

type reportRepository struct {
	db DBTX
}

// NewReportRepository returns a Postgres-backed implementation.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, reporter_id, target_type, target_id, reason, details, status, resolved_by_id,
               resolution, resolved_at, created_at, updated_at, version`

func (r *reportRepository) Create(ctx context.Context, rep *domain.Report) error {
	const query = `
        INSERT INTO reports (id, reporter_id, target_type, target_id, reason, details, status, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,1)`
	if _, err := r.db.Exec(ctx, query,
		rep.ID, rep.ReporterID, rep.TargetType, rep.TargetID, rep.Reason, rep.Details, rep.Status, rep.CreatedAt, rep.UpdatedAt,
	); err != nil {
		return err
	}
	rep.Version = 1
	return nil
}

func (r *reportRepository) Update(ctx context.Context, rep *domain.Report) error {
	const query = `
        UPDATE reports SET status=$1, resolved_by_id=$2, resolution=$3, resolved_at=$4, updated_at=$5, version=version+1
        WHERE id=$6 AND version=$7`
	cmd, err := r.db.Exec(ctx, query,
		rep.Status, rep.ResolvedByID, rep.Resolution, rep.ResolvedAt, rep.UpdatedAt, rep.ID, rep.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStale
	}
	rep.Version++
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	var rep domain.Report
	if err := r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id).Scan(reportDest(&rep)...); err != nil {
		return nil, mapNoRows(err)
	}
	return &rep, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.Report, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() FROM reports WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		reportColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []domain.Report
		total int
	)
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(append(reportDest(&rep), &total)...); err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}

func reportDest(rep *domain.Report) []any {
	return []any{
		&rep.ID, &rep.ReporterID, &rep.TargetType, &rep.TargetID, &rep.Reason, &rep.Details, &rep.Status,
		&rep.ResolvedByID, &rep.Resolution, &rep.ResolvedAt, &rep.CreatedAt, &rep.UpdatedAt, &rep.Version,
	}
}
