package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository interface {
	CreateSlots(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error)
	DeleteSlots(ctx context.Context, refs []domain.SlotRef) ([]domain.SlotRef, error)
	GetSlot(ctx context.Context, ref domain.SlotRef) (*domain.Slot, error)
	QuerySlotsByTimeRange(ctx context.Context, subjectKey, from, to string, status *domain.SlotStatus) ([]domain.Slot, error)
}

type PGSlotRepository struct {
	db *pgxpool.Pool
}

func NewSlotRepository(db *pgxpool.Pool) SlotRepository {
	return &PGSlotRepository{db: db}
}

// CreateSlots is an unconditional overwrite-insert: last writer wins,
// matching the administrative scheduling workflow.
func (r *PGSlotRepository) CreateSlots(ctx context.Context, slots []domain.Slot) ([]domain.Slot, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	written := make([]domain.Slot, 0, len(slots))
	for _, s := range slots {
		_, err := tx.Exec(ctx, `INSERT INTO records (pk, sk, entity_type, status, category, duration_minutes, provider_id, provider_first_name, provider_last_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (pk, sk) DO UPDATE SET
				status = EXCLUDED.status,
				category = EXCLUDED.category,
				duration_minutes = EXCLUDED.duration_minutes,
				provider_id = EXCLUDED.provider_id,
				provider_first_name = EXCLUDED.provider_first_name,
				provider_last_name = EXCLUDED.provider_last_name,
				booking_ref = NULL,
				customer_id = NULL, customer_first_name = NULL, customer_last_name = NULL,
				customer_email = NULL, customer_phone = NULL,
				updated_at = EXCLUDED.updated_at`,
			s.SubjectKey, s.TimeKey, entityTypeSlot, s.Status, s.Category, s.DurationMinutes,
			s.Provider.ID, s.Provider.FirstName, s.Provider.LastName, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		written = append(written, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return written, nil
}

// DeleteSlots is an unconditional batch delete. The scheduling workflow one
// layer up is responsible for not deleting booked slots.
func (r *PGSlotRepository) DeleteSlots(ctx context.Context, refs []domain.SlotRef) ([]domain.SlotRef, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deleted := make([]domain.SlotRef, 0, len(refs))
	for _, ref := range refs {
		cmd, err := tx.Exec(ctx, `DELETE FROM records WHERE pk=$1 AND sk=$2 AND entity_type=$3`,
			ref.SubjectKey, ref.TimeKey, entityTypeSlot)
		if err != nil {
			return nil, err
		}
		if cmd.RowsAffected() > 0 {
			deleted = append(deleted, ref)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *PGSlotRepository) GetSlot(ctx context.Context, ref domain.SlotRef) (*domain.Slot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE pk=$1 AND sk=$2 AND entity_type=$3`,
		ref.SubjectKey, ref.TimeKey, entityTypeSlot)

	var rec recordRow
	if err := row.Scan(rec.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	decoded, err := rec.decode()
	if err != nil {
		return nil, err
	}
	return decoded.Slot, nil
}

// QuerySlotsByTimeRange scans [from, to) ordered by time key ascending, with
// an optional equality filter on status.
func (r *PGSlotRepository) QuerySlotsByTimeRange(ctx context.Context, subjectKey, from, to string, status *domain.SlotStatus) ([]domain.Slot, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE pk=$1 AND entity_type=$2 AND sk >= $3 AND sk < $4`
	args := []any{subjectKey, entityTypeSlot, from, to}
	if status != nil {
		query += ` AND status=$5`
		args = append(args, *status)
	}
	query += ` ORDER BY sk ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.Slot, 0)
	for rows.Next() {
		var rec recordRow
		if err := rows.Scan(rec.scanTargets()...); err != nil {
			return nil, err
		}
		decoded, err := rec.decode()
		if err != nil {
			return nil, err
		}
		slots = append(slots, *decoded.Slot)
	}
	return slots, rows.Err()
}

var _ SlotRepository = (*PGSlotRepository)(nil)
