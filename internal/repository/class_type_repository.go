package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type ClassTypeRepository struct {
	db *base.Repository
}

func NewClassTypeRepository(db *base.Repository) *ClassTypeRepository {
	return &ClassTypeRepository{db: db}
}

const classTypeColumns = `id, name, description, duration_minutes, max_capacity, price, color, is_active, created_at`

func scanClassType(row pgx.Row, ct *model.ClassType) error {
	return row.Scan(
		&ct.ID,
		&ct.Name,
		&ct.Description,
		&ct.DurationMinutes,
		&ct.MaxCapacity,
		&ct.Price,
		&ct.Color,
		&ct.IsActive,
		&ct.CreatedAt,
	)
}

// GetByID получает тип занятия по ID
func (r *ClassTypeRepository) GetByID(ctx context.Context, id int64) (*model.ClassType, error) {
	var ct model.ClassType
	err := scanClassType(r.db.QueryRow(ctx, `SELECT `+classTypeColumns+` FROM class_types WHERE id = $1`, id), &ct)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class type by id: %w", err)
	}

	return &ct, nil
}

// ListActive получает все активные типы занятий
func (r *ClassTypeRepository) ListActive(ctx context.Context) ([]*model.ClassType, error) {
	rows, err := r.db.Query(ctx, `SELECT `+classTypeColumns+` FROM class_types WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("get active class types: %w", err)
	}
	defer rows.Close()

	var types []*model.ClassType
	for rows.Next() {
		var ct model.ClassType
		if err := scanClassType(rows, &ct); err != nil {
			return nil, fmt.Errorf("scan class type: %w", err)
		}
		types = append(types, &ct)
	}

	return types, rows.Err()
}
