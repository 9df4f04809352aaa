package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/ramadhanas/kaskelas/internal/adapters/db"
	"github.com/ramadhanas/kaskelas/internal/domain"
)

const (
	studentsTable   = "students"
	categoriesTable = "categories"
)

type StudentRepository struct {
	db *db.Client
}

func NewStudentRepository(db *db.Client) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByIDs returns the matching students ordered by name. Unknown ids are
// silently skipped; the caller decides whether an empty batch is an error.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	ds := goqu.From(studentsTable).
		Select("id", "name", "guardian_name", "phone").
		Where(goqu.C("id").In(ids)).
		Order(goqu.C("name").Asc())

	var recipients []domain.Recipient
	if err := r.db.Select(ctx, &recipients, ds); err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	return recipients, nil
}

type CategoryRepository struct {
	db *db.Client
}

func NewCategoryRepository(db *db.Client) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	ds := goqu.From(categoriesTable).
		Select("id", "name").
		Where(goqu.C("id").Eq(id))

	var category domain.Category
	if err := r.db.QueryRow(ctx, &category, ds); err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("error loading category %d: %w", id, err)
	}
	return category, nil
}
