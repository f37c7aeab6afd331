package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/push-hr/helpdesk/internal/domain"
)

// FAQRepository holds knowledge-base entries.
type FAQRepository interface {
	Create(ctx context.Context, faq *domain.FAQ) error
	List(ctx context.Context) ([]domain.FAQ, error)
	Update(ctx context.Context, faq *domain.FAQ) error
	Delete(ctx context.Context, id int64) error
}

type faqRepository struct {
	pool *pgxpool.Pool
}

// NewFAQRepository builds repository.
func NewFAQRepository(pool *pgxpool.Pool) FAQRepository {
	return &faqRepository{pool: pool}
}

func (r *faqRepository) Create(ctx context.Context, faq *domain.FAQ) error {
	const query = `INSERT INTO faqs (question, answer, category_id) VALUES ($1,$2,$3) RETURNING id`
	return r.pool.QueryRow(ctx, query, faq.Question, faq.Answer, faq.CategoryID).Scan(&faq.ID)
}

func (r *faqRepository) List(ctx context.Context) ([]domain.FAQ, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, question, answer, category_id FROM faqs ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FAQ
	for rows.Next() {
		var faq domain.FAQ
		if err := rows.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.CategoryID); err != nil {
			return nil, err
		}
		result = append(result, faq)
	}
	return result, rows.Err()
}

func (r *faqRepository) Update(ctx context.Context, faq *domain.FAQ) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE faqs SET question=$1, answer=$2, category_id=$3 WHERE id=$4`,
		faq.Question, faq.Answer, faq.CategoryID, faq.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *faqRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM faqs WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
