package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	"github.com/sakashimaa/go-bookstore/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context, limit, offset int64, search string) ([]domain.Book, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateBookInput) error
	DeleteByID(ctx context.Context, id int64) error
}

type bookRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewBookRepository(pool *pgxpool.Pool, logger *zap.Logger) BookRepository {
	return &bookRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog/book_repo"),
	}
}

func (r *bookRepo) Create(ctx context.Context, book *domain.Book) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "BookRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("title", book.Title),
	)

	query := `
		INSERT INTO books (title, author, description, price, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id;
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		book.Title,
		book.Author,
		book.Description,
		book.Price,
		book.Category,
	).Scan(&book.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating book",
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating book: %w", err)
	}

	return book.ID, nil
}

func (r *bookRepo) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	ctx, span := r.tracer.Start(ctx, "BookRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, title, author, description, price, category, created_at, updated_at
		FROM books
		WHERE id = $1 AND deleted_at IS NULL;
	`

	var res domain.Book
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Title, &res.Author, &res.Description,
			&res.Price, &res.Category, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting book by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting book: %w", err)
	}

	return &res, nil
}

func (r *bookRepo) List(ctx context.Context, limit, offset int64, search string) ([]domain.Book, int64, error) {
	ctx, span := r.tracer.Start(ctx, "BookRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
		attribute.String("search", search),
	)

	baseQuery := `SELECT id, title, author, description, price, category, created_at, updated_at
		FROM books
		WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM books WHERE deleted_at IS NULL`

	var args []interface{}
	argID := 1

	if search != "" {
		filter := fmt.Sprintf(" AND (title ILIKE $%d OR author ILIKE $%d)", argID, argID)
		baseQuery += filter
		countQuery += filter

		args = append(args, "%"+search+"%")
		argID++
	}

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error listing books",
			zap.String("search", search),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Author,
			&b.Description,
			&b.Price,
			&b.Category,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, 0, fmt.Errorf("error scanning rows: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var countArgs []interface{}
	if search != "" {
		countArgs = append(countArgs, args[0])
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	return books, totalCount, nil
}

func (r *bookRepo) Update(ctx context.Context, id int64, input *domain.UpdateBookInput) error {
	ctx, span := r.tracer.Start(ctx, "BookRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []interface{}
	argID := 1

	appendField := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if input.Title != nil {
		appendField("title", *input.Title)
	}
	if input.Author != nil {
		appendField("author", *input.Author)
	}
	if input.Description != nil {
		appendField("description", *input.Description)
	}
	if input.Price != nil {
		appendField("price", *input.Price)
	}
	if input.Category != nil {
		appendField("category", *input.Category)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query := "UPDATE books SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argID)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update book",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error updating book: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}

func (r *bookRepo) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "BookRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		UPDATE books
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting book by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error deleting book by id: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}
