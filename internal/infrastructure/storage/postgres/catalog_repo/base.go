// Package catalog_repo provides PostgreSQL implementations for the product and customer catalogs.
package catalog_repo

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/domain"
	"retailpos/internal/infrastructure/storage/postgres"
)

// catalogEntity is what BaseCatalogRepo needs from a stored aggregate.
type catalogEntity interface {
	entity.Validatable
	GetID() id.ID
	GetVersion() int
	Touch(now time.Time)
}

// CatalogConfig describes the table behind a catalog.
type CatalogConfig struct {
	Table      string
	Entity     string
	SelectCols []string
	// SearchCols are matched by ListFilter.Search with ILIKE.
	SearchCols []string
	// ProtectedCols are never written by Update (ledger-owned columns).
	ProtectedCols []string
	DefaultOrder  string
}

// BaseCatalogRepo provides common CRUD operations for catalog entities.
// Embed this in specific catalog repositories.
type BaseCatalogRepo[T catalogEntity] struct {
	txManager *postgres.TxManager
	cfg       CatalogConfig
	newFn     func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T catalogEntity](txManager *postgres.TxManager, cfg CatalogConfig, newFn func() T) *BaseCatalogRepo[T] {
	if cfg.DefaultOrder == "" {
		cfg.DefaultOrder = "name"
	}
	return &BaseCatalogRepo[T]{
		txManager: txManager,
		cfg:       cfg,
		newFn:     newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new entity using its "db" tags.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, e T) error {
	data := postgres.StructToMap(e)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	// Filter to only include columns that exist in DB
	filteredData := make(map[string]any, len(r.cfg.SelectCols))
	for _, col := range r.cfg.SelectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(r.cfg.Table).
		SetMap(filteredData).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.cfg.Table, err)
	}
	return nil
}

// Update modifies an existing entity with optimistic locking and bumps its version.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, e T) error {
	data := postgres.StructToMap(e)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	now := time.Now().UTC()
	filteredData := make(map[string]any, len(r.cfg.SelectCols))
	for _, col := range r.cfg.SelectCols {
		switch col {
		case "id", "version", "created_at":
			continue
		}
		if slices.Contains(r.cfg.ProtectedCols, col) {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}
	filteredData["updated_at"] = now

	sql, args, err := r.Builder().
		Update(r.cfg.Table).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": e.GetID()}).
		Where(squirrel.Eq{"version": e.GetVersion()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.cfg.Table, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.cfg.Entity, e.GetID())
	}

	e.Touch(now)
	return nil
}

// baseSelect creates a SELECT builder.
func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.cfg.SelectCols...).
		From(r.cfg.Table)
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// GetForUpdate retrieves entity by ID with row lock.
func (r *BaseCatalogRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID.String())
}

// FindOne executes a SELECT query and returns a single entity.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	e := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return e, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return e, apperror.NewNotFound(r.cfg.Entity, key)
		}
		return e, fmt.Errorf("get %s: %w", r.cfg.Entity, err)
	}
	return e, nil
}

// listQuery applies the filter conditions shared by List and its count.
func (r *BaseCatalogRepo[T]) listQuery(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	if search := strings.TrimSpace(filter.Search); search != "" && len(r.cfg.SearchCols) > 0 {
		pattern := "%" + search + "%"
		or := make(squirrel.Or, 0, len(r.cfg.SearchCols))
		for _, col := range r.cfg.SearchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	return q
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	filter.Normalize()
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.listQuery(filter)

	// Count total (before pagination)
	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}

	sql, args, err := q.
		OrderBy(orderBy, "id ASC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		orderBy = r.cfg.DefaultOrder
	}

	// Support "-field" for DESC.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" || !slices.Contains(r.cfg.SelectCols, field) {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}
