// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/domain"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps every item of a domain page.
func NewListResponse[E, T any](result domain.ListResult[E], mapFn func(E) T) ListResponse[T] {
	items := make([]T, len(result.Items))
	for i, item := range result.Items {
		items[i] = mapFn(item)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
}

// --- Base DTOs ---

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromBase creates BaseResponse from entity.BaseEntity.
func FromBase(b entity.BaseEntity) BaseResponse {
	return BaseResponse{
		ID:        b.ID.String(),
		Version:   b.Version,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// parseOptionalID parses s when present. Invalid ids are reported under field.
func parseOptionalID(s *string, field string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := id.Parse(*s)
	if err != nil {
		return nil, invalidID(field)
	}
	return &v, nil
}

// ParseTime accepts RFC 3339 timestamps and plain dates (midnight UTC).
func ParseTime(s, field string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperror.NewValidation("invalid time, expected RFC 3339 or YYYY-MM-DD").WithDetail("field", field)
}

func parseOptionalTime(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseTime(s, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
