// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"metakit/internal/core/id"
)

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// NewListResponse creates a list response. Count is supplied by the
// caller because Items is held as any.
func NewListResponse(items any, count int) ListResponse {
	return ListResponse{Items: items, Count: count}
}

// ReorderRequest carries the full new ordering for a reorder operation.
type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// ParseIDs converts the raw id strings, rejecting malformed ones.
func (r ReorderRequest) ParseIDs() ([]id.ID, error) {
	out := make([]id.ID, 0, len(r.IDs))
	for _, raw := range r.IDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
