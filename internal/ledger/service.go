package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/pagination"
)

// Service exposes provider statement reads over the append-only ledger.
type Service interface {
	Statement(ctx context.Context, params StatementParams) (*StatementResult, error)
	NetMovement(ctx context.Context, providerID uuid.UUID) (int, error)
}

// StatementParams configures a provider statement query.
type StatementParams struct {
	ProviderID uuid.UUID
	Query      ListQuery
	Cursor     string
}

// StatementResult wraps one statement page and the cursor for the next.
type StatementResult struct {
	Items  []models.LedgerEntry `json:"items"`
	Cursor string               `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService wires ledger dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Statement(ctx context.Context, params StatementParams) (*StatementResult, error) {
	if params.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}

	query := params.Query
	query.ProviderID = params.ProviderID
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByProvider(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing ledger entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &StatementResult{Items: rows, Cursor: cursor}, nil
}

// NetMovement returns the lifetime signed sum of a provider's ledger entries.
func (s *service) NetMovement(ctx context.Context, providerID uuid.UUID) (int, error) {
	if providerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}
	sum, err := s.repo.SumByProvider(ctx, providerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing ledger entries")
	}
	return sum, nil
}
