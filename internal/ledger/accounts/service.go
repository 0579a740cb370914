// Package accounts is the chart-of-accounts registry. Accounts are soft
// deactivated rather than deleted so historical postings stay resolvable.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Repository defines data access for the registry.
type Repository interface {
	Insert(ctx context.Context, a ledger.Account) (ledger.Account, error)
	List(ctx context.Context) ([]ledger.Account, error)
	GetByID(ctx context.Context, id int64) (ledger.Account, error)
	GetByCode(ctx context.Context, code string) (ledger.Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles registry business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures fields for a new account.
type CreateInput struct {
	Code     string
	Name     string
	Type     ledger.AccountType
	ParentID *int64
}

// Validate checks the account definition.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: account code required", ledger.ErrValidation)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: account name required", ledger.ErrValidation)
	}
	switch in.Type {
	case ledger.AccountTypeAsset, ledger.AccountTypeLiability, ledger.AccountTypeEquity,
		ledger.AccountTypeRevenue, ledger.AccountTypeExpense:
	default:
		return fmt.Errorf("%w: account type %q", ledger.ErrValidation, in.Type)
	}
	return nil
}

// Create registers a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (ledger.Account, error) {
	if err := in.Validate(); err != nil {
		return ledger.Account{}, err
	}
	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *in.ParentID); err != nil {
			return ledger.Account{}, fmt.Errorf("%w: parent %d", ledger.ErrUnknownAccount, *in.ParentID)
		}
	}
	return s.repo.Insert(ctx, ledger.Account{
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		ParentID: in.ParentID,
		IsActive: true,
	})
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]ledger.Account, error) {
	return s.repo.List(ctx)
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id int64) (ledger.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Deactivate soft-deactivates an account so new postings are rejected while
// history is preserved.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}
