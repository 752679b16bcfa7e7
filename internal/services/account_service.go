package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/lgwanai/email-mcp/internal/errors"
	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/repository"
	"github.com/lgwanai/email-mcp/internal/validator"
)

// AccountService defines the interface for mail account lifecycle management
type AccountService interface {
	Register(ctx context.Context, account *models.Account) (*models.Account, error)
	Get(ctx context.Context, address string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, address string) error
}

// accountService implements AccountService
type accountService struct {
	repo repository.AccountRepository
}

// NewAccountService creates a new AccountService instance
func NewAccountService(repo repository.AccountRepository) AccountService {
	return &accountService{repo: repo}
}

// Register validates and stores a new account. Missing server settings are
// filled in from the address domain, so registering just an address and
// password works for well-known providers.
func (s *accountService) Register(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.Address = strings.ToLower(strings.TrimSpace(account.Address))
	if err := validator.ValidateEmail(account.Address); err != nil {
		return nil, err
	}
	if account.Password == "" {
		return nil, apperrors.NewValidationError("password is required")
	}

	account.AutoConfigure()

	if err := validator.ValidatePort(account.IMAPPort); err != nil {
		return nil, err
	}
	if err := validator.ValidatePort(account.SMTPPort); err != nil {
		return nil, err
	}
	account.Enabled = true

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, apperrors.NewValidationError("account already registered")
		}
		return nil, err
	}

	slog.Info("account registered",
		"address", account.Address,
		"capabilities", account.Capabilities())

	return account, nil
}

// Get looks up an account by address
func (s *accountService) Get(ctx context.Context, address string) (*models.Account, error) {
	account, err := s.repo.GetByAddress(ctx, strings.ToLower(strings.TrimSpace(address)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewAppError(apperrors.ErrAccountNotFound,
				"account "+address+" is not registered", apperrors.CodeNotFound)
		}
		return nil, err
	}
	return account, nil
}

// List returns all registered accounts
func (s *accountService) List(ctx context.Context) ([]models.Account, error) {
	return s.repo.List(ctx)
}

// Update saves changed account settings
func (s *accountService) Update(ctx context.Context, account *models.Account) error {
	if err := validator.ValidateEmail(account.Address); err != nil {
		return err
	}
	return s.repo.Update(ctx, account)
}

// Delete removes an account registration. Stored attachments stay on disk
// until age-based cleanup collects them.
func (s *accountService) Delete(ctx context.Context, address string) error {
	account, err := s.Get(ctx, address)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, account.ID)
}
