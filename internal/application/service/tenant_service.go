package service

import (
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/dto"
	domainerrors "codevectorizer/internal/domain/errors/domain"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"fmt"
	"strings"
)

// TenantApplicationService exposes tenant-level management of stored
// repositories.
type TenantApplicationService struct {
	tenants outbound.TenantStorage
}

// NewTenantApplicationService wires the tenant service.
func NewTenantApplicationService(tenants outbound.TenantStorage) *TenantApplicationService {
	return &TenantApplicationService{tenants: tenants}
}

// ListRepositories enumerates all repositories stored for one tenant.
func (s *TenantApplicationService) ListRepositories(
	ctx context.Context,
	tenant string,
) (dto.TenantReposResponse, error) {
	if strings.TrimSpace(tenant) == "" {
		return dto.TenantReposResponse{}, fmt.Errorf("%w: tenant is required", domainerrors.ErrInvalidInput)
	}

	repositories, err := s.tenants.ListTenantRepositories(ctx, tenant)
	if err != nil {
		return dto.TenantReposResponse{}, err
	}

	return dto.TenantReposResponse{
		Tenant:       tenant,
		Repositories: repositories,
	}, nil
}

// DeleteRepository drops the namespace of one repository, removing its
// files, chunks, and embeddings.
func (s *TenantApplicationService) DeleteRepository(ctx context.Context, tenant, repoName string) error {
	if strings.TrimSpace(tenant) == "" {
		return fmt.Errorf("%w: tenant is required", domainerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(repoName) == "" {
		return fmt.Errorf("%w: repo name is required", domainerrors.ErrInvalidInput)
	}

	schema, err := valueobject.NewSchemaName(tenant, repoName)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}

	if err := s.tenants.DropSchema(ctx, schema); err != nil {
		return err
	}

	slogger.Info(ctx, "Deleted tenant repository", slogger.Fields{
		"tenant":    tenant,
		"repo_name": repoName,
		"schema":    schema.String(),
	})
	return nil
}
