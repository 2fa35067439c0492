// client/master_data.go
package client

import (
	"context"
	"fmt"

	"github.com/Danhnam1/Audit-System-sub002/models"
	"github.com/Danhnam1/Audit-System-sub002/workflow"
)

// Master data is the one place a remote failure substitutes a default
// instead of blocking: an auditor must be able to raise a finding even when
// the reference lists are down. Both fetchers return the fallback together
// with ErrMasterDataUnavailable so the caller can proceed and still knows
// the remote list failed.

func (s *Store) FetchSeverities(ctx context.Context) ([]models.Severity, error) {
	list, err := fetchList[models.Severity](s, ctx, "/api/masterdata/severities", nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("severity master data unavailable, using fallback")
		return models.FallbackSeverities, fmt.Errorf("%w: severities: %v", workflow.ErrMasterDataUnavailable, err)
	}
	if len(list) == 0 {
		return models.FallbackSeverities, fmt.Errorf("%w: severities: empty list", workflow.ErrMasterDataUnavailable)
	}
	return list, nil
}

func (s *Store) FetchDepartments(ctx context.Context) ([]models.Department, error) {
	list, err := fetchList[models.Department](s, ctx, "/api/masterdata/departments", nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("department master data unavailable")
		return []models.Department{}, fmt.Errorf("%w: departments: %v", workflow.ErrMasterDataUnavailable, err)
	}
	return list, nil
}
