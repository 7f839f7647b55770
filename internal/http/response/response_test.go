package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/flow-builder/internal/lib/tier"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", models.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"not found wrapped", fmt.Errorf("flow.Get: %w", models.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"upgrade", models.ErrUpgradeRequired, http.StatusForbidden, CodeUpgradeRequired},
		{"validation", models.Validationf("bad"), http.StatusUnprocessableEntity, CodeValidation},
		{"forbidden", models.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"expired", models.ErrShareExpired, http.StatusGone, CodeShareExpired},
		{"signature", fmt.Errorf("x: %w", models.ErrSignatureInvalid), http.StatusBadRequest, CodeBadSignature},
		{"upstream", models.Upstream(errors.New("stripe")), http.StatusBadGateway, CodeUpstream},
		{"unknown", errors.New("db is on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			resp, ok := body.(ErrorResponse)
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantCode, resp.Code)
				assert.Equal(t, StatusError, resp.Status)
			}
		})
	}
}

func TestFromError_Limit(t *testing.T) {
	err := fmt.Errorf("flow.Create: %w", tier.CheckFlows(models.TierFree, 4))

	status, body := FromError(err)
	assert.Equal(t, http.StatusForbidden, status)
	resp, ok := body.(LimitErrorResponse)
	if assert.True(t, ok) {
		assert.Equal(t, CodeLimitExceeded, resp.Code)
		assert.Equal(t, "flows", resp.Resource)
		assert.Equal(t, tier.FreeMaxFlows, resp.Limit)
		assert.Contains(t, resp.Error, "Upgrade")
	}
}

func TestFromError_ValidationMessage(t *testing.T) {
	err := fmt.Errorf("share.Share: %w", models.Validationf("expires_at must be in the future"))
	_, body := FromError(err)
	assert.Equal(t, "expires_at must be in the future", body.(ErrorResponse).Error)
}

func TestFromError_InternalDetailsHidden(t *testing.T) {
	_, body := FromError(errors.New("pq: password authentication failed for user admin"))
	assert.Equal(t, "internal error", body.(ErrorResponse).Error)
}
