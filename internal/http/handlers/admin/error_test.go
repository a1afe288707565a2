package admin

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/service"
)

func TestResolveServiceError(t *testing.T) {
	cases := []struct {
		err      error
		code     int
		key      string
		keepsErr bool
	}{
		{fmt.Errorf("transition: %w", service.ErrCompositionTerminal), response.CodeConflict, "error.composition_terminal", false},
		{service.ErrLoadPlanNotFound, response.CodeNotFound, "error.load_plan_not_found", false},
		{service.ErrPlanningRangeInvalid, response.CodeBadRequest, "error.planning_range_invalid", false},
		{geocoder.ErrDisabled, response.CodeUnavailable, "error.geocode_disabled", true},
		{errors.New("db down"), response.CodeInternal, "error.load_plan_failed", true},
	}
	for _, tc := range cases {
		appErr := resolveServiceError(tc.err, "error.load_plan_failed")
		if appErr.Code != tc.code || appErr.Key != tc.key {
			t.Fatalf("%v: want %d/%s got %d/%s", tc.err, tc.code, tc.key, appErr.Code, appErr.Key)
		}
		if (appErr.Err != nil) != tc.keepsErr {
			t.Fatalf("%v: unexpected cause retention %v", tc.err, appErr.Err)
		}
		if appErr.Message == "" || appErr.Message == appErr.Key {
			t.Fatalf("%v: message should come from the catalog, got %q", tc.err, appErr.Message)
		}
	}
}
