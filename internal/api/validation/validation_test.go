package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tempaccess/internal/api/validation"
)

func fields(errs []validation.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateCreateTierRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    validation.CreateTierRequest
		fields []string
	}{
		{"valid", validation.CreateTierRequest{ID: "shop_manager", Name: "Shop Manager"}, []string{}},
		{"missing id and name", validation.CreateTierRequest{}, []string{"id", "name"}},
		{"uppercase id", validation.CreateTierRequest{ID: "Editor", Name: "Editor"}, []string{"id"}},
		{"id starting with digit", validation.CreateTierRequest{ID: "1editor", Name: "Editor"}, []string{"id"}},
		{"id too short", validation.CreateTierRequest{ID: "e", Name: "Editor"}, []string{"id"}},
		{"name too long", validation.CreateTierRequest{ID: "editor", Name: strings.Repeat("n", 65)}, []string{"name"}},
		{"blank name", validation.CreateTierRequest{ID: "editor", Name: "   "}, []string{"name"}},
		{"negative position", validation.CreateTierRequest{ID: "editor", Name: "Editor", Position: -1}, []string{"position"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fields, fields(validation.ValidateCreateTierRequest(tt.req)))
		})
	}
}

func TestValidateCreateAccountRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    validation.CreateAccountRequest
		fields []string
	}{
		{"valid", validation.CreateAccountRequest{Name: "jane.doe", Tiers: []string{"editor"}}, []string{}},
		{"missing name", validation.CreateAccountRequest{Tiers: []string{"editor"}}, []string{"name"}},
		{"bad name", validation.CreateAccountRequest{Name: "Jane Doe", Tiers: []string{"editor"}}, []string{"name"}},
		{"no tiers", validation.CreateAccountRequest{Name: "jane"}, []string{"tiers"}},
		{"bad tier id", validation.CreateAccountRequest{Name: "jane", Tiers: []string{"editor", "Bad Tier"}}, []string{"tiers[1]"}},
		{"duplicate tier", validation.CreateAccountRequest{Name: "jane", Tiers: []string{"editor", "editor"}}, []string{"tiers[1]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fields, fields(validation.ValidateCreateAccountRequest(tt.req)))
		})
	}
}

func TestValidateSetTiersRequest(t *testing.T) {
	assert.Empty(t, validation.ValidateSetTiersRequest(validation.SetTiersRequest{Tiers: []string{"administrator", "editor"}}))

	errs := validation.ValidateSetTiersRequest(validation.SetTiersRequest{})
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "tiers", errs[0].Field)
	}
}
