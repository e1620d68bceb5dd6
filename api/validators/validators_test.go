package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
)

type customerBody struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=5"`
}

type checkoutBody struct {
	Customer customerBody `json:"customer" validate:"required"`
	Quantity int          `json:"quantity" validate:"gte=1,lte=99"`
}

func TestDecodeJSONBodyReportsNestedViolations(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"customer":{"email":"nope","name":"abcdefg"},"quantity":0}`))

	var body checkoutBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	violations, ok := pkgerrors.As(err).Details().(pkgerrors.Violations)
	require.True(t, ok)
	fields := map[string]string{}
	for _, v := range violations {
		fields[v.Field] = v.Message
	}
	assert.Equal(t, "must be a valid email", fields["customer.email"])
	assert.Equal(t, "must be at most 5", fields["customer.name"])
	assert.Equal(t, "must be at least 1", fields["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var body checkoutBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":1,"extra":true}`)), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30&bad=x&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseQueryInt(req, "missing", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = ParseQueryInt(req, "bad", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "big", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeStringCountsRunes(t *testing.T) {
	assert.Equal(t, "Mañ", SanitizeString("  Mañana ", 3))
	assert.Equal(t, "plain", SanitizeString(" plain ", 0))
}
