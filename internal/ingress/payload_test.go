package ingress

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONBody(t *testing.T) {
	body := `{"invoice_id":"INV1","status_code":1,"confirmed":true,"paid_amount":{"USD":"10.50"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	payload, raw := Parse(req)
	require.NotEmpty(t, payload)
	assert.Equal(t, []byte(body), raw)
	assert.Equal(t, "INV1", payload.Get("invoice_id"))
	assert.Equal(t, "1", payload.Get("status_code"))
	assert.Equal(t, "true", payload.Get("confirmed"))

	amount, ok := payload.Decimal("paid_amount.USD")
	require.True(t, ok)
	assert.Equal(t, "10.5", amount.String())

	code, ok := payload.Int("status_code")
	require.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestParseFormBodyExpandsJSONStringFields(t *testing.T) {
	form := url.Values{}
	form.Set("invoice_id", "INV2")
	form.Set("status_code", "2")
	form.Set("paid_amount", `{"USD":"25"}`)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	payload, _ := Parse(req)
	assert.Equal(t, "INV2", payload.Get("invoice_id"))
	// raw string survives alongside the expanded sub-key
	assert.Equal(t, `{"USD":"25"}`, payload.Get("paid_amount"))
	amount, ok := payload.Decimal("paid_amount.USD")
	require.True(t, ok)
	assert.Equal(t, "25", amount.String())
}

func TestParseMultipartBody(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("invoice_id", "INV3"))
	require.NoError(t, writer.WriteField("status_code", "3"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	payload, _ := Parse(req)
	assert.Equal(t, "INV3", payload.Get("invoice_id"))
	assert.Equal(t, "3", payload.Get("status_code"))
	assert.False(t, payload.IsPing())
}

func TestMalformedJSONYieldsPing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	payload, _ := Parse(req)
	assert.Empty(t, payload)
	assert.True(t, payload.IsPing())
}

func TestMissingContentTypeYieldsPing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"invoice_id":"INV4"}`))

	payload, _ := Parse(req)
	assert.True(t, payload.IsPing())
}

func TestPingOnlyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ping":"pong"}`))
	req.Header.Set("Content-Type", "application/json")

	payload, _ := Parse(req)
	assert.True(t, payload.IsPing())
}

func TestHasDistinguishesEmptyValueFromAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"invoice_id":""}`))
	req.Header.Set("Content-Type", "application/json")

	payload, _ := Parse(req)
	assert.True(t, payload.Has("invoice_id"))
	assert.False(t, payload.Has("status_code"))
	assert.False(t, payload.IsPing())
}

func TestEmptyBodyYieldsPing(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")

	payload, _ := Parse(req)
	assert.True(t, payload.IsPing())
}

func TestMalformedOptionalFieldKeepsRawString(t *testing.T) {
	body := `{"invoice_id":"INV5","paid_amount":"{broken json"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	payload, _ := Parse(req)
	assert.Equal(t, "INV5", payload.Get("invoice_id"))
	assert.Equal(t, "{broken json", payload.Get("paid_amount"))
	_, ok := payload.Decimal("paid_amount.USD")
	assert.False(t, ok)
}
