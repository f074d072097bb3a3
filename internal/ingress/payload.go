package ingress

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds how much of a webhook body is read. Provider payloads
// are a few hundred bytes; anything near this limit is garbage.
const maxBodyBytes = 1 << 20

// Payload is the flattened, provider-agnostic view of a webhook body. Nested
// objects are exposed under dotted keys ("paid_amount.USD") alongside the raw
// parent value.
type Payload map[string]string

// Parse normalizes the request body into a Payload and returns the raw bytes
// for signature verification. Parsing never hard-fails: an unreadable or
// malformed body yields an empty payload, which callers acknowledge as a
// provider ping.
func Parse(r *http.Request) (Payload, []byte) {
	if r.Body == nil {
		return Payload{}, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return Payload{}, nil
	}

	contentType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasSuffix(contentType, "/json"):
		return parseJSON(raw), raw
	case contentType == "application/x-www-form-urlencoded":
		return parseForm(raw), raw
	case strings.HasPrefix(contentType, "multipart/"):
		return parseMultipart(raw, params["boundary"]), raw
	default:
		return Payload{}, raw
	}
}

// IsPing reports whether the payload is a provider health check: an empty
// body or one carrying nothing but a ping field.
func (p Payload) IsPing() bool {
	if len(p) == 0 {
		return true
	}
	if len(p) == 1 {
		return p.Has("ping")
	}
	return false
}

// Get returns the value for key, or "" when absent.
func (p Payload) Get(key string) string {
	return p[key]
}

// Has reports whether the key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int returns the value parsed as an integer.
func (p Payload) Int(key string) (int, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return value, true
}

// Decimal returns the value parsed as a decimal amount.
func (p Payload) Decimal(key string) (decimal.Decimal, bool) {
	raw, ok := p[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// FirstDecimal returns the first key that parses as a decimal amount.
func (p Payload) FirstDecimal(keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		if value, ok := p.Decimal(key); ok {
			return value, true
		}
	}
	return decimal.Decimal{}, false
}

func parseJSON(raw []byte) Payload {
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Payload{}
	}
	payload := Payload{}
	for key, value := range doc {
		flattenInto(payload, key, value)
	}
	return payload
}

func parseForm(raw []byte) Payload {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return Payload{}
	}
	payload := Payload{}
	for key := range values {
		setField(payload, key, values.Get(key))
	}
	return payload
}

func parseMultipart(raw []byte, boundary string) Payload {
	if boundary == "" {
		return Payload{}
	}
	payload := Payload{}
	reader := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, maxBodyBytes))
		_ = part.Close()
		if err != nil {
			continue
		}
		setField(payload, name, string(value))
	}
	return payload
}

// setField stores a field and opportunistically expands values that are
// themselves JSON objects serialized as text. The raw string is always kept;
// expansion only adds dotted sub-keys.
func setField(payload Payload, key, value string) {
	payload[key] = value
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") {
		return
	}
	nested := map[string]any{}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&nested); err != nil {
		return
	}
	for sub, subValue := range nested {
		flattenInto(payload, key+"."+sub, subValue)
	}
}

func flattenInto(payload Payload, key string, value any) {
	switch typed := value.(type) {
	case nil:
		// absent and null are equivalent for webhook fields
	case string:
		setField(payload, key, typed)
	case json.Number:
		payload[key] = typed.String()
	case bool:
		payload[key] = strconv.FormatBool(typed)
	case map[string]any:
		if raw, err := json.Marshal(typed); err == nil {
			payload[key] = string(raw)
		}
		for sub, subValue := range typed {
			flattenInto(payload, key+"."+sub, subValue)
		}
	default:
		if raw, err := json.Marshal(typed); err == nil {
			payload[key] = string(raw)
		}
	}
}
