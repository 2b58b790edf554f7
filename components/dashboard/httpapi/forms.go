package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

var errBadPayload = errors.New("httpapi: malformed request body")

// IsJSON reports whether a Content-Type header names JSON.
func IsJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

// DecodeJSON unmarshals body into target, tagging failures as bad requests.
func DecodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// FormValues parses a url-encoded request body.
func FormValues(body []byte) (url.Values, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return values, nil
}

// SellerToken extracts the seller token from a JSON or form body.
func SellerToken(contentType string, body []byte) (string, error) {
	if IsJSON(contentType) {
		var payload struct {
			SellerToken string `json:"seller_token"`
		}
		if err := DecodeJSON(body, &payload); err != nil {
			return "", err
		}
		return payload.SellerToken, nil
	}
	values, err := FormValues(body)
	if err != nil {
		return "", err
	}
	return values.Get("seller_token"), nil
}

// SettingsPatch reads a settings update from a JSON or form body. Blank form
// fields are left out of the patch.
func SettingsPatch(contentType string, body []byte) (dashboard.SettingsPatch, error) {
	var patch dashboard.SettingsPatch
	if IsJSON(contentType) {
		err := DecodeJSON(body, &patch)
		return patch, err
	}
	values, err := FormValues(body)
	if err != nil {
		return patch, err
	}
	fields := []struct {
		name string
		dst  **float64
	}{
		{"extra_cost_pct", &patch.ExtraCostPct},
		{"slow_mover_min_speed", &patch.SlowMoverMinSpeed},
		{"slow_mover_min_margin", &patch.SlowMoverMinMargin},
		{"lead_time_days", &patch.LeadTimeDays},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(values.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return patch, &dashboard.ValidationError{Err: fmt.Errorf("%s must be a number", f.name)}
		}
		*f.dst = &v
	}
	return patch, nil
}
