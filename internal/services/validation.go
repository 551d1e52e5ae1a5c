package services

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"hazacheck/internal/util"
)

// SubmitPayload is the intake form body
type SubmitPayload struct {
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Email          string   `json:"email"`
	Apartment      string   `json:"apartment"`
	Size           string   `json:"size"`
	ApartmentUnit  string   `json:"apartment_unit"`
	MoveInDate     string   `json:"move_in_date"`
	PreferredTime  string   `json:"preferred_time"`
	Message        string   `json:"message"`
	Options        []string `json:"options"`
	Password       string   `json:"password"`
	AgreePrivacy   bool     `json:"agree_privacy"`
	AgreeMarketing bool     `json:"agree_marketing"`
}

// UnmarshalJSON also accepts the camelCase keys sent by the quick-quote modal
func (p *SubmitPayload) UnmarshalJSON(data []byte) error {
	type plain SubmitPayload
	aux := struct {
		*plain
		MoveInDateAlt    *string `json:"moveInDate"`
		ApartmentUnitAlt *string `json:"apartmentUnit"`
		PreferredTimeAlt *string `json:"preferredTime"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.MoveInDate == "" && aux.MoveInDateAlt != nil {
		p.MoveInDate = *aux.MoveInDateAlt
	}
	if p.ApartmentUnit == "" && aux.ApartmentUnitAlt != nil {
		p.ApartmentUnit = *aux.ApartmentUnitAlt
	}
	if p.PreferredTime == "" && aux.PreferredTimeAlt != nil {
		p.PreferredTime = *aux.PreferredTimeAlt
	}
	return nil
}

// Validate checks the payload in a fixed order; the first failure wins
func (p *SubmitPayload) Validate() error {
	for _, v := range []string{p.Name, p.Phone, p.Apartment, p.Size, p.MoveInDate} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingField
		}
	}
	if !util.ValidPIN(p.Password) {
		return ErrInvalidPin
	}
	if !p.AgreePrivacy {
		return ErrConsentRequired
	}
	if !util.ValidPhone(p.Phone) {
		return ErrInvalidPhone
	}
	if email := strings.TrimSpace(p.Email); email != "" && !util.ValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

// FlexibleID decodes an inquiry id sent either as a JSON number or a numeric
// string. Anything else decodes to zero, which callers treat as missing.
type FlexibleID uint

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	*id = 0
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = []byte(strings.TrimSpace(s))
	}
	if n, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
		*id = FlexibleID(n)
	}
	return nil
}

// UpdatePayload is the admin status change body
type UpdatePayload struct {
	ID        FlexibleID `json:"id"`
	Status    string     `json:"status"`
	AdminNote *string    `json:"adminNote"`
}

// ParseID parses a positive integer id from a query parameter
func ParseID(raw string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// parseBounded parses a positive integer, returning def for missing or
// invalid input and clamping to max when max > 0.
func parseBounded(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
