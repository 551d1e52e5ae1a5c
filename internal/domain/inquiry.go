package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the triage state of an inquiry
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every accepted status in display order
var Statuses = []Status{StatusPending, StatusAnswered, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the four known statuses
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Emoji returns the marker used in staff notifications
func (s Status) Emoji() string {
	switch s {
	case StatusPending:
		return "⏳"
	case StatusAnswered:
		return "✅"
	case StatusCompleted:
		return "🎉"
	case StatusCancelled:
		return "❌"
	}
	return ""
}

// Label returns the Korean label shown to staff
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "답변 대기"
	case StatusAnswered:
		return "답변 완료"
	case StatusCompleted:
		return "처리 완료"
	case StatusCancelled:
		return "취소됨"
	}
	return string(s)
}

// Options is the list of add-on labels selected on the form.
// It is stored as a JSON array in a TEXT column.
type Options []string

// Value implements driver.Valuer
func (o Options) Value() (driver.Value, error) {
	if len(o) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (o *Options) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*o = Options{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("options: unsupported column type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*o = Options{}
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	*o = list
	return nil
}

// MarshalJSON always renders an array, never null
func (o Options) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(o))
}

// ParseLegacyOptions converts the comma-joined representation written by
// older deployments into the canonical list.
func ParseLegacyOptions(raw string) Options {
	out := Options{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Inquiry represents an inspection request submitted by a customer
type Inquiry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Phone          string    `gorm:"not null;index" json:"phone"`
	PhoneDigits    string    `gorm:"index" json:"-"`
	Email          *string   `json:"email"`
	Apartment      string    `gorm:"not null" json:"apartment"`
	Size           string    `gorm:"not null" json:"size"`
	ApartmentUnit  *string   `json:"apartment_unit"`
	MoveInDate     string    `gorm:"not null" json:"move_in_date"`
	PreferredTime  *string   `json:"preferred_time"`
	Message        string    `gorm:"type:text" json:"message"`
	Options        Options   `gorm:"type:text" json:"options"`
	Password       *string   `gorm:"column:password" json:"-"`
	AgreePrivacy   bool      `gorm:"not null;default:false" json:"agree_privacy"`
	AgreeMarketing bool      `gorm:"not null;default:false" json:"agree_marketing"`
	Status         Status    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNote      *string   `gorm:"type:text" json:"admin_note"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for Inquiry
func (Inquiry) TableName() string {
	return "inquiries"
}

// HasPIN reports whether the row is protected by a lookup PIN
func (i *Inquiry) HasPIN() bool {
	return i.Password != nil && *i.Password != ""
}
