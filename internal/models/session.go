package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero value stands for an unset date
// and is stored as NULL.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(raw string) (Date, error) {
	if raw == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or an empty string when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

func (d *Date) scanString(raw string) error {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Session is a scheduled class/cohort offering with its assigned trainers.
// No ordering is enforced between StartDate and EndDate.
type Session struct {
	ID         string    `db:"id" json:"id"`
	ClassGroup string    `db:"class_group" json:"class_group"`
	Specialty  string    `db:"specialty" json:"specialty"`
	Cohort     string    `db:"cohort" json:"cohort"`
	Level      string    `db:"level" json:"level"`
	Term       string    `db:"term" json:"term"`
	StartDate  Date      `db:"start_date" json:"start_date"`
	EndDate    Date      `db:"end_date" json:"end_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	Trainers   []Trainer `db:"-" json:"trainers"`
}

// HasTrainer reports whether trainerID is in the session's trainer set.
func (s *Session) HasTrainer(trainerID string) bool {
	for _, trainer := range s.Trainers {
		if trainer.ID == trainerID {
			return true
		}
	}
	return false
}

// SessionTrainer is one row of the session_trainers join table.
type SessionTrainer struct {
	SessionID  string    `db:"session_id" json:"session_id"`
	TrainerID  string    `db:"trainer_id" json:"trainer_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}
