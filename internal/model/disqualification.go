package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
)

// DisqualificationReason is one of the fixed reason codes a user can pick.
type DisqualificationReason string

const (
	ReasonInactive          DisqualificationReason = "inactive"
	ReasonWrongMarket       DisqualificationReason = "wrong_market"
	ReasonBudgetConstraints DisqualificationReason = "budget_constraints"
	ReasonTimelineMismatch  DisqualificationReason = "timeline_mismatch"
	ReasonOther             DisqualificationReason = "other"
)

// DisqualificationReasons returns every accepted reason code in display order.
func DisqualificationReasons() []DisqualificationReason {
	return []DisqualificationReason{
		ReasonInactive,
		ReasonWrongMarket,
		ReasonBudgetConstraints,
		ReasonTimelineMismatch,
		ReasonOther,
	}
}

// Valid reports whether r is a known reason code.
func (r DisqualificationReason) Valid() bool {
	switch r {
	case ReasonInactive, ReasonWrongMarket, ReasonBudgetConstraints, ReasonTimelineMismatch, ReasonOther:
		return true
	}
	return false
}

// Disqualification is stored as jsonb on the contact row.
type Disqualification struct {
	Reasons         []DisqualificationReason `json:"reasons"`
	OtherReasonText string                   `json:"other_reason_text"`
	Timestamp       time.Time                `json:"timestamp"`
}

// Active reports whether the record marks a contact as disqualified.
// A nil record or an empty reason set is not a disqualification.
func (d *Disqualification) Active() bool {
	return d != nil && len(d.Reasons) > 0
}

// Value implements driver.Valuer.
func (d Disqualification) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Legacy rows where "reasons" is missing,
// null or not an array decode as an empty reason set.
func (d *Disqualification) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = Disqualification{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported disqualification column type %T", value)
	}
	return d.UnmarshalJSON(raw)
}

// UnmarshalJSON decodes a stored record leniently.
func (d *Disqualification) UnmarshalJSON(data []byte) error {
	var stored struct {
		Reasons         json.RawMessage `json:"reasons"`
		OtherReasonText string          `json:"other_reason_text"`
		Timestamp       *time.Time      `json:"timestamp"`
	}
	*d = Disqualification{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	var reasons []DisqualificationReason
	if len(stored.Reasons) > 0 && stored.Reasons[0] == '[' {
		if err := json.Unmarshal(stored.Reasons, &reasons); err != nil {
			return err
		}
	}
	d.Reasons = reasons
	d.OtherReasonText = stored.OtherReasonText
	if stored.Timestamp != nil {
		d.Timestamp = *stored.Timestamp
	}
	return nil
}

// DisqualificationInput is the client-supplied disqualification payload.
type DisqualificationInput struct {
	Reasons         []DisqualificationReason `json:"reasons"`
	OtherReasonText string                   `json:"other_reason_text"`
}

// NormalizeDisqualification turns client input into the record to persist.
// A nil result means the contact is (re)qualified: null input, or no reasons
// and no other_reason_text. Text without any reason is rejected.
func NormalizeDisqualification(in *DisqualificationInput, now time.Time) (*Disqualification, error) {
	if in == nil {
		return nil, nil
	}
	if len(in.Reasons) == 0 {
		if strings.TrimSpace(in.OtherReasonText) != "" {
			return nil, fmt.Errorf("%w: other_reason_text requires reason 'other'", apperrors.ErrValidation)
		}
		return nil, nil
	}

	seen := make(map[DisqualificationReason]struct{}, len(in.Reasons))
	hasOther := false
	for _, r := range in.Reasons {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown disqualification reason %q", apperrors.ErrValidation, r)
		}
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: duplicate disqualification reason %q", apperrors.ErrValidation, r)
		}
		seen[r] = struct{}{}
		if r == ReasonOther {
			hasOther = true
		}
	}

	record := &Disqualification{
		Reasons:   append([]DisqualificationReason(nil), in.Reasons...),
		Timestamp: now.UTC(),
	}
	if hasOther {
		text := strings.TrimSpace(in.OtherReasonText)
		if text == "" {
			return nil, fmt.Errorf("%w: other_reason_text is required when reason 'other' is selected", apperrors.ErrValidation)
		}
		record.OtherReasonText = text
	}
	return record, nil
}
