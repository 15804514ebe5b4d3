package audit

import (
	"encoding/json"
	"time"

	"loan-ledger/pkg/id"
)

type Action string

const (
	ActionRegisterLoan          Action = "REGISTER_LOAN"
	ActionRegisterRepayment     Action = "REGISTER_REPAYMENT"
	ActionCancelContract        Action = "CANCEL_CONTRACT"
	ActionCancelContractSkipped Action = "CANCEL_CONTRACT_SKIPPED"
)

const EntityLoan = "loan"

// Event is an immutable trail record of a state-changing ledger operation.
type Event struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	EventID   string    `gorm:"column:event_id;size:36;not null;uniqueIndex:ux_audit_events_event_id" json:"event_id"`
	Timestamp time.Time `gorm:"column:timestamp_utc;not null" json:"timestamp_utc"`
	Action    Action    `gorm:"column:action;size:32;not null" json:"action"`
	Entity    string    `gorm:"column:entity;size:16;not null" json:"entity"`
	EntityID  string    `gorm:"column:entity_id;size:32;not null;index:idx_audit_entity" json:"entity_id"`
	Actor     string    `gorm:"column:actor;size:64;not null" json:"actor"`
	Details   string    `gorm:"column:details;type:text" json:"details"`
}

func (Event) TableName() string { return "audit_events" }

// NewEvent stamps a loan event with a fresh id. details is marshalled to
// JSON; a value that cannot be marshalled is recorded as its error text.
func NewEvent(at time.Time, action Action, loanID, actor string, details any) *Event {
	raw, err := json.Marshal(details)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return &Event{
		EventID:   id.NewEventID(),
		Timestamp: at.UTC(),
		Action:    action,
		Entity:    EntityLoan,
		EntityID:  loanID,
		Actor:     actor,
		Details:   string(raw),
	}
}
