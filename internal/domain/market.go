package domain

import "time"

// Market is one binary-outcome exchange market accepted by the classifier.
// ConditionID is the exchange's stable identifier and the primary key.
type Market struct {
	ConditionID string
	Question    string
	Description string
	Tags        string // bracketed comma-joined literal, e.g. "[Crypto, Tech]"
	YesTokenID  *string
	NoTokenID   *string
	EndDate     time.Time
	CreatedAt   time.Time
}
