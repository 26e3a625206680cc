package domain

import "encoding/json"

// RawMarket is one record from the exchange listing API. The upstream schema
// is loose: every field is optional and booleans default to the rejecting
// value when absent, so pointers distinguish "absent" from zero.
type RawMarket struct {
	Active      *bool      `json:"active"`
	Closed      *bool      `json:"closed"`
	Archived    *bool      `json:"archived"`
	ConditionID *string    `json:"condition_id"`
	Question    *string    `json:"question"`
	Description *string    `json:"description"`
	Tags        RawTags    `json:"tags"`
	Tokens      []RawToken `json:"tokens"`
	EndDateISO  *string    `json:"end_date_iso"`
}

// RawToken is one outcome token entry on a listing record.
type RawToken struct {
	Outcome string `json:"outcome"`
	TokenID string `json:"token_id"`
}

// RawTags decodes a listing record's tags field. Non-string elements are
// dropped rather than failing the whole record, and a non-array value leaves
// the slice nil, which the classifier treats as "tags absent".
type RawTags []string

func (t *RawTags) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*t = nil
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			tags = append(tags, s)
		}
	}
	*t = tags
	return nil
}

// MarketsPage is one page of the cursor-paginated listing endpoint. Data and
// NextCursor are pointers because their absence carries meaning: a missing
// data field ends pagination, and a missing or unchanged cursor means the
// source cannot advance.
type MarketsPage struct {
	Data       *[]RawMarket `json:"data"`
	NextCursor *string      `json:"next_cursor"`
}
