// Package pipeline contains the market ingestion, prediction creation,
// outcome aggregation, and scheduling routines that make up the background
// data pipeline.
package pipeline

import (
	"strings"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
)

// allowedTags is the topic allow-list. A listing record must carry at least
// one of these to be accepted.
var allowedTags = []string{
	"Crypto", "Memecoins", "Politics", "Geopolitics", "Foreign Policy",
	"Breaking News", "Elon Musk", "Twitter", "Tech", "Business", "AI",
}

// disallowedTags rejects a record outright, even when an allowed tag is also
// present.
var disallowedTags = []string{
	"German Election", "Tweet Markets",
}

// ClassifyMarket decides whether a raw listing record becomes a tracked
// market and extracts its normalized fields. The bool is false for any
// rejection; rejection is a skip, never an error.
//
// Absent status fields default to the rejecting value: a record has to
// positively state it is active, open, and unarchived.
func ClassifyMarket(raw domain.RawMarket, now time.Time) (domain.Market, bool) {
	if raw.Active == nil || !*raw.Active {
		return domain.Market{}, false
	}
	if raw.Closed == nil || *raw.Closed {
		return domain.Market{}, false
	}
	if raw.Archived == nil || *raw.Archived {
		return domain.Market{}, false
	}

	if raw.ConditionID == nil || *raw.ConditionID == "" {
		return domain.Market{}, false
	}
	if raw.Question == nil || *raw.Question == "" {
		return domain.Market{}, false
	}

	if raw.Tags == nil || !tagsAccepted(raw.Tags) {
		return domain.Market{}, false
	}

	if raw.EndDateISO == nil {
		return domain.Market{}, false
	}
	endDate, err := time.Parse(time.RFC3339, *raw.EndDateISO)
	if err != nil {
		return domain.Market{}, false
	}
	if !endDate.After(now) {
		return domain.Market{}, false
	}

	description := ""
	if raw.Description != nil {
		description = collapseWhitespace(*raw.Description)
	}

	yesToken, noToken := extractTokenIDs(raw.Tokens)

	return domain.Market{
		ConditionID: *raw.ConditionID,
		Question:    *raw.Question,
		Description: description,
		Tags:        serializeTags(raw.Tags),
		YesTokenID:  yesToken,
		NoTokenID:   noToken,
		EndDate:     endDate,
	}, true
}

// tagsAccepted requires at least one allow-listed tag and zero deny-listed
// tags.
func tagsAccepted(tags []string) bool {
	anyAllowed := false
	for _, tag := range tags {
		for _, deny := range disallowedTags {
			if tag == deny {
				return false
			}
		}
		for _, allow := range allowedTags {
			if tag == allow {
				anyAllowed = true
			}
		}
	}
	return anyAllowed
}

// serializeTags renders tags as a bracketed comma-joined literal, e.g.
// "[Crypto, Tech]".
func serializeTags(tags []string) string {
	return "[" + strings.Join(tags, ", ") + "]"
}

// collapseWhitespace replaces every run of whitespace with a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractTokenIDs picks the yes/no outcome token ids from a listing record's
// token list. Outcome labels match case-insensitively; "up" counts as yes and
// "down" as no. The last match wins if duplicates appear.
func extractTokenIDs(tokens []domain.RawToken) (yes, no *string) {
	for _, tok := range tokens {
		t := tok // copy so the pointer survives the loop
		switch strings.ToLower(tok.Outcome) {
		case "yes", "up":
			yes = &t.TokenID
		case "no", "down":
			no = &t.TokenID
		}
	}
	return yes, no
}
