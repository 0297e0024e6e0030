package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/bookatlas-backend/internal/clients/bookdata"
	"github.com/yungbote/bookatlas-backend/internal/platform/apperr"
)

// RatingDetail is one normalized per-source rating record.
type RatingDetail struct {
	Source string   `json:"source"`
	Rating *float64 `json:"rating,omitempty"`
	Votes  *int     `json:"votes,omitempty"`
}

// NormalizedBook is a fully validated creation record built from one raw
// provider book. Every field has been checked; downstream code never reads
// raw provider payloads.
type NormalizedBook struct {
	ExternalID    string
	Title         string
	YearPublished *int
	Summary       *string
	AgeRating     *string
	Language      *string
	SizePages     *int
	SizeDesc      *string
	AverageRating *float64
	RatingDetails []RatingDetail
	SourceURL     *string
	ISBN10        *string
	ISBN13        *string
	AuthorNames   []string
	GenreNames    []string
}

// noSummaryPlaceholder is what some providers send instead of omitting the
// field; it is treated as no summary at all.
const noSummaryPlaceholder = "No description available"

// BuildRecord validates one raw book and resolves its relationship ids to
// names. External ids with no known name are dropped silently; a missing
// title rejects the record.
func BuildRecord(raw bookdata.RawBook, authorIDs, genreIDs []string, authorNames, genreNames map[string]string) (*NormalizedBook, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, fmt.Errorf("book %q has no title: %w", raw.ID, apperr.ErrInvalidArgument)
	}

	summary := trimPtr(raw.Summary)
	if summary != nil && *summary == noSummaryPlaceholder {
		summary = nil
	}

	rec := &NormalizedBook{
		ExternalID:    raw.ID,
		Title:         title,
		YearPublished: raw.YearPublished,
		Summary:       summary,
		AgeRating:     trimPtr(raw.AgeRating),
		Language:      trimPtr(raw.Language),
		SizePages:     raw.SizePages,
		SizeDesc:      trimPtr(raw.SizeDesc),
		AverageRating: raw.AverageRating,
		RatingDetails: ParseRatingDetails(raw.RatingDetails),
		SourceURL:     trimPtr(raw.SourceURL),
		ISBN10:        trimPtr(raw.ISBN10),
		ISBN13:        trimPtr(raw.ISBN13),
	}
	for _, id := range authorIDs {
		if name, ok := authorNames[id]; ok && strings.TrimSpace(name) != "" {
			rec.AuthorNames = append(rec.AuthorNames, strings.TrimSpace(name))
		}
	}
	for _, id := range genreIDs {
		if name, ok := genreNames[id]; ok && strings.TrimSpace(name) != "" {
			rec.GenreNames = append(rec.GenreNames, strings.TrimSpace(name))
		}
	}
	return rec, nil
}

// ParseRatingDetails normalizes the provider rating payload, which arrives as
// a JSON-encoded string, a single object, or a list. An object keyed
// "open_library" becomes a one-element list. Unparseable or unexpected
// shapes yield nil rather than an error.
func ParseRatingDetails(raw json.RawMessage) []RatingDetail {
	if len(raw) == 0 {
		return nil
	}

	data := []byte(raw)
	// Double-encoded payloads: unwrap the string and parse its contents.
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if asString == "" {
			return nil
		}
		data = []byte(asString)
	}

	var asList []RatingDetail
	if err := json.Unmarshal(data, &asList); err == nil {
		out := asList[:0]
		for _, d := range asList {
			if strings.TrimSpace(d.Source) != "" {
				out = append(out, d)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err != nil {
		return nil
	}

	if inner, ok := asObject["open_library"]; ok {
		var ol struct {
			Rating *float64 `json:"rating"`
			Votes  *int     `json:"votes"`
		}
		if err := json.Unmarshal(inner, &ol); err != nil {
			return nil
		}
		return []RatingDetail{{Source: "OpenLibrary", Rating: ol.Rating, Votes: ol.Votes}}
	}

	var single RatingDetail
	if err := json.Unmarshal(data, &single); err != nil || strings.TrimSpace(single.Source) == "" {
		return nil
	}
	return []RatingDetail{single}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
