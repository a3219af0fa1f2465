package rag

import (
	"regexp"
	"sort"
	"strings"
)

// BoostConfig holds the tunable constants of the relevance boosting pass.
// The defaults reproduce the ranking the statute corpus was tuned with:
// traffic-law questions are almost always about current law, so recency
// dominates raw similarity, and an explicitly cited decree number dominates
// everything.
type BoostConfig struct {
	// ReferenceYear anchors the recency tiers (normally the current year).
	ReferenceYear int

	// Recency tier widths in years, counted back from ReferenceYear,
	// and the additive boost for each tier. Documents older than OldYears
	// receive AgePenalty instead.
	RecentYears int
	MediumYears int
	OldYears    int

	RecentBoost float32
	MediumBoost float32
	OldBoost    float32
	AgePenalty  float32

	// TopicalBoost is added to penalty/violation decrees regardless of year.
	TopicalBoost float32

	// ExactMatchBoost is added when a document identifier cited in the
	// query ("168/2024") appears verbatim in the title or URL. Sized to
	// outrank any combination of the other boosts.
	ExactMatchBoost float32
}

// DefaultBoostConfig returns the production defaults.
func DefaultBoostConfig(referenceYear int) BoostConfig {
	return BoostConfig{
		ReferenceYear:   referenceYear,
		RecentYears:     2,
		MediumYears:     5,
		OldYears:        10,
		RecentBoost:     1.0,
		MediumBoost:     0.5,
		OldBoost:        0.2,
		AgePenalty:      -0.3,
		TopicalBoost:    0.3,
		ExactMatchBoost: 2.0,
	}
}

// docNumberPattern matches Vietnamese legal document identifiers cited in
// queries, e.g. "168/2024" in "Nghị định 168/2024".
var docNumberPattern = regexp.MustCompile(`\b\d+/\d{4}\b`)

// penaltyKeywords mark decrees that set fines for violations.
var penaltyKeywords = []string{"xử phạt", "vi phạm", "phạt"}

// rankCandidates applies the boosting rules in order (recency, topical,
// exact match), re-sorts by (score, year) descending, and deduplicates by
// URL keeping the highest-ranked occurrence, stopping at limit unique
// documents. Candidates without a URL are dropped.
func rankCandidates(candidates []Candidate, query string, limit int, cfg BoostConfig) []Candidate {
	boostCandidates(candidates, query, cfg)
	sortCandidates(candidates)
	return dedupeByURL(candidates, limit)
}

// boostCandidates rescales each candidate's score in place.
func boostCandidates(candidates []Candidate, query string, cfg BoostConfig) {
	docNumbers := docNumberPattern.FindAllString(query, -1)

	for i := range candidates {
		c := &candidates[i]

		switch {
		case c.Year >= cfg.ReferenceYear-cfg.RecentYears:
			c.Score += cfg.RecentBoost
		case c.Year >= cfg.ReferenceYear-cfg.MediumYears:
			c.Score += cfg.MediumBoost
		case c.Year >= cfg.ReferenceYear-cfg.OldYears:
			c.Score += cfg.OldBoost
		default:
			c.Score += cfg.AgePenalty
		}

		if isPenaltyDecree(c.Title) {
			c.Score += cfg.TopicalBoost
		}

		for _, num := range docNumbers {
			if strings.Contains(c.Title, num) || strings.Contains(c.URL, num) {
				c.Score += cfg.ExactMatchBoost
			}
		}
	}
}

// isPenaltyDecree reports whether a title names a decree about penalties
// or violations ("Nghị định ... xử phạt vi phạm ...").
func isPenaltyDecree(title string) bool {
	if !strings.Contains(title, "Nghị định") {
		return false
	}
	for _, kw := range penaltyKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// sortCandidates orders by boosted score descending, year as tie-break.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Year > candidates[j].Year
	})
}

// dedupeByURL keeps the first occurrence of each distinct URL from an
// already-sorted list, collecting at most limit unique documents.
func dedupeByURL(candidates []Candidate, limit int) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]Candidate, 0, limit)

	for _, c := range candidates {
		if c.URL == "" {
			continue
		}
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		unique = append(unique, c)
		if len(unique) >= limit {
			break
		}
	}
	return unique
}
