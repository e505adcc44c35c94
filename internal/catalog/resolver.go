package catalog

import (
	"errors"
	"fmt"
	"strings"

	"shackbot/internal/models"
)

// ErrNoMatch is returned when no item scores at or above the threshold
var ErrNoMatch = errors.New("no menu item matches")

// ExactScore is the score of an exact normalized-name match
const ExactScore = 100.0

// DefaultThreshold is the minimum score a match must reach
const DefaultThreshold = 60.0

// Weights are the scores awarded by each matching rule. The values were
// tuned by hand against the menu and are kept configurable.
type Weights struct {
	ItemContainsQuery float64
	QueryContainsItem float64
	AllItemTokens     float64
	AllQueryTokens    float64
	PartialTokens     float64
}

// DefaultWeights returns the 80/70/60/50/40 scoring scheme
func DefaultWeights() Weights {
	return Weights{
		ItemContainsQuery: 80,
		QueryContainsItem: 70,
		AllItemTokens:     60,
		AllQueryTokens:    50,
		PartialTokens:     40,
	}
}

// Match is a resolved menu item with the score that selected it
type Match struct {
	Item  models.MenuItem
	Score float64
}

// NoMatchError carries the best candidate that fell short of the threshold
type NoMatchError struct {
	Query     string
	Candidate *models.MenuItem
	BestScore float64
}

func (e *NoMatchError) Error() string {
	if e.Candidate == nil {
		return fmt.Sprintf("%s: %q", ErrNoMatch, e.Query)
	}
	return fmt.Sprintf("%s: %q (closest %q scored %.1f)", ErrNoMatch, e.Query, e.Candidate.Name, e.BestScore)
}

// Is makes errors.Is(err, ErrNoMatch) hold
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// Resolver fuzzy-matches free text to a catalog item
type Resolver struct {
	threshold float64
	weights   Weights
}

// NewResolver creates a resolver. A zero Weights value selects the defaults.
func NewResolver(threshold float64, weights Weights) *Resolver {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Resolver{threshold: threshold, weights: weights}
}

// DefaultResolver uses threshold 60 and the default weights
func DefaultResolver() *Resolver {
	return NewResolver(DefaultThreshold, DefaultWeights())
}

// Threshold returns the minimum accepted score
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve returns the best-scoring item for query, or a *NoMatchError.
// An exact normalized match wins immediately, then a match ignoring spaces;
// otherwise ties keep the item that comes first in catalog order.
func (r *Resolver) Resolve(query string, catalog models.Catalog) (Match, error) {
	q := models.Normalize(query)
	if q == "" {
		return Match{}, &NoMatchError{Query: query}
	}

	if item, ok := catalog.Lookup(q); ok {
		return Match{Item: item, Score: ExactScore}, nil
	}
	if compact := models.Compact(q); compact != "" {
		for _, item := range catalog.Items {
			if models.Compact(item.Name) == compact {
				return Match{Item: item, Score: ExactScore}, nil
			}
		}
	}

	best := -1
	bestScore := 0.0
	for i, item := range catalog.Items {
		score := r.score(q, item.Key())
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if best == -1 || bestScore < r.threshold {
		nm := &NoMatchError{Query: query, BestScore: bestScore}
		if best != -1 && bestScore > 0 {
			candidate := catalog.Items[best]
			nm.Candidate = &candidate
		}
		return Match{}, nm
	}
	return Match{Item: catalog.Items[best], Score: bestScore}, nil
}

// Score rates how well query matches item, without the exact-match shortcut
func (r *Resolver) Score(query string, item models.MenuItem) float64 {
	return r.score(models.Normalize(query), item.Key())
}

func (r *Resolver) score(query, name string) float64 {
	switch {
	case query == "" || name == "":
		return 0
	case strings.Contains(name, query):
		return r.weights.ItemContainsQuery
	case strings.Contains(query, name):
		return r.weights.QueryContainsItem
	}

	itemTokens := tokenSet(name)
	queryTokens := tokenSet(query)
	common := 0
	for tok := range queryTokens {
		if itemTokens[tok] {
			common++
		}
	}

	switch {
	case common == 0:
		return 0
	case common == len(itemTokens):
		return r.weights.AllItemTokens
	case common == len(queryTokens):
		return r.weights.AllQueryTokens
	default:
		return r.weights.PartialTokens * float64(common) / float64(max(len(itemTokens), len(queryTokens)))
	}
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}
