package music

import (
	"fmt"
	"math"
	"sort"
)

// EntityRating is the average rating and release count of an artist or label.
type EntityRating struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// EntityCount is a release count for an artist or label.
type EntityCount struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RankedEntity is an entity with its Bayesian score.
type RankedEntity struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Count int    `json:"count"`
}

type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ParseSortOrder accepts only desc and asc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortDesc, SortAsc:
		return o, nil
	}
	return "", fmt.Errorf("%w: invalid order %q, should be 'desc' or 'asc'", ErrValidation, s)
}

// MeanAverageAndCount returns the mean of the averages and the mean of the counts.
func MeanAverageAndCount(ratings []EntityRating) (m, c float64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	for _, r := range ratings {
		m += r.Average
		c += float64(r.Count)
	}
	n := float64(len(ratings))
	return m / n, c / n
}

// BayesianRank shrinks each average toward the global mean, weighted by how
// many releases back it. Ties keep input order.
func BayesianRank(ratings []EntityRating, order SortOrder) ([]RankedEntity, error) {
	if _, err := ParseSortOrder(string(order)); err != nil {
		return nil, err
	}
	m, c := MeanAverageAndCount(ratings)
	ranked := make([]RankedEntity, 0, len(ratings))
	for _, r := range ratings {
		n := float64(r.Count)
		w := 0.0
		if n+c > 0 {
			w = n / (n + c)
		}
		ranked = append(ranked, RankedEntity{
			ID:    r.ID,
			Name:  r.Name,
			Score: int(math.Round(w*r.Average + (1-w)*m)),
			Count: r.Count,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if order == SortAsc {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
