// Package match builds the reference index from the deal and alignment
// tables and evaluates candidate leads against it.
package match

import (
	"math"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var jaro = metrics.NewJaro()

// Ratio scores the similarity of two normalized strings on a 0-100
// scale. Blank input never matches anything, including another blank.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return int(math.Round(strutil.Similarity(a, b, jaro) * 100))
}
