// Package priority maps qualitative importance labels to numeric weights.
package priority

import (
	"math"
	"strings"
)

// Level is the importance of one scoring dimension.
type Level string

const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

var weights = map[Level]float64{
	Low:      0.33,
	Medium:   0.66,
	High:     1.0,
	Critical: 1.5,
}

// Parse returns the level named by s. Matching ignores case and surrounding
// whitespace; anything unrecognized, including an empty string, is Medium.
func Parse(s string) Level {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := weights[level]; !ok {
		return Medium
	}
	return level
}

// Weight returns the raw weight of the level. Unknown values weigh as Medium.
func (l Level) Weight() float64 {
	if w, ok := weights[l]; ok {
		return w
	}
	return weights[Medium]
}

func (l Level) String() string {
	return string(Parse(string(l)))
}

// UnmarshalText lets decoders accept any label. It never fails.
func (l *Level) UnmarshalText(text []byte) error {
	*l = Parse(string(text))
	return nil
}

// Normalize scales the weights so they sum to 1. Negative and NaN weights
// count as zero. When nothing is left to divide by, every key gets an equal
// share.
func Normalize[K comparable](raw map[K]float64) map[K]float64 {
	normalized := make(map[K]float64, len(raw))
	if len(raw) == 0 {
		return normalized
	}

	total := 0.0
	for key, w := range raw {
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		normalized[key] = w
		total += w
	}

	if total == 0 || math.IsInf(total, 0) {
		share := 1 / float64(len(raw))
		for key := range normalized {
			normalized[key] = share
		}
		return normalized
	}

	for key, w := range normalized {
		normalized[key] = w / total
	}
	return normalized
}
