package quality

import (
	"math"
	"strings"
)

const (
	bleuMaxOrder = 4
	// smoothingEpsilon replaces zero n-gram precision numerators.
	smoothingEpsilon = 0.1
)

// SentenceBLEU scores a generated text against one reference text.
// Both are whitespace tokenized. Weights are uniform over 1..4-grams,
// zero precisions are smoothed to epsilon/denominator and a brevity
// penalty applies. No unigram overlap scores 0.
func SentenceBLEU(reference, hypothesis string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)
	if len(hyp) == 0 {
		return 0
	}

	var logSum float64
	for n := 1; n <= bleuMaxOrder; n++ {
		num, den := clippedPrecision(ref, hyp, n)
		if n == 1 && num == 0 {
			return 0
		}
		p := float64(num) / float64(den)
		if num == 0 {
			p = smoothingEpsilon / float64(den)
		}
		logSum += math.Log(p) / bleuMaxOrder
	}

	return brevityPenalty(len(ref), len(hyp)) * math.Exp(logSum)
}

// clippedPrecision returns the clipped n-gram match count and max(1, hypothesis n-gram count).
func clippedPrecision(ref, hyp []string, n int) (num, den int) {
	hypCounts := ngramCounts(hyp, n)
	refCounts := ngramCounts(ref, n)

	total := 0
	for gram, c := range hypCounts {
		total += c
		num += min(c, refCounts[gram])
	}
	return num, max(1, total)
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

func brevityPenalty(refLen, hypLen int) float64 {
	switch {
	case hypLen > refLen:
		return 1
	case hypLen == 0:
		return 0
	default:
		return math.Exp(1 - float64(refLen)/float64(hypLen))
	}
}
