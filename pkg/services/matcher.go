package services

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/kerbaras/otakulog/pkg/sources"
)

// similarityThreshold is the minimum bigram similarity for a candidate to be
// accepted without an exact native-title match.
const similarityThreshold = 0.9

// MatchTarget is the entry we are trying to find in the external catalog.
type MatchTarget struct {
	Title       string
	NativeTitle string
}

// MatchCandidate picks the external record for target among candidates,
// which arrive in the catalog's ranking order:
//
//  1. a single candidate is returned as-is, no scoring;
//  2. with a native title, an exact match against any candidate's native
//     alt-titles wins outright, scanned in order;
//  3. otherwise the first candidate scoring above the threshold wins; first
//     over threshold rather than best overall, so the external ranking
//     breaks ties;
//  4. failing all that, the first candidate is returned. That fallback is a
//     deliberate heuristic; callers depend on it being deterministic.
//
// ok is false only when candidates is empty.
func MatchCandidate(target MatchTarget, candidates []sources.Candidate) (match sources.Candidate, ok bool) {
	if len(candidates) == 0 {
		return sources.Candidate{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	if target.NativeTitle != "" {
		for _, c := range candidates {
			for _, alt := range c.NativeAltTitles {
				if alt == target.NativeTitle {
					return c, true
				}
			}
		}
	}

	for _, c := range candidates {
		if candidateScore(target, c) > similarityThreshold {
			return c, true
		}
	}

	return candidates[0], true
}

// candidateScore compares the native title against the candidate's native
// alt-titles when available, else the primary title against the candidate's
// title, and returns the best score.
func candidateScore(target MatchTarget, c sources.Candidate) float64 {
	if target.NativeTitle != "" {
		best := 0.0
		for _, alt := range c.NativeAltTitles {
			if s := similarity(target.NativeTitle, alt); s > best {
				best = s
			}
		}
		return best
	}
	return similarity(target.Title, c.Title)
}

func similarity(a, b string) float64 {
	dice := metrics.NewSorensenDice()
	dice.CaseSensitive = false
	dice.NgramSize = 2
	return strutil.Similarity(strings.TrimSpace(a), strings.TrimSpace(b), dice)
}
