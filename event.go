package mediapick

import "sort"

// Event is the historical fact being illustrated. Immutable, supplied by
// the caller.
type Event struct {
	Year        int
	Description string
}

// Verdict is the categorical oracle judgment of an image/event match.
type Verdict string

const (
	VerdictApproved     Verdict = "APPROVED"
	VerdictQuestionable Verdict = "QUESTIONABLE"
	VerdictWrong        Verdict = "WRONG"
	VerdictError        Verdict = "ERROR"
)

// Candidate is an unverified image fetched from one source for one event.
type Candidate struct {
	SourceName string
	Data       []byte

	// Source-supplied metadata.
	Title      string
	URL        string
	Date       string
	SearchTerm string

	// Filled by the quality filter.
	Width    int
	Height   int
	ByteSize int
}

// VerificationResult is the oracle's match judgment for one candidate.
type VerificationResult struct {
	Verdict           Verdict
	Confidence        int // 0-100
	Reasoning         string
	VisualDescription string
}

// StyleProfile classifies a candidate image visually. PreferenceScore is
// derived from historical engagement with the same style type; 0-100 with
// a neutral default when no history exists.
type StyleProfile struct {
	Type            string
	Era             string
	ColorScheme     string
	PreferenceScore int
}

// Combined-score weights: verification confidence dominates, learned style
// preference nudges the ranking.
const (
	confidenceWeight = 0.7
	styleWeight      = 0.3
)

// ScoredCandidate is a candidate plus its verification and style results.
type ScoredCandidate struct {
	Candidate    Candidate
	Verification VerificationResult
	Style        StyleProfile
}

// CombinedScore blends verification confidence with the learned style
// preference. It ranks candidates but never overrides a failing verdict.
func (s *ScoredCandidate) CombinedScore() float64 {
	return confidenceWeight*float64(s.Verification.Confidence) + styleWeight*float64(s.Style.PreferenceScore)
}

// rankCandidates sorts scored candidates by combined score descending.
// Ties break by declared source priority (lower registry index wins) so the
// final ranking is deterministic regardless of fetch completion order.
func rankCandidates(cands []ScoredCandidate, priorityIndex map[string]int) {
	sort.SliceStable(cands, func(i, j int) bool {
		si, sj := cands[i].CombinedScore(), cands[j].CombinedScore()
		if si != sj {
			return si > sj
		}
		return sourceRank(priorityIndex, cands[i].Candidate.SourceName) <
			sourceRank(priorityIndex, cands[j].Candidate.SourceName)
	})
}

// sourceRank returns the registry index for a source, or a rank past every
// registered source for names missing from the registry.
func sourceRank(priorityIndex map[string]int, name string) int {
	if idx, ok := priorityIndex[name]; ok {
		return idx
	}
	return len(priorityIndex)
}
