package mediapick

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// verificationPromptTmpl instructs the oracle to judge whether the image
// actually depicts the event. The oracle must answer in strict JSON; the
// parser fills defensive defaults for anything malformed or missing.
const verificationPromptTmpl = `You are a fact-checking image editor for a history publication.
Judge whether this image is a correct illustration for the event below.

Event year: %d
Event: %s
Post text: %s
Image metadata: %s

Answer with a single JSON object, no other text:
{"verdict": "APPROVED" | "QUESTIONABLE" | "WRONG",
 "confidence": <0-100>,
 "reasoning": "<one sentence>",
 "visual_description": "<one sentence describing what the image shows>"}

APPROVED only when the image clearly depicts this event or its direct
subject. QUESTIONABLE when plausible but unverifiable. WRONG when the image
shows something else, a different era, or a different subject.`

// stylePromptTmpl asks for a visual style classification of the image.
const stylePromptTmpl = `Classify the visual style of this image.

Answer with a single JSON object, no other text:
{"type": "photograph" | "painting" | "engraving" | "illustration" | "document" | "map",
 "era": "<approximate period the image itself is from, e.g. 1960s>",
 "color_scheme": "black_and_white" | "sepia" | "muted_color" | "vivid_color"}`

// neutralStylePreference is the style score used when no engagement history
// exists for a style type.
const neutralStylePreference = 50

// Scorer wraps the external AI oracle with prompt construction, defensive
// response parsing, and learned style preference. Oracle failures never
// escape this boundary: a failed verification scores ERROR/0 and a failed
// style call yields an empty profile with the neutral preference.
type Scorer struct {
	oracle  Oracle
	log     *EngagementLog
	onPanic func(tag string, r any)
}

// NewScorer builds a scorer over the oracle and engagement history.
func NewScorer(oracle Oracle, log *EngagementLog) *Scorer {
	return &Scorer{oracle: oracle, log: log}
}

// Score runs verification and style classification for one candidate. The
// two oracle calls are independent and issued concurrently, then joined.
func (s *Scorer) Score(ctx context.Context, cand *Candidate, event Event, generatedText string) (VerificationResult, StyleProfile) {
	img := ImageInput{
		URL:      EncodeDataURL(cand.Data, DetectImageMIME(cand.Data)),
		MIMEType: DetectImageMIME(cand.Data),
	}

	var (
		wg    sync.WaitGroup
		verif VerificationResult
		style StyleProfile
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer s.recoverPanic("verify", &verif)
		verif = s.verify(ctx, img, cand, event, generatedText)
	}()
	go func() {
		defer wg.Done()
		defer s.recoverStylePanic(&style)
		style = s.classifyStyle(ctx, img)
	}()
	wg.Wait()

	style.PreferenceScore = s.stylePreference(ctx, style.Type)
	return verif, style
}

// recoverPanic converts a panicking verification goroutine into an ERROR
// result so one oracle call can never take down a selection.
func (s *Scorer) recoverPanic(tag string, verif *VerificationResult) {
	if r := recover(); r != nil {
		if s.onPanic != nil {
			s.onPanic(tag, r)
		}
		*verif = VerificationResult{Verdict: VerdictError}
	}
}

func (s *Scorer) recoverStylePanic(style *StyleProfile) {
	if r := recover(); r != nil {
		if s.onPanic != nil {
			s.onPanic("style", r)
		}
		*style = StyleProfile{}
	}
}

// verify asks the oracle whether the candidate depicts the event.
func (s *Scorer) verify(ctx context.Context, img ImageInput, cand *Candidate, event Event, generatedText string) VerificationResult {
	if s.oracle == nil {
		return VerificationResult{Verdict: VerdictError, Reasoning: "no oracle configured"}
	}

	metaSummary := ExtractCandidateMetadata(cand.Data).Summary()
	if metaSummary == "" {
		metaSummary = cand.Title
	}
	if metaSummary == "" {
		metaSummary = "(none)"
	}

	prompt := fmt.Sprintf(verificationPromptTmpl, event.Year, event.Description, generatedText, metaSummary)
	resp, err := s.oracle.Analyze(ctx, prompt, []ImageInput{img})
	if err != nil {
		slog.Debug("mediapick: verification oracle error", "source", cand.SourceName, "error", err.Error())
		return VerificationResult{Verdict: VerdictError}
	}
	return ParseVerificationResponse(resp)
}

// classifyStyle asks the oracle for the candidate's visual style.
func (s *Scorer) classifyStyle(ctx context.Context, img ImageInput) StyleProfile {
	if s.oracle == nil {
		return StyleProfile{}
	}
	resp, err := s.oracle.Analyze(ctx, stylePromptTmpl, []ImageInput{img})
	if err != nil {
		slog.Debug("mediapick: style oracle error", "error", err.Error())
		return StyleProfile{}
	}
	return ParseStyleResponse(resp)
}

// stylePreference maps historical engagement for a style type onto a 0-100
// score, neutral when there is no history yet.
func (s *Scorer) stylePreference(ctx context.Context, styleType string) int {
	if styleType == "" || s.log == nil {
		return neutralStylePreference
	}
	avg, ok := s.log.StyleAverage(ctx, styleType)
	if !ok {
		return neutralStylePreference
	}
	score := int(avg * engagementScale)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// verificationResponse is the wire shape of an oracle verification answer.
// Pointer fields distinguish missing from zero.
type verificationResponse struct {
	Verdict           *string `json:"verdict"`
	Confidence        *int    `json:"confidence"`
	Reasoning         *string `json:"reasoning"`
	VisualDescription *string `json:"visual_description"`
}

// ParseVerificationResponse extracts a VerificationResult from free-form
// oracle output. The oracle response shape is never trusted: missing or
// malformed fields coerce to QUESTIONABLE / 0 / empty.
func ParseVerificationResponse(resp string) VerificationResult {
	out := VerificationResult{Verdict: VerdictQuestionable}

	raw := extractJSONObject(resp)
	if raw == "" {
		return VerificationResult{Verdict: VerdictError}
	}
	var parsed verificationResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return VerificationResult{Verdict: VerdictError}
	}

	if parsed.Verdict != nil {
		out.Verdict = normalizeVerdict(*parsed.Verdict)
	}
	if parsed.Confidence != nil {
		out.Confidence = clampConfidence(*parsed.Confidence)
	}
	if parsed.Reasoning != nil {
		out.Reasoning = strings.TrimSpace(*parsed.Reasoning)
	}
	if parsed.VisualDescription != nil {
		out.VisualDescription = strings.TrimSpace(*parsed.VisualDescription)
	}
	return out
}

// styleResponse is the wire shape of an oracle style answer.
type styleResponse struct {
	Type        *string `json:"type"`
	Era         *string `json:"era"`
	ColorScheme *string `json:"color_scheme"`
}

// ParseStyleResponse extracts a StyleProfile from free-form oracle output,
// with empty-string defaults for anything missing.
func ParseStyleResponse(resp string) StyleProfile {
	var out StyleProfile

	raw := extractJSONObject(resp)
	if raw == "" {
		return out
	}
	var parsed styleResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return out
	}

	if parsed.Type != nil {
		out.Type = strings.ToLower(strings.TrimSpace(*parsed.Type))
	}
	if parsed.Era != nil {
		out.Era = strings.TrimSpace(*parsed.Era)
	}
	if parsed.ColorScheme != nil {
		out.ColorScheme = strings.ToLower(strings.TrimSpace(*parsed.ColorScheme))
	}
	return out
}

// normalizeVerdict maps an oracle verdict string onto the known set.
// Unknown verdicts are QUESTIONABLE, never APPROVED.
func normalizeVerdict(v string) Verdict {
	word := strings.ToUpper(strings.TrimSpace(v))
	switch {
	case strings.HasPrefix(word, "APPROVED"):
		return VerdictApproved
	case strings.HasPrefix(word, "WRONG"):
		return VerdictWrong
	case strings.HasPrefix(word, "ERROR"):
		return VerdictError
	default:
		return VerdictQuestionable
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// extractJSONObject pulls the first balanced {...} block out of an oracle
// response, tolerating markdown fences and prose around it.
func extractJSONObject(resp string) string {
	start := strings.IndexByte(resp, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(resp); i++ {
		c := resp[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return resp[start : i+1]
			}
		}
	}
	return ""
}
