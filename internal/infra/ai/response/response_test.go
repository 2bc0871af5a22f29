package response

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

const samplePayload = `{
  "summary": {"verdict": "concerning", "score": 42, "oneLineSummary": "High sugar, artificial dye"},
  "healthImpact": {
    "positives": ["Low fat"],
    "concerns": ["Added sugar", "Red 40 {synthetic dye}"],
    "tradeoffs": ["Tasty but frequent use adds up"]
  },
  "reasoningSteps": [
    {"step": 1, "thought": "Check sweeteners", "evidence": ["Sugar listed first"], "conclusion": "Sugar dominant"}
  ],
  "personalizedAdvice": {"relevant": true, "specificConcerns": ["weight-loss goal"], "alternatives": ["Unsweetened version"], "whyRelevant": "Sugar works against weight loss"},
  "ingredients": [{"name": "Sugar", "category": "sweetener", "analysis": "Primary ingredient"}]
}`

func TestCandidatesBalancedThenGreedy(t *testing.T) {
	text := `Here you go: {"a": "x } y", "b": {"c": 1}} trailing {note}`

	got := Candidates(text)

	require.Len(t, got, 2)
	assert.Equal(t, `{"a": "x } y", "b": {"c": 1}}`, got[0])
	assert.Equal(t, `{"a": "x } y", "b": {"c": 1}} trailing {note}`, got[1])
}

func TestCandidatesNone(t *testing.T) {
	assert.Empty(t, Candidates("no braces at all"))
	assert.Empty(t, Candidates("only closing }"))
}

func TestCandidatesUnclosedUsesGreedySpan(t *testing.T) {
	got := Candidates(`{"a": {"b": 1} }`)
	require.Len(t, got, 1)

	got = Candidates(`{"a": {"b": 1}`)
	require.Len(t, got, 1)
	assert.Equal(t, `{"a": {"b": 1}`, got[0])
}

func TestParseAnalysisMatchesDecodedJSON(t *testing.T) {
	var want AnalysisPayload
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &want))

	replies := map[string]string{
		"bare":       samplePayload,
		"fenced":     "```json\n" + samplePayload + "\n```",
		"prose":      "Sure! Here is the analysis you asked for:\n" + samplePayload + "\nLet me know if you need more.",
		"fenced+tail": "```\n" + samplePayload + "\n```\nNote: values are estimates {approx}.",
	}
	p := NewParser(false, nil)
	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			got, err := p.ParseAnalysis(reply)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAnalysisOrFallbackOnUnusableReplies(t *testing.T) {
	replies := []string{
		"",
		"I could not read the label, sorry.",
		`{"summary": {"verdict": "healthy", "score": }`,
		"```json\n{broken\n```",
	}
	p := NewParser(false, nil)
	for _, reply := range replies {
		res, err := p.AnalysisOrFallback(reply)
		require.Error(t, err, reply)
		assert.Equal(t, failure.KindParse, failure.KindOf(err))
		assert.Equal(t, domain.VerdictModerate, res.Verdict)
		assert.Equal(t, 50, res.Score)
		assert.Len(t, res.ReasoningSteps, 1)
		assert.True(t, res.Fallback)
		assert.True(t, res.PersonalizedAdvice.Relevant)
		assert.Equal(t, reply, res.RawResponse)
	}
}

func TestFallbackEvidenceIsCapped(t *testing.T) {
	long := strings.Repeat("é", 500)

	res := Fallback(long)

	require.Len(t, res.ReasoningSteps[0].Evidence, 1)
	assert.Equal(t, 200, len([]rune(res.ReasoningSteps[0].Evidence[0])))
}

func TestPayloadResultDefaults(t *testing.T) {
	p := NewParser(false, nil)

	res, err := p.AnalysisOrFallback(`{"summary": {"verdict": "EXCELLENT"}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictModerate, res.Verdict)
	assert.Equal(t, 50, res.Score)
	assert.NotNil(t, res.Positives)
	assert.NotNil(t, res.Ingredients)
	assert.False(t, res.Fallback)

	res, err = p.AnalysisOrFallback(`{"summary": {"verdict": " Avoid ", "score": 140}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictAvoid, res.Verdict)
	assert.Equal(t, 100, res.Score)

	res, err = p.AnalysisOrFallback(`{"summary": {"verdict": "healthy", "score": 72.6}, "reasoningSteps": [{"thought": "a"}, {"thought": "b"}]}`)
	require.NoError(t, err)
	assert.Equal(t, 73, res.Score)
	assert.Equal(t, 1, res.ReasoningSteps[0].Step)
	assert.Equal(t, 2, res.ReasoningSteps[1].Step)
}

func TestRepairModeRecoversTrailingCommas(t *testing.T) {
	reply := `Result: {"summary": {"verdict": "healthy", "score": 90,},}`

	_, err := NewParser(false, nil).ParseAnalysis(reply)
	require.Error(t, err)

	got, err := NewParser(true, nil).ParseAnalysis(reply)
	require.NoError(t, err)
	assert.Equal(t, "healthy", got.Summary.Verdict)
	assert.Equal(t, Score{Value: 90, Set: true}, got.Summary.Score)
}

func TestFenceMarkersInsideStringsSurvive(t *testing.T) {
	p := NewParser(false, nil)
	payload := `{"summary": {"verdict": "healthy", "score": 80, "oneLineSummary": "use ` + "```json fences```" + ` {x}"}}`

	for _, reply := range []string{payload, "Sure!\n```json\n" + payload + "\n```"} {
		res, err := p.AnalysisOrFallback(reply)
		require.NoError(t, err)
		assert.Equal(t, "use ```json fences``` {x}", res.OneLineSummary)
		assert.False(t, res.Fallback)
	}
}

func TestLenientScoreKeepsRestOfAnalysis(t *testing.T) {
	p := NewParser(false, nil)
	cases := map[string]int{
		`"85"`:     85,
		`" 61.4 "`: 61,
		`"high"`:   50,
		`null`:     50,
		`true`:     50,
		`{"v": 1}`: 50,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			reply := "Sure! ```json\n{\"summary\": {\"verdict\": \"healthy\", \"score\": " + raw + "}}\n```"
			res, err := p.AnalysisOrFallback(reply)
			require.NoError(t, err)
			assert.Equal(t, domain.VerdictHealthy, res.Verdict)
			assert.Equal(t, want, res.Score)
			assert.False(t, res.Fallback)
		})
	}
}

func TestParseIntent(t *testing.T) {
	p := NewParser(false, nil)

	in, err := p.ParseIntent("```json\n{\"primaryGoal\": \"weight-loss\", \"confidence\": 1.4, \"reasoning\": \"mentions calories\", \"suggestedActions\": [\"compare\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "weight-loss", in.PrimaryGoal)
	assert.Equal(t, 1.0, in.Confidence)
	assert.Equal(t, []string{"compare"}, in.SuggestedActions)

	_, err = p.ParseIntent(`{"confidence": 0.9}`)
	assert.ErrorIs(t, err, ErrNoGoal)

	_, err = p.ParseIntent("not json")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseChat(t *testing.T) {
	p := NewParser(false, nil)

	reply, err := p.ParseChat("Red 40 is a synthetic dye. Small amounts are generally considered safe.")
	require.NoError(t, err)
	assert.Equal(t, "Red 40 is a synthetic dye. Small amounts are generally considered safe.", reply.Message)
	assert.Equal(t, DefaultReasoning(), reply.Reasoning)

	reply, err = p.ParseChat(`{"message": "Try plain oats.", "reasoning": {"visible": true, "steps": ["Compared sugar"], "confidence": 0.7}}`)
	require.NoError(t, err)
	assert.Equal(t, "Try plain oats.", reply.Message)
	assert.Equal(t, []string{"Compared sugar"}, reply.Reasoning.Steps)
	assert.Equal(t, 0.7, reply.Reasoning.Confidence)

	reply, err = p.ParseChat("  ")
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.NotEmpty(t, reply.Message)
}
