package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/design-coach/internal/llm"
	"github.com/jonathan/design-coach/internal/llm/llmtest"
	"github.com/jonathan/design-coach/internal/types"
)

const topic = "Design a URL Shortener"

var reference = []string{"Load Balancer", "API Server", "Database", "Cache"}

func replying(body string) *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateJSONFunc: func(context.Context, llm.Request) (string, error) { return body, nil },
	}
}

func failing() *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateJSONFunc: func(context.Context, llm.Request) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}
}

func TestCoverage_EmptyReference(t *testing.T) {
	client := replying(`{"matched": ["x"]}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Coverage(context.Background(), KindGeneral, nil, []string{"anything"}, nil)
	assert.Equal(t, []string{}, got.Matched)
	assert.Equal(t, []string{}, got.Missed)
	assert.Empty(t, client.Requests())
}

func TestCoverage_NoClientMissesEverything(t *testing.T) {
	r := NewReviewer(nil, llm.TierStandard, nil)
	assert.False(t, r.Enabled())

	got := r.Coverage(context.Background(), KindDiagram, reference, []string{"Cache"}, nil)
	assert.Equal(t, []string{}, got.Matched)
	assert.Equal(t, reference, got.Missed)
}

func TestCoverage_ModelFailureMissesEverything(t *testing.T) {
	r := NewReviewer(failing(), llm.TierStandard, nil)

	got := r.Coverage(context.Background(), KindGeneral, reference, []string{"Cache"}, nil)
	assert.Equal(t, []string{}, got.Matched)
	assert.Equal(t, reference, got.Missed)
}

func TestCoverage_SanitizesModelAnswer(t *testing.T) {
	client := replying(`{"matched": ["Cache", "Redis", " Database "], "missed": ["Cache", "Load Balancer"]}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Coverage(context.Background(), KindDiagram, reference, []string{"Redis", "Postgres"}, nil)
	assert.Equal(t, []string{"Cache", "Database"}, got.Matched)
	assert.Equal(t, []string{"Load Balancer", "API Server"}, got.Missed)

	requests := client.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].System, "architecture diagram")
	assert.Contains(t, requests[0].Prompt, "- Redis\n- Postgres")
	assert.Equal(t, llm.TierStandard, requests[0].Tier)
}

func TestCoverage_SchemaIncludesAPIDesign(t *testing.T) {
	client := replying(`{"matched": [], "missed": []}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	r.Coverage(context.Background(), KindSchema, []string{"Users (id)"}, nil, []string{"POST /users"})
	r.Coverage(context.Background(), KindGeneral, []string{"Users (id)"}, nil, []string{"POST /users"})

	requests := client.Requests()
	require.Len(t, requests, 2)
	assert.Contains(t, requests[0].Prompt, "API design (for context):\n- POST /users")
	assert.Contains(t, requests[0].Prompt, "(none)")
	assert.NotContains(t, requests[1].Prompt, "POST /users")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		matched []string
		missed  []string
		want    Coverage
	}{
		{
			name: "model forgot everything",
			want: Coverage{Matched: []string{}, Missed: reference},
		},
		{
			name:    "matched wins over missed",
			matched: []string{"Database"},
			missed:  []string{"Database", "Cache"},
			want:    Coverage{Matched: []string{"Database"}, Missed: []string{"Cache", "Load Balancer", "API Server"}},
		},
		{
			name:    "inexact strings dropped",
			matched: []string{"database", "DB"},
			want:    Coverage{Matched: []string{}, Missed: reference},
		},
		{
			name:    "duplicates collapse",
			matched: []string{"Cache", "Cache"},
			missed:  []string{"API Server", "API Server"},
			want:    Coverage{Matched: []string{"Cache"}, Missed: []string{"API Server", "Load Balancer", "Database"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(reference, tt.matched, tt.missed)
			assert.Equal(t, tt.want, got)
			assert.Len(t, append(got.Matched, got.Missed...), len(reference))
		})
	}
}

func TestCalculations_EmptyInputSkipsModel(t *testing.T) {
	client := replying(`{"feedback": []}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	assert.Equal(t, []types.LineFeedback{}, r.Calculations(context.Background(), topic, []string{"  ", ""}))
	assert.Empty(t, client.Requests())
}

func TestCalculations_NoClient(t *testing.T) {
	r := NewReviewer(nil, llm.TierStandard, nil)

	got := r.Calculations(context.Background(), topic, []string{" DAU = 100M "})
	require.Len(t, got, 1)
	assert.Equal(t, types.LineFeedback{UserLine: "DAU = 100M", Reasonable: true, Comment: CalculationsStubComment}, got[0])
}

func TestCalculations_AlignsModelFeedback(t *testing.T) {
	client := replying(`{"feedback": [
		{"userLine": "QPS = 100M / 86400 = 1157", "reasonable": true, "comment": "  "},
		{"userLine": "DAU = 100M", "reasonable": false, "comment": "Too high for a new product."},
		{"userLine": "Storage = 1 PB", "reasonable": "yes", "comment": "ignored"},
		"not an object"
	]}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Calculations(context.Background(), topic, []string{
		"DAU = 100M",
		"QPS = 100M / 86400 = 1157",
		"Storage = 1 PB",
		"Bandwidth = 10 Gbps",
	})

	assert.Equal(t, []types.LineFeedback{
		{UserLine: "DAU = 100M", Reasonable: false, Comment: "Too high for a new product."},
		{UserLine: "QPS = 100M / 86400 = 1157", Reasonable: true, Comment: EmptyComment},
		{UserLine: "Storage = 1 PB", Reasonable: true, Comment: NoFeedbackComment},
		{UserLine: "Bandwidth = 10 Gbps", Reasonable: true, Comment: NoFeedbackComment},
	}, got)
}

func TestCalculations_FeedbackNotAList(t *testing.T) {
	r := NewReviewer(replying(`{"feedback": "fine"}`), llm.TierStandard, nil)

	got := r.Calculations(context.Background(), topic, []string{"DAU = 1M"})
	require.Len(t, got, 1)
	assert.Equal(t, CalculationsStubComment, got[0].Comment)
}

func TestSchema(t *testing.T) {
	client := replying(`{
		"feedback": [{"userLine": "Users (email, name)", "reasonable": false, "comment": "Missing explicit primary key: add user_id."}],
		"suggestedMissingTables": ["Clicks (id, shortCode, timestamp)", " "]
	}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Schema(context.Background(), topic, []string{"Users (email, name)", "Urls (code)"}, []string{"GET /:code"})
	assert.Equal(t, []types.LineFeedback{
		{UserLine: "Users (email, name)", Reasonable: false, Comment: "Missing explicit primary key: add user_id."},
		{UserLine: "Urls (code)", Reasonable: true, Comment: NoFeedbackComment},
	}, got.Feedback)
	assert.Equal(t, []string{"Clicks (id, shortCode, timestamp)"}, got.SuggestedMissingTables)
	assert.Contains(t, client.Requests()[0].Prompt, "- GET /:code")
}

func TestSchema_Fallbacks(t *testing.T) {
	empty := NewReviewer(nil, llm.TierStandard, nil).Schema(context.Background(), topic, nil, nil)
	assert.Equal(t, []types.LineFeedback{}, empty.Feedback)
	assert.Equal(t, []string{}, empty.SuggestedMissingTables)

	got := NewReviewer(failing(), llm.TierStandard, nil).Schema(context.Background(), topic, []string{"Users (id)"}, nil)
	require.Len(t, got.Feedback, 1)
	assert.Equal(t, SchemaStubComment, got.Feedback[0].Comment)
	assert.Equal(t, []string{}, got.SuggestedMissingTables)
}

func TestFlow(t *testing.T) {
	client := replying(`{"correct": true, "feedback": "Covers the read path.", "improvements": "Mention cache misses."}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Flow(context.Background(), topic, "Client -> LB -> API -> Cache", []string{"Client", "Cache"})
	assert.Equal(t, types.FlowResponse{Correct: true, Feedback: "Covers the read path.", Improvements: "Mention cache misses."}, got)
	assert.Contains(t, client.Requests()[0].Prompt, "- Client\n- Cache")
}

func TestFlow_Fallbacks(t *testing.T) {
	client := replying(`{"correct": true}`)
	r := NewReviewer(client, llm.TierStandard, nil)

	got := r.Flow(context.Background(), topic, "   ", nil)
	assert.Equal(t, types.FlowResponse{Feedback: EmptyFlowFeedback}, got)
	assert.Empty(t, client.Requests())

	got = NewReviewer(nil, llm.TierStandard, nil).Flow(context.Background(), topic, "Client -> API", nil)
	assert.False(t, got.Correct)
	assert.Equal(t, FlowStubFeedback, got.Feedback)

	got = NewReviewer(replying(`{"correct": "yes"}`), llm.TierStandard, nil).Flow(context.Background(), topic, "Client -> API", nil)
	assert.False(t, got.Correct)
}

func TestDeepDives(t *testing.T) {
	client := replying(`{
		"items": [
			{"topic": "caching", "suggestedSummary": "Use a read-through cache.", "feedback": "Good start."},
			{"topic": "Unknown", "feedback": "ignored"}
		],
		"suggestedMissingTopics": ["Sharding", "Caching", "Rate limiting", "sharding", "Analytics", "Security"]
	}`)
	r := NewReviewer(client, llm.TierAdvanced, nil)

	got := r.DeepDives(context.Background(), topic, []types.DeepDiveInput{
		{Topic: " Caching ", UserSummary: "Redis in front of the DB"},
		{Topic: "  ", UserSummary: "dropped"},
		{Topic: "Key generation"},
	})

	assert.Equal(t, []types.DeepDiveResult{
		{Topic: "Caching", SuggestedSummary: "Use a read-through cache.", Feedback: "Good start."},
		{Topic: "Key generation", Feedback: NoDeepDiveFeedback},
	}, got.Items)
	assert.Equal(t, []string{"Sharding", "Rate limiting", "Analytics"}, got.SuggestedMissingTopics)
	assert.Contains(t, client.Requests()[0].Prompt, "- Key generation: (no summary)")
}

func TestDeepDives_NoClient(t *testing.T) {
	r := NewReviewer(nil, llm.TierAdvanced, nil)

	got := r.DeepDives(context.Background(), topic, []types.DeepDiveInput{{Topic: "Caching"}, {Topic: ""}})
	assert.Equal(t, []types.DeepDiveResult{{Topic: "Caching", Feedback: DeepDiveStubFeedback}}, got.Items)
	assert.Equal(t, []string{}, got.SuggestedMissingTopics)

	empty := r.DeepDives(context.Background(), topic, nil)
	assert.Equal(t, []types.DeepDiveResult{}, empty.Items)
}

func TestDetailedDiagram(t *testing.T) {
	client := replying(`{"feedback": "Missing the cache.", "improvements": "Add Redis.", "suggested_diagram": "client -> api\napi -> redis"}`)
	r := NewReviewer(client, llm.TierAdvanced, nil)

	got := r.DetailedDiagram(context.Background(), Design{
		Topic:        topic,
		Components:   []string{"Client", "API"},
		Requirements: types.RequirementsSummary{Functional: []string{"Shorten"}, NonFunctional: []string{}},
		APIDesign:    []types.APIDesignRow{{API: "POST /shorten", Request: "{url}", Response: "{code}"}, {API: " "}},
		DeepDives:    []types.DeepDive{{Topic: "Caching", UserSummary: "Redis"}},
	})

	assert.Equal(t, types.DetailedDiagramResponse{
		Feedback:         "Missing the cache.",
		Improvements:     "Add Redis.",
		SuggestedDiagram: "client -> api\napi -> redis",
	}, got)

	prompt := client.Requests()[0].Prompt
	assert.Contains(t, prompt, "- POST /shorten | request: {url} | response: {code}")
	assert.Contains(t, prompt, "- Caching: Redis")
	assert.Contains(t, prompt, "End-to-end flow:\n(none)")
}

func TestDetailedDiagram_Fallback(t *testing.T) {
	got := NewReviewer(failing(), llm.TierAdvanced, nil).DetailedDiagram(context.Background(), Design{Topic: topic})
	assert.Equal(t, DetailedStubFeedback, got.Feedback)
	assert.Empty(t, got.SuggestedDiagramPNG)
}
