package agent

import (
	"strings"
	"testing"

	"github.com/cg-assist/backend/internal/catalog"
	"github.com/cg-assist/backend/internal/convo"
	"github.com/cg-assist/backend/internal/tools"
)

func TestParseToolCalls(t *testing.T) {
	t.Run("single call", func(t *testing.T) {
		calls := parseToolCalls("Thought: search for dragons\nAction: keyword_search\nAction Input: {\"query\": \"dragon\", \"limit\": 5}\n")
		if len(calls) != 1 {
			t.Fatalf("parseToolCalls() returned %d calls, want 1", len(calls))
		}
		if calls[0].Tool != "keyword_search" {
			t.Errorf("tool = %q, want keyword_search", calls[0].Tool)
		}
		if calls[0].Args["query"] != "dragon" {
			t.Errorf("query arg = %v", calls[0].Args["query"])
		}
		if calls[0].Args["limit"] != float64(5) {
			t.Errorf("limit arg = %v", calls[0].Args["limit"])
		}
	})

	t.Run("multiple calls", func(t *testing.T) {
		response := strings.Join([]string{
			"Thought: try both spaces",
			"Action: search_by_metadata_embedding",
			`Action Input: {"query": "castle"}`,
			"Action: search_by_visual_embedding",
			`Action Input: {"description": "castle on a hill"}`,
		}, "\n")
		calls := parseToolCalls(response)
		if len(calls) != 2 {
			t.Fatalf("parseToolCalls() returned %d calls, want 2", len(calls))
		}
		if calls[1].Tool != "search_by_visual_embedding" {
			t.Errorf("second tool = %q", calls[1].Tool)
		}
	})

	t.Run("malformed json is skipped", func(t *testing.T) {
		response := "Action: keyword_search\nAction Input: {not json}\nAction: analytics_query\nAction Input: {}"
		calls := parseToolCalls(response)
		if len(calls) != 1 {
			t.Fatalf("parseToolCalls() returned %d calls, want 1", len(calls))
		}
		if calls[0].Tool != "analytics_query" {
			t.Errorf("surviving tool = %q", calls[0].Tool)
		}
	})

	t.Run("action without input is skipped", func(t *testing.T) {
		if calls := parseToolCalls("Action: keyword_search\nThought: hmm"); len(calls) != 0 {
			t.Errorf("parseToolCalls() returned %d calls, want 0", len(calls))
		}
	})

	t.Run("empty args", func(t *testing.T) {
		calls := parseToolCalls("Action: analytics_query\nAction Input: {}")
		if len(calls) != 1 {
			t.Fatalf("parseToolCalls() returned %d calls, want 1", len(calls))
		}
		if calls[0].Args == nil {
			t.Error("args should be an empty map, not nil")
		}
	})

	t.Run("no calls in plain answer", func(t *testing.T) {
		if calls := parseToolCalls("Thought: I have sufficient information to answer\nFinal Answer: nothing found"); len(calls) != 0 {
			t.Errorf("parseToolCalls() returned %d calls, want 0", len(calls))
		}
	})
}

func TestHasFinalAnswer(t *testing.T) {
	if !hasFinalAnswer("Thought: done\nFinal Answer: here you go") {
		t.Error("hasFinalAnswer() = false, want true")
	}
	if hasFinalAnswer("Action: keyword_search\nAction Input: {}") {
		t.Error("hasFinalAnswer() = true, want false")
	}
}

func TestRedactArgs(t *testing.T) {
	args := map[string]any{"image_base64": "aGVsbG8=", "limit": 5}
	redacted := redactArgs(args)
	if redacted["image_base64"] != "<attached image>" {
		t.Errorf("image_base64 = %v, want placeholder", redacted["image_base64"])
	}
	if args["image_base64"] != "aGVsbG8=" {
		t.Error("redactArgs() mutated the original map")
	}
	if redacted["limit"] != 5 {
		t.Errorf("limit = %v, want 5", redacted["limit"])
	}
}

func TestBuildReasoningPrompt(t *testing.T) {
	history := []convo.Turn{
		{Role: convo.RoleUser, Content: "find dragons"},
		{Role: convo.RoleAssistant, Content: "found 3 dragon files"},
	}
	descriptions := []string{"keyword_search: substring match"}

	prompt := buildReasoningPrompt("more like those", history, nil, 1, 5, descriptions, true)

	for _, want := range []string{
		"keyword_search: substring match",
		"user: find dragons",
		"assistant: found 3 dragon files",
		"The user attached an image",
		"User query: more like those",
		"Iteration: 2/5",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildAnswerPromptMergesResults(t *testing.T) {
	sim := func(v float64) *float64 { return &v }
	outcomes := []toolOutcome{
		{
			call: ToolCall{Tool: "semantic"},
			payload: tools.Payload{Results: []catalog.SearchResult{
				{FileID: 1, FileName: "dragon.png", Similarity: sim(0.5)},
			}},
		},
		{
			call: ToolCall{Tool: "visual"},
			payload: tools.Payload{Results: []catalog.SearchResult{
				{FileID: 1, FileName: "dragon.png", Similarity: sim(0.9)},
				{FileID: 2, FileName: "castle.png", Similarity: sim(0.8)},
			}},
		},
	}

	prompt := buildAnswerPrompt("dragons", nil, outcomes)

	if !strings.Contains(prompt, "Found 2 distinct files") {
		t.Errorf("prompt missing the merged count:\n%s", prompt)
	}
	if n := strings.Count(prompt, "dragon.png"); n != 1 {
		t.Errorf("dragon.png listed %d times, want once", n)
	}
}

func TestBuildReasoningPromptTruncatesHistory(t *testing.T) {
	var history []convo.Turn
	for i := 0; i < 10; i++ {
		history = append(history, convo.Turn{Role: convo.RoleUser, Content: "turn"})
	}
	history[0].Content = "the very first turn"

	prompt := buildReasoningPrompt("q", history, nil, 0, 5, nil, false)
	if strings.Contains(prompt, "the very first turn") {
		t.Error("prompt includes history beyond the depth limit")
	}
}
