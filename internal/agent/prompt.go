package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cg-assist/backend/internal/convo"
	"github.com/cg-assist/backend/internal/tools"
)

// ToolCall is one parsed tool request from a reasoning response.
type ToolCall struct {
	Tool string
	Args tools.Args
}

// historyDepth bounds how many prior turns reach the reasoning prompt.
const historyDepth = 5

// buildReasoningPrompt assembles the decision prompt: tool catalog, trimmed
// history, prior tool outcomes, and the iteration counter so the model knows
// how much budget remains.
func buildReasoningPrompt(query string, history []convo.Turn, outcomes []toolOutcome, iteration, maxIterations int, descriptions []string, imageAttached bool) string {
	var b strings.Builder

	b.WriteString("You are an assistant helping artists find CG production assets. ")
	b.WriteString("You have tools to search a catalog of Blender files, images, videos, and audio.\n\n")

	b.WriteString("Available tools:\n")
	for _, desc := range descriptions {
		b.WriteString("- ")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	b.WriteString("\nDecide which tool(s) to call. Format each call as:\n")
	b.WriteString("Thought: [your reasoning]\n")
	b.WriteString("Action: [tool name]\n")
	b.WriteString("Action Input: {\"arg\": \"value\"}\n\n")
	b.WriteString("If you already have enough information, respond with:\n")
	b.WriteString("Thought: I have sufficient information to answer\n")
	b.WriteString("Final Answer: [your answer]\n\n")

	writeHistory(&b, history, historyDepth)
	writeOutcomes(&b, outcomes)

	if imageAttached {
		b.WriteString("The user attached an image to this query.\n")
	}
	fmt.Fprintf(&b, "User query: %s\n", query)
	fmt.Fprintf(&b, "Iteration: %d/%d\n", iteration+1, maxIterations)

	return b.String()
}

// buildAnswerPrompt assembles the final response prompt from everything the
// tools gathered.
func buildAnswerPrompt(query string, history []convo.Turn, outcomes []toolOutcome) string {
	var b strings.Builder

	b.WriteString("You are an assistant for CG production asset management. ")
	b.WriteString("Answer the user's query concisely using the information gathered below. ")
	b.WriteString("Mention file names and paths where relevant. If nothing was found, say so plainly.\n\n")

	writeHistory(&b, history, 3)

	b.WriteString("Information gathered:\n")
	if len(outcomes) == 0 {
		b.WriteString("(no tool results)\n")
	}

	// Search results are listed once across all tools, deduplicated and
	// ranked, so a file two strategies agreed on is not presented twice.
	merged := mergeResults(outcomes)
	if len(merged) > 0 {
		fmt.Fprintf(&b, "Found %d distinct files, best matches first:\n", len(merged))
		for i, r := range merged {
			if i >= 8 {
				break
			}
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", r.FileName, r.FileType, r.Show, r.FilePath)
		}
	}

	for _, o := range outcomes {
		if o.err != nil {
			fmt.Fprintf(&b, "Tool %s failed: %v\n", o.call.Tool, o.err)
			continue
		}
		switch {
		case o.payload.Stats != nil:
			encoded, _ := json.Marshal(o.payload.Stats)
			fmt.Fprintf(&b, "Stats from %s: %s\n", o.call.Tool, encoded)
		case o.payload.Detail != nil:
			encoded, _ := json.Marshal(o.payload.Detail)
			fmt.Fprintf(&b, "Details from %s: %s\n", o.call.Tool, encoded)
		}
	}

	fmt.Fprintf(&b, "\nUser query: %s\n", query)
	return b.String()
}

func writeHistory(b *strings.Builder, history []convo.Turn, depth int) {
	if len(history) == 0 {
		return
	}
	if len(history) > depth {
		history = history[len(history)-depth:]
	}
	b.WriteString("Previous conversation:\n")
	for _, turn := range history {
		fmt.Fprintf(b, "%s: %s\n", turn.Role, turn.Content)
	}
	b.WriteString("\n")
}

func writeOutcomes(b *strings.Builder, outcomes []toolOutcome) {
	if len(outcomes) == 0 {
		return
	}
	b.WriteString("Previous tool results:\n")
	for _, o := range outcomes {
		args, _ := json.Marshal(redactArgs(o.call.Args))
		fmt.Fprintf(b, "Tool: %s\nArgs: %s\n", o.call.Tool, args)
		if o.err != nil {
			fmt.Fprintf(b, "Failed: %v\n", o.err)
		} else {
			fmt.Fprintf(b, "Found %d results\n", o.payload.Count())
			if len(o.payload.Results) > 0 {
				fmt.Fprintf(b, "Sample: %s\n", o.payload.Results[0].FileName)
			}
		}
		b.WriteString("\n")
	}
}

// parseToolCalls extracts tool requests from a reasoning response. A call is
// an "Action:" line immediately followed by an "Action Input:" line carrying
// JSON args. Lines that fail to parse are skipped rather than aborting the
// iteration.
func parseToolCalls(response string) []ToolCall {
	var calls []ToolCall
	lines := strings.Split(response, "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Action:") {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(line, "Action:"))
		if name == "" || i+1 >= len(lines) {
			continue
		}
		next := strings.TrimSpace(lines[i+1])
		if !strings.HasPrefix(next, "Action Input:") {
			continue
		}
		input := strings.TrimSpace(strings.TrimPrefix(next, "Action Input:"))

		args := tools.Args{}
		if input != "" && input != "{}" {
			if err := json.Unmarshal([]byte(input), &args); err != nil {
				continue
			}
		}
		calls = append(calls, ToolCall{Tool: name, Args: args})
	}
	return calls
}

// hasFinalAnswer reports whether the model declared it is done reasoning.
func hasFinalAnswer(response string) bool {
	return strings.Contains(response, "Final Answer:")
}

// redactArgs strips bulky binary arguments before they reach events, prompts,
// or persisted history.
func redactArgs(args tools.Args) tools.Args {
	if _, ok := args["image_base64"]; !ok {
		return args
	}
	out := make(tools.Args, len(args))
	for k, v := range args {
		out[k] = v
	}
	out["image_base64"] = "<attached image>"
	return out
}
