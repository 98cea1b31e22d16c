// Package agent runs the reasoning loop: a model decides which catalog tools
// to call, tools execute, and the gathered results feed a streamed final
// answer. Progress is reported through an Emitter so transports stay out of
// the loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cg-assist/backend/internal/catalog"
	"github.com/cg-assist/backend/internal/convo"
	"github.com/cg-assist/backend/internal/search"
	"github.com/cg-assist/backend/internal/tools"
)

// Config bounds a single run.
type Config struct {
	MaxIterations  int
	ToolTimeout    time.Duration
	OverallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 5
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = 2 * time.Minute
	}
	return c
}

// Presigner turns a stored thumbnail key into a fetchable URL.
type Presigner interface {
	PresignURL(ctx context.Context, key string) (string, error)
}

// Request is one user query to run.
type Request struct {
	ConversationID uuid.UUID // zero starts a new conversation
	UserID         string
	Query          string
	ImageBase64    string
}

// Loop owns the run machinery. Safe for concurrent use; each Run is
// independent.
type Loop struct {
	registry *tools.Registry
	gen      Generator
	store    convo.Store
	thumbs   Presigner
	log      *slog.Logger
	cfg      Config
}

// New creates a Loop. store and thumbs may be nil, which disables persistence
// and thumbnail events respectively.
func New(registry *tools.Registry, gen Generator, store convo.Store, thumbs Presigner, log *slog.Logger, cfg Config) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		registry: registry,
		gen:      gen,
		store:    store,
		thumbs:   thumbs,
		log:      log,
		cfg:      cfg.withDefaults(),
	}
}

type toolOutcome struct {
	call    ToolCall
	payload tools.Payload
	err     error
}

// Run executes one query end to end. Cancellation of ctx abandons the run
// without persisting anything; a failure before any answer persists only the
// user turn. Timeouts degrade to a partial answer rather than failing.
func (l *Loop) Run(ctx context.Context, req Request, emit Emitter) error {
	conversationID := req.ConversationID
	newConversation := conversationID == uuid.Nil
	if newConversation {
		conversationID = uuid.New()
	}

	history := l.loadHistory(ctx, conversationID, req.UserID, newConversation)
	log := l.log.With("conversation_id", conversationID.String())

	if err := emit(Event{Type: EventAgentStart, Data: map[string]any{
		"conversation_id": conversationID.String(),
		"max_iterations":  l.cfg.MaxIterations,
	}}); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, l.cfg.OverallTimeout)
	defer cancel()

	var (
		outcomes []toolOutcome
		records  []convo.ToolCallRecord
		partial  bool
	)

	descriptions := l.registry.Descriptions()

	// True until the loop reaches a natural stop: the model declares a final
	// answer, or a tool returns data. Exhausting the iteration budget or a
	// timeout leaves it set, which marks the answer best-effort.
	exhausted := true

reasoning:
	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if runCtx.Err() != nil {
			break
		}

		prompt := buildReasoningPrompt(req.Query, history, outcomes, iteration, l.cfg.MaxIterations, descriptions, req.ImageBase64 != "")
		decision, err := l.gen.Generate(runCtx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if runCtx.Err() != nil {
				break
			}
			return l.fail(ctx, conversationID, req, emit, fmt.Errorf("reasoning failed: %w", err))
		}

		calls := parseToolCalls(decision)
		if len(calls) == 0 || hasFinalAnswer(decision) {
			exhausted = false
			break
		}

		for i := range calls {
			if calls[i].Tool == tools.NameImageSearch {
				if calls[i].Args == nil {
					calls[i].Args = tools.Args{}
				}
				calls[i].Args["image_base64"] = req.ImageBase64
			}
		}

		for _, call := range calls {
			if err := emit(Event{Type: EventToolCall, Data: map[string]any{
				"tool": call.Tool,
				"args": redactArgs(call.Args),
			}}); err != nil {
				return err
			}
		}

		batch := l.execute(runCtx, calls)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// One ranked, deduplicated view across the whole deciding step, so a
		// file matched by two strategies reaches the client once, with its
		// best-scored occurrence.
		merged := mergeResults(batch)
		l.presign(runCtx, merged)
		ranked := make(map[int64]catalog.SearchResult, len(merged))
		for _, r := range merged {
			ranked[r.FileID] = r
		}

		gotData := false
		delivered := make(map[int64]bool, len(merged))
		for _, o := range batch {
			if err := l.report(o, ranked, delivered, emit); err != nil {
				return err
			}
			records = append(records, record(o))
			if o.err == nil && o.payload.Count() > 0 {
				gotData = true
			}
		}
		outcomes = append(outcomes, batch...)

		if gotData {
			exhausted = false
			break reasoning
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if exhausted {
		partial = true
	}

	if err := emit(Event{Type: EventAnswerStart, Data: map[string]any{}}); err != nil {
		return err
	}

	var answer strings.Builder
	streamErr := l.gen.GenerateStream(runCtx, buildAnswerPrompt(req.Query, history, outcomes), func(chunk string) error {
		answer.WriteString(chunk)
		return emit(Event{Type: EventAnswerChunk, Data: map[string]any{"text": chunk}})
	})
	if streamErr != nil {
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case runCtx.Err() != nil:
			partial = true
			log.Warn("answer truncated by deadline")
		case answer.Len() == 0:
			return l.fail(ctx, conversationID, req, emit, fmt.Errorf("answer generation failed: %w", streamErr))
		default:
			partial = true
			log.Warn("answer stream broke, keeping partial text", "error", streamErr)
		}
	}

	if err := emit(Event{Type: EventAnswerEnd, Data: map[string]any{}}); err != nil {
		return err
	}

	messageCount := len(history)
	if l.store != nil {
		now := time.Now().UTC()
		if err := l.store.AppendTurn(ctx, conversationID, req.UserID, convo.Turn{
			Role: convo.RoleUser, Content: req.Query, Timestamp: now,
		}); err != nil {
			log.Error("failed to persist user turn", "error", err)
		} else if err := l.store.AppendTurn(ctx, conversationID, req.UserID, convo.Turn{
			Role: convo.RoleAssistant, Content: answer.String(), ToolCalls: records, Timestamp: now,
		}); err != nil {
			log.Error("failed to persist assistant turn", "error", err)
		} else {
			messageCount += 2
		}
	}

	return emit(Event{Type: EventDone, Data: map[string]any{
		"conversation_id": conversationID.String(),
		"message_count":   messageCount,
		"partial":         partial,
	}})
}

// execute fans the calls out concurrently, each under its own timeout, and
// joins before returning so outcomes stay in call order.
func (l *Loop) execute(ctx context.Context, calls []ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			toolCtx, cancel := context.WithTimeout(ctx, l.cfg.ToolTimeout)
			defer cancel()
			payload, err := l.registry.Invoke(toolCtx, call.Tool, call.Args)
			outcomes[i] = toolOutcome{call: call, payload: payload, err: err}
		}(i, call)
	}
	wg.Wait()
	return outcomes
}

// mergeResults folds the outcomes' result payloads into one ranked sequence,
// deduplicated by file identity.
func mergeResults(outcomes []toolOutcome) []catalog.SearchResult {
	var lists [][]catalog.SearchResult
	for _, o := range outcomes {
		if o.err == nil && len(o.payload.Results) > 0 {
			lists = append(lists, o.payload.Results)
		}
	}
	return search.Merge(0, lists...)
}

// report emits the tool_result event and, for results carrying thumbnails,
// one thumbnail event each. Each result is replaced by its merged occurrence
// from ranked, and files an earlier tool in the same batch already delivered
// are skipped.
func (l *Loop) report(o toolOutcome, ranked map[int64]catalog.SearchResult, delivered map[int64]bool, emit Emitter) error {
	if o.err != nil {
		l.log.Warn("tool failed", "tool", o.call.Tool, "error", o.err)
		return emit(Event{Type: EventToolResult, Data: map[string]any{
			"tool":  o.call.Tool,
			"count": 0,
			"error": o.err.Error(),
		}})
	}

	data := map[string]any{
		"tool":  o.call.Tool,
		"count": o.payload.Count(),
	}
	var results []catalog.SearchResult
	if o.payload.Results != nil {
		results = make([]catalog.SearchResult, 0, len(o.payload.Results))
		for _, r := range o.payload.Results {
			if delivered[r.FileID] {
				continue
			}
			delivered[r.FileID] = true
			results = append(results, ranked[r.FileID])
		}
		data["count"] = len(results)
		data["results"] = results
	}
	if o.payload.Stats != nil {
		data["stats"] = o.payload.Stats
	}
	if o.payload.Detail != nil {
		data["detail"] = o.payload.Detail
	}
	if err := emit(Event{Type: EventToolResult, Data: data}); err != nil {
		return err
	}

	for _, r := range results {
		if r.ThumbnailURL == "" {
			continue
		}
		if err := emit(Event{Type: EventThumbnail, Data: map[string]any{
			"file_id":       r.FileID,
			"file_name":     r.FileName,
			"thumbnail_url": r.ThumbnailURL,
		}}); err != nil {
			return err
		}
	}
	return nil
}

// presign fills ThumbnailURL in place for results that have a stored key.
// Presign failures drop the thumbnail, never the result.
func (l *Loop) presign(ctx context.Context, results []catalog.SearchResult) {
	if l.thumbs == nil {
		return
	}
	for i := range results {
		if results[i].ThumbnailPath == "" {
			continue
		}
		url, err := l.thumbs.PresignURL(ctx, results[i].ThumbnailPath)
		if err != nil {
			l.log.Debug("thumbnail presign failed", "file_id", results[i].FileID, "error", err)
			continue
		}
		results[i].ThumbnailURL = url
	}
}

// fail emits the terminal error event and persists only the user turn, so a
// retry sees the query but no fabricated answer.
func (l *Loop) fail(ctx context.Context, conversationID uuid.UUID, req Request, emit Emitter, cause error) error {
	l.log.Error("run failed", "conversation_id", conversationID.String(), "error", cause)
	if l.store != nil {
		if err := l.store.AppendTurn(ctx, conversationID, req.UserID, convo.Turn{
			Role: convo.RoleUser, Content: req.Query, Timestamp: time.Now().UTC(),
		}); err != nil {
			l.log.Error("failed to persist user turn", "error", err)
		}
	}
	if err := emit(Event{Type: EventError, Data: map[string]any{"message": cause.Error()}}); err != nil {
		return err
	}
	return cause
}

func (l *Loop) loadHistory(ctx context.Context, conversationID uuid.UUID, userID string, newConversation bool) []convo.Turn {
	if l.store == nil || newConversation {
		return nil
	}
	conv, err := l.store.Get(ctx, conversationID, userID)
	if errors.Is(err, convo.ErrNotFound) {
		return nil
	}
	if err != nil {
		l.log.Warn("failed to load history", "conversation_id", conversationID.String(), "error", err)
		return nil
	}
	return conv.Turns
}

func record(o toolOutcome) convo.ToolCallRecord {
	rec := convo.ToolCallRecord{
		Tool:        o.call.Tool,
		Args:        redactArgs(o.call.Args),
		ResultCount: o.payload.Count(),
	}
	if o.err != nil {
		rec.Error = o.err.Error()
	}
	return rec
}
