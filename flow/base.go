package flow

import (
	"fmt"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/model"
)

// Options configures optional BaseFlow behavior.
type Options struct {
	// Executor runs tool call batches. Defaults to a parallel executor that
	// preserves call order.
	Executor FunctionExecutor
}

// BaseFlow implements the model/tool loop for a single agent with pluggable
// request and response processors.
type BaseFlow struct {
	agent              FlowAgent
	executor           FunctionExecutor
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
}

// NewBaseFlow creates a flow around the given agent.
func NewBaseFlow(agent FlowAgent, optFns ...func(o *Options)) *BaseFlow {
	opts := Options{
		Executor: NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &BaseFlow{
		agent:              agent,
		executor:           opts.Executor,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
	}
}

// AddRequestProcessor appends a request processor; registration order defines
// execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed after each model
// chunk.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// Execute launches the turn loop asynchronously. Events stream on the first
// channel, unrecoverable errors on the second; both close when the run ends.
// The error return covers setup failures only.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error) {
	if f.agent.GetLLM() == nil {
		return nil, nil, fmt.Errorf("agent %s has no model configured", f.agent.GetName())
	}

	events := make(chan core.Event, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		for {
			last := f.runTurn(runCtx, events, errs)
			if last == nil {
				return
			}

			if last.IsFinalResponse() {
				return
			}

			// Escalation hands control back to the caller instead of
			// scheduling another model pass.
			if last.Actions.Escalate != nil && *last.Actions.Escalate {
				return
			}

			if len(last.GetFunctionResponses()) > 0 {
				continue
			}

			if last.IsPartial() {
				runCtx.LogWarn("flow.turn.partial_tail", "agent", f.agent.GetName())
			}

			return
		}
	}()

	return events, errs, nil
}

// runTurn performs one model pass including any requested tool executions and
// returns the last emitted event. A nil return ends the loop.
func (f *BaseFlow) runTurn(runCtx *core.RunContext, events chan<- core.Event, errs chan<- error) *core.Event {
	// Pick up events appended by the runner since the previous pass so the
	// request processors see tool responses and earlier turns.
	if runCtx.SessionStore != nil {
		if err := runCtx.RefreshSession(); err != nil {
			runCtx.LogWarn("flow.session.refresh_failed", "agent", f.agent.GetName(), "error", err.Error())
		}
	}

	if err := runCtx.Limiter.Increment(); err != nil {
		f.fail(runCtx, errs, err)
		return nil
	}

	req := new(model.Request)

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			f.fail(runCtx, errs, fmt.Errorf("request processor %s: %w", processor.Name(), err))
			return nil
		}
	}

	if tools := f.agent.GetTools(); f.agent.IsFunctionCallingEnabled() && len(tools) > 0 {
		defs := make([]model.ToolDefinition, 0, len(tools))
		for _, t := range tools {
			defs = append(defs, model.ToolDefinition{
				Type: "function",
				Function: model.FunctionDefinition{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}

		req.Tools = defs
	}

	req.Stream = f.agent.IsStreamingEnabled()

	if err := runCtx.FireCallbacks(core.CallbackBeforeModel, &core.CallbackContext{
		AgentName:    f.agent.GetName(),
		ModelRequest: req,
	}); err != nil {
		f.fail(runCtx, errs, err)
		return nil
	}

	respCh, errCh := f.agent.GetLLM().Generate(runCtx.Context, *req)

	var lastEvent *core.Event

	for resp := range respCh {
		for _, processor := range f.responseProcessors {
			if err := processor.ProcessResponse(runCtx, &resp, f.agent); err != nil {
				f.fail(runCtx, errs, fmt.Errorf("response processor %s: %w", processor.Name(), err))
				return nil
			}
		}

		ev := f.eventFromResponse(runCtx, resp)

		if !resp.Partial {
			if err := runCtx.FireCallbacks(core.CallbackAfterModel, &core.CallbackContext{
				AgentName:     f.agent.GetName(),
				ModelResponse: &resp,
			}); err != nil {
				runCtx.LogWarn("flow.callback.after_model", "agent", f.agent.GetName(), "error", err.Error())
			}
		}

		lastEvent = &ev

		if err := send(runCtx, events, ev); err != nil {
			return lastEvent
		}

		// Non-partial events are persisted by the runner before the flow
		// moves on.
		if !ev.IsPartial() {
			if err := runCtx.WaitForResume(); err != nil {
				return lastEvent
			}
		}

		if fnCalls := ev.GetFunctionCalls(); len(fnCalls) > 0 {
			merged, ok := f.runFunctions(runCtx, fnCalls)
			if !ok {
				return lastEvent
			}

			lastEvent = &merged

			if err := send(runCtx, events, merged); err != nil {
				return lastEvent
			}

			if err := runCtx.WaitForResume(); err != nil {
				return lastEvent
			}
		}
	}

	if err, ok := <-errCh; ok && err != nil {
		f.fail(runCtx, errs, fmt.Errorf("model generate: %w", err))
		return nil
	}

	return lastEvent
}

// eventFromResponse converts a model response into an event authored by the
// agent. Final responses without pending tool calls complete the turn and,
// when an output key is configured, stage the response text into session
// state.
func (f *BaseFlow) eventFromResponse(runCtx *core.RunContext, resp model.Response) core.Event {
	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())

	content := resp.Content
	partial := resp.Partial
	ev.Content = &content
	ev.Partial = &partial

	if !partial && len(ev.GetFunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete

		if key := f.agent.GetOutputKey(); key != "" {
			if text := content.Text(); text != "" {
				if ev.Actions.StateDelta == nil {
					ev.Actions.StateDelta = map[string]any{}
				}

				ev.Actions.StateDelta[key] = text
			}
		}
	}

	return ev
}

// runFunctions executes a tool batch and folds the per-call response events
// into a single merged event so the next model pass sees the whole batch at
// once. ok is false when no call produced an event (cancellation).
func (f *BaseFlow) runFunctions(runCtx *core.RunContext, fnCalls []core.FunctionCall) (core.Event, bool) {
	buffered := make([]core.Event, 0, len(fnCalls))
	collect := func(ev core.Event) error {
		buffered = append(buffered, ev)
		return nil
	}

	f.executor.Execute(runCtx, f.agent, f.agent.GetTools(), fnCalls, collect)

	if len(buffered) == 0 {
		return core.Event{}, false
	}

	return mergeFunctionEvents(runCtx.RunID, f.agent.GetName(), buffered), true
}

// fail logs and reports an unrecoverable error. The error channel is buffered
// so the send never blocks.
func (f *BaseFlow) fail(runCtx *core.RunContext, errs chan<- error, err error) {
	runCtx.LogError("flow.turn.failed", "agent", f.agent.GetName(), "error", err.Error())
	errs <- err
}

func send(runCtx *core.RunContext, events chan<- core.Event, ev core.Event) error {
	select {
	case <-runCtx.Context.Done():
		return runCtx.Context.Err()
	case events <- ev:
		return nil
	}
}

// mergeFunctionEvents combines per-call function response events into a
// single tool event, preserving part order and folding actions together.
func mergeFunctionEvents(invocationID, author string, events []core.Event) core.Event {
	merged := core.NewEvent(invocationID, author)
	content := core.Content{Role: "tool"}

	for _, ev := range events {
		if ev.Content != nil {
			content.Parts = append(content.Parts, ev.Content.Parts...)
		}

		mergeEventActions(&merged.Actions, ev.Actions)
	}

	merged.Content = &content

	return merged
}

// mergeEventActions folds src into dst. Map entries overwrite on key
// collision; pointer flags adopt the last non-nil value.
func mergeEventActions(dst *core.EventActions, src core.EventActions) {
	if len(src.StateDelta) > 0 {
		if dst.StateDelta == nil {
			dst.StateDelta = map[string]any{}
		}

		for k, v := range src.StateDelta {
			dst.StateDelta[k] = v
		}
	}

	if len(src.ArtifactDelta) > 0 {
		if dst.ArtifactDelta == nil {
			dst.ArtifactDelta = map[string]int{}
		}

		for k, v := range src.ArtifactDelta {
			dst.ArtifactDelta[k] = v
		}
	}

	if src.SkipSummarization != nil {
		dst.SkipSummarization = src.SkipSummarization
	}

	if src.Escalate != nil {
		dst.Escalate = src.Escalate
	}
}
