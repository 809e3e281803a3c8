package flow

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/tool"
)

// FunctionExecutor executes a batch of tool calls, possibly in parallel, and
// emits one function response event per call through the emit callback.
// Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and emit error events)
//   - Emit exactly one function response event per incoming call
//   - Apply ToolContext accumulated actions to emitted events
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agent FlowAgent, toolRegistry map[string]tool.Tool, fnCalls []core.FunctionCall, emit func(core.Event) error)
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int  // 0 or <1 means no explicit limit
	PreserveOrder  bool // buffer results and emit in original call order
	LogStartEvents bool // log a start line per function
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs an executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	agent FlowAgent,
	toolRegistry map[string]tool.Tool,
	fnCalls []core.FunctionCall,
	emit func(core.Event) error,
) {
	n := len(fnCalls)
	if n == 0 {
		return
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		ev := e.call(runCtx, agent, toolRegistry, fnCalls[0])
		if err := emit(ev); err != nil {
			runCtx.LogError("agent.function.emit_failed", "function", fnCalls[0].Name, "error", err.Error())
		}

		return
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.Event, n) // used only if PreserveOrder
	var mu sync.Mutex                // serializes unordered emits & results writes
	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()

	for i := range fnCalls {
		if runCtx.Context.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			if runCtx.Context.Err() != nil {
				return
			}

			ev := e.call(runCtx, agent, toolRegistry, fc)

			mu.Lock()
			defer mu.Unlock()

			if e.cfg.PreserveOrder {
				results[idx] = ev
			} else if err := emit(ev); err != nil {
				runCtx.LogError("agent.function.emit_failed", "function", fc.Name, "error", err.Error())
			}
		}(i, fnCalls[i])
	}

	wg.Wait()

	if e.cfg.PreserveOrder {
		for i := 0; i < n; i++ {
			ev := results[i]
			if ev.ID == "" { // skipped due to cancellation
				continue
			}

			if err := emit(ev); err != nil {
				runCtx.LogError("agent.function.emit_failed", "function", fnCalls[i].Name, "error", err.Error())
			}
		}
	}

	runCtx.LogDebug(
		"agent.functions.batch_complete",
		"agent", agent.GetName(),
		"count", n,
		"parallelism", maxPar,
		"preserve_order", e.cfg.PreserveOrder,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
}

// call runs one tool invocation end to end and returns its response event
// with the tool's accumulated actions applied.
func (e *parallelFunctionExecutor) call(runCtx *core.RunContext, agent FlowAgent, toolRegistry map[string]tool.Tool, fc core.FunctionCall) core.Event {
	toolCtx := core.NewToolContext(runCtx, fc.ID)

	if e.cfg.LogStartEvents {
		runCtx.LogInfo("agent.function.start", "agent", agent.GetName(), "function", fc.Name, "function_call_id", fc.ID)
	}

	start := time.Now()
	result, err := e.invoke(runCtx, agent, toolRegistry, toolCtx, fc)
	dur := time.Since(start)

	runCtx.LogInfo(
		"agent.function.executed",
		"agent", agent.GetName(),
		"function", fc.Name,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	respEv := core.NewFunctionResponseEvent(agent.GetName(), fc.ID, fc.Name, result, err)
	toolCtx.InternalApplyActions(&respEv)

	return respEv
}

// invoke resolves and runs the tool, firing the before/after tool callbacks
// around the call. Panics are converted to errors.
func (e *parallelFunctionExecutor) invoke(runCtx *core.RunContext, agent FlowAgent, toolRegistry map[string]tool.Tool, toolCtx *core.ToolContext, fc core.FunctionCall) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			runCtx.LogError("agent.function.panic", "agent", agent.GetName(), "function", fc.Name, "recover", r)
		}
	}()

	impl, ok := toolRegistry[fc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	args, err := decodeArguments(fc.Arguments)
	if err != nil {
		return nil, err
	}

	cc := &core.CallbackContext{AgentName: agent.GetName(), ToolName: fc.Name, ToolArgs: args}
	if cbErr := runCtx.FireCallbacks(core.CallbackBeforeTool, cc); cbErr != nil {
		return nil, cbErr
	}

	result, err = impl.Call(toolCtx, args)

	cc.ToolResponse = result
	if cbErr := runCtx.FireCallbacks(core.CallbackAfterTool, cc); cbErr != nil {
		runCtx.LogWarn("agent.function.callback.after_tool", "function", fc.Name, "error", cbErr.Error())
	}

	return result, err
}

// panicError wraps a recovered panic value, capturing the stack at the
// recovery site.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// decodeArguments parses the serialized tool arguments. An empty payload maps
// to an empty argument set.
func decodeArguments(args string) (map[string]any, error) {
	if args == "" {
		return map[string]any{}, nil
	}

	var argMap map[string]any
	if err := json.Unmarshal([]byte(args), &argMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}

	return argMap, nil
}
