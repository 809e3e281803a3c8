package flow

// SingleAgentFlow executes a standalone agent: default processors resolve
// instructions and assemble conversation contents, then model events relay
// straight through.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a flow with the default processor chain.
func NewSingleAgentFlow(agent FlowAgent, optFns ...func(o *Options)) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent, optFns...)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())

	return &SingleAgentFlow{BaseFlow: baseFlow}
}
