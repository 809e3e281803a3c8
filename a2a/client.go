package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/agentgrid/relay/logging"
)

// AgentCardPath is the well-known location of an agent's descriptor.
const AgentCardPath = "/.well-known/agent.json"

const methodMessageSend = "message/send"

// Client sends messages to one remote agent. SendMessage blocks until the
// remote returns the full task (terminal or input_required) or a direct
// reply message; it never yields a partial stream.
type Client interface {
	SendMessage(ctx context.Context, params MessageSendParams) (*SendMessageResult, error)
}

// ClientOptions configure an HTTPClient.
type ClientOptions struct {
	// HTTPClient is the underlying transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives request/response diagnostics.
	Logger logging.Logger
}

// HTTPClient talks to a remote agent over JSON-RPC 2.0 on HTTP.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	logger  logging.Logger
}

// NewHTTPClient creates a client for the agent served at baseURL.
func NewHTTPClient(baseURL string, optFns ...func(o *ClientOptions)) *HTTPClient {
	opts := ClientOptions{
		HTTPClient: http.DefaultClient,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   opts.HTTPClient,
		logger:  opts.Logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// RPCError is a JSON-RPC error object returned by the remote agent.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// SendMessage implements Client.
func (c *HTTPClient) SendMessage(ctx context.Context, params MessageSendParams) (*SendMessageResult, error) {
	var result SendMessageResult
	if err := c.call(ctx, methodMessageSend, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("a2a.client.request", "url", c.baseURL, "method", method)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("%s: empty result", method)
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}

	return nil
}

// CardResolverOptions configure a CardResolver.
type CardResolverOptions struct {
	// HTTPClient is the underlying transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives fetch diagnostics.
	Logger logging.Logger
}

// CardResolver fetches agent descriptors from their well-known path.
type CardResolver struct {
	httpc  *http.Client
	logger logging.Logger
}

// NewCardResolver creates a resolver.
func NewCardResolver(optFns ...func(o *CardResolverOptions)) *CardResolver {
	opts := CardResolverOptions{
		HTTPClient: http.DefaultClient,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &CardResolver{httpc: opts.HTTPClient, logger: opts.Logger}
}

// Resolve fetches the agent card served at baseURL.
func (r *CardResolver) Resolve(ctx context.Context, baseURL string) (*AgentCard, error) {
	url := strings.TrimRight(baseURL, "/") + AgentCardPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build card request: %w", err)
	}

	r.logger.Debug("a2a.card.fetch", "url", url)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch agent card %s: unexpected status %d", url, resp.StatusCode)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decode agent card %s: %w", url, err)
	}

	return &card, nil
}

var _ Client = (*HTTPClient)(nil)
