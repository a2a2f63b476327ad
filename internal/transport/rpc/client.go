package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pollchat/pollchat/internal/chat"
)

// Client calls the chat procedures over HTTP JSON-RPC. Faults decode back
// into chat domain errors so callers can distinguish bad input from a store
// outage.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given /rpc endpoint URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage publishes a message and returns its assigned ID. A transport
// error here is ambiguous: the append may have committed even though the
// acknowledgment was lost.
func (c *Client) SendMessage(ctx context.Context, author, text, room string) (int64, error) {
	params := SendMessageParams{Author: author, Text: text, Room: room}

	var id int64
	if err := c.call(ctx, MethodSendMessage, params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetMessages fetches every message in room with ID greater than cursor,
// ascending by ID.
func (c *Client) GetMessages(ctx context.Context, cursor int64, room string) ([]chat.Message, error) {
	params := map[string]any{"cursor": cursor, "room": room}

	var payload []MessagePayload
	if err := c.call(ctx, MethodGetMessages, params, &payload); err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(payload))
	for _, p := range payload {
		sec := int64(p.Timestamp)
		nsec := int64((p.Timestamp - float64(sec)) * 1e9)
		messages = append(messages, chat.Message{
			ID:        p.ID,
			Room:      room,
			Author:    p.Author,
			Text:      p.Text,
			CreatedAt: time.Unix(sec, nsec),
		})
	}
	return messages, nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	id, err := json.Marshal(uuid.NewString())
	if err != nil {
		return fmt.Errorf("marshal request id: %w", err)
	}

	body, err := json.Marshal(Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *ErrorObject    `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.Error != nil {
		return faultToError(resp.Error)
	}

	if result != nil {
		if len(resp.Result) == 0 {
			return fmt.Errorf("rpc response for %s carries no result", method)
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

func faultToError(fault *ErrorObject) error {
	kind := ""
	if fault.Data != nil {
		kind = fault.Data.Kind
	}
	if kind == "" {
		return fmt.Errorf("rpc fault %d: %s", fault.Code, fault.Message)
	}
	return &chat.Error{Kind: kind, Message: fault.Message}
}
