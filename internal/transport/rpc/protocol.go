package rpc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// JSON-RPC 2.0 envelope types for the two chat procedures.

const Version = "2.0"

// Standard JSON-RPC error codes, plus an implementation-defined code for
// store failures.
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeStoreUnavailable = -32000
)

const (
	MethodSendMessage = "send_message"
	MethodGetMessages = "get_messages"
)

// Request is an incoming JSON-RPC call envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC result or fault envelope. Result is
// pre-marshaled so an empty message list still serializes as [] rather than
// being dropped by omitempty.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is a protocol-level fault carrying the error kind and message.
type ErrorObject struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the domain error kind inside a fault.
type ErrorData struct {
	Kind string `json:"kind"`
}

// SendMessageParams are the arguments of send_message.
type SendMessageParams struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Room   string `json:"room,omitempty"`
}

// GetMessagesParams are the arguments of get_messages. Cursor is kept raw so
// a malformed value degrades to 0 instead of faulting.
type GetMessagesParams struct {
	Cursor json.RawMessage `json:"cursor,omitempty"`
	Room   string          `json:"room,omitempty"`
}

// CursorValue parses the raw cursor leniently: JSON numbers and numeric
// strings are accepted, anything else means "from the beginning".
func (p GetMessagesParams) CursorValue() int64 {
	raw := strings.TrimSpace(string(p.Cursor))
	if raw == "" || raw == "null" {
		return 0
	}

	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(p.Cursor, &s); err != nil {
			return 0
		}
		raw = strings.TrimSpace(s)
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f)
	}
	return 0
}

// MessagePayload is one message in a get_messages result. Timestamp is
// seconds since epoch as a real number.
type MessagePayload struct {
	ID        int64   `json:"id"`
	Author    string  `json:"author"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}
