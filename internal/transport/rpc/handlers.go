package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pollchat/pollchat/internal/chat"
)

// Handlers dispatches JSON-RPC calls to the message log. It holds no state
// of its own; one instance safely serves many concurrent calls.
type Handlers struct {
	chatLog *chat.Log
	log     *zerolog.Logger
}

// NewHandlers creates the RPC method dispatcher.
func NewHandlers(chatLog *chat.Log, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		chatLog: chatLog,
		log:     logger,
	}
}

// Call handles POST /rpc. Malformed envelopes fault before reaching the
// message log; domain errors translate to faults carrying their kind.
func (h *Handlers) Call(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusOK, faultResponse(nil, CodeParseError, "failed to read request body", ""))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusOK, faultResponse(nil, CodeParseError, "invalid JSON", ""))
		return
	}

	if req.JSONRPC != Version || req.Method == "" {
		c.JSON(http.StatusOK, faultResponse(req.ID, CodeInvalidRequest, "not a valid JSON-RPC 2.0 request", ""))
		return
	}

	switch req.Method {
	case MethodSendMessage:
		c.JSON(http.StatusOK, h.sendMessage(c, req))
	case MethodGetMessages:
		c.JSON(http.StatusOK, h.getMessages(c, req))
	default:
		c.JSON(http.StatusOK, faultResponse(req.ID, CodeMethodNotFound, "unknown method: "+req.Method, ""))
	}
}

func (h *Handlers) sendMessage(c *gin.Context, req Request) Response {
	var params SendMessageParams
	if err := decodeParams(req.Params, &params); err != nil {
		return faultResponse(req.ID, CodeInvalidParams, "send_message expects {author, text, room}", "")
	}

	id, err := h.chatLog.Append(c.Request.Context(), params.Author, params.Text, params.Room)
	if err != nil {
		h.log.Warn().Err(err).Str("method", MethodSendMessage).Msg("call failed")
		return faultFromError(req.ID, err)
	}

	return resultResponse(req.ID, id)
}

func (h *Handlers) getMessages(c *gin.Context, req Request) Response {
	var params GetMessagesParams
	if err := decodeParams(req.Params, &params); err != nil {
		return faultResponse(req.ID, CodeInvalidParams, "get_messages expects {cursor, room}", "")
	}

	messages, err := h.chatLog.PollSince(c.Request.Context(), params.CursorValue(), params.Room)
	if err != nil {
		h.log.Warn().Err(err).Str("method", MethodGetMessages).Msg("call failed")
		return faultFromError(req.ID, err)
	}

	payload := make([]MessagePayload, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, MessagePayload{
			ID:        msg.ID,
			Author:    msg.Author,
			Text:      msg.Text,
			Timestamp: float64(msg.CreatedAt.UnixMicro()) / 1e6,
		})
	}

	return resultResponse(req.ID, payload)
}

// decodeParams type-checks call arguments: unknown fields are tolerated but
// type mismatches fault.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	return dec.Decode(dst)
}

func readBody(c *gin.Context) ([]byte, error) {
	defer c.Request.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(c.Request.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resultResponse(id json.RawMessage, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return faultResponse(id, CodeInternalError, "failed to encode result", "")
	}
	return Response{JSONRPC: Version, ID: normalizeID(id), Result: raw}
}

func faultResponse(id json.RawMessage, code int, message, kind string) Response {
	fault := &ErrorObject{Code: code, Message: message}
	if kind != "" {
		fault.Data = &ErrorData{Kind: kind}
	}
	return Response{JSONRPC: Version, ID: normalizeID(id), Error: fault}
}

// faultFromError translates a message log error into a protocol fault. The
// service never recovers errors, only translates them.
func faultFromError(id json.RawMessage, err error) Response {
	switch chat.Kind(err) {
	case chat.KindInvalidArgument:
		return faultResponse(id, CodeInvalidParams, err.Error(), chat.KindInvalidArgument)
	case chat.KindStoreUnavailable:
		return faultResponse(id, CodeStoreUnavailable, err.Error(), chat.KindStoreUnavailable)
	default:
		return faultResponse(id, CodeInternalError, err.Error(), "")
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
