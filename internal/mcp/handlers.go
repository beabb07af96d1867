package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// FeedRef addresses a feed in every feed_* request.
type FeedRef struct {
	Group string `json:"group"`
	User  string `json:"user"`
}

// ListRequest represents the arguments for feed_list.
type ListRequest struct {
	FeedRef
	Page        int      `json:"page,omitempty"`
	Per         int      `json:"per,omitempty"`
	IDLT        string   `json:"id_lt,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Offset      int      `json:"offset,omitempty"`
	Includes    []string `json:"includes,omitempty"`
	Blocked     []int64  `json:"blocked,omitempty"`
	SFW         bool     `json:"sfw,omitempty"`
	Ranking     string   `json:"ranking,omitempty"`
	MarkReadAll bool     `json:"mark_read_all,omitempty"`
	MarkRead    []string `json:"mark_read,omitempty"`
	MarkSeenAll bool     `json:"mark_seen_all,omitempty"`
	MarkSeen    []string `json:"mark_seen,omitempty"`
	Render      string   `json:"render,omitempty"`
}

// ActivityRequest represents the arguments for feed_add and feed_update.
type ActivityRequest struct {
	FeedRef
	Activity map[string]any `json:"activity"`
}

// RemoveRequest represents the arguments for feed_remove.
type RemoveRequest struct {
	FeedRef
	ForeignID string `json:"foreign_id"`
}

// KindRequest represents the arguments for feed_kind.
type KindRequest struct {
	FeedRef
	Kind string `json:"kind"`
}

// ObjectPutRequest represents the arguments for object_put.
type ObjectPutRequest struct {
	Ref  string         `json:"ref"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler implementations

// HandleList handles the feed_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListFeed(ctx, h.deps, ops.ListFeedInput{
		Group:       input.Group,
		User:        input.User,
		Page:        input.Page,
		Per:         input.Per,
		IDLT:        input.IDLT,
		Limit:       input.Limit,
		Offset:      input.Offset,
		Includes:    input.Includes,
		Blocked:     input.Blocked,
		SFW:         input.SFW,
		Ranking:     input.Ranking,
		MarkReadAll: input.MarkReadAll,
		MarkRead:    input.MarkRead,
		MarkSeenAll: input.MarkSeenAll,
		MarkSeen:    input.MarkSeen,
		Render:      input.Render,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleAdd handles the feed_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ActivityRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddActivity(ctx, h.deps, ops.AddActivityInput{
		Group:    input.Group,
		User:     input.User,
		Activity: input.Activity,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the feed_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ActivityRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateActivity(ctx, h.deps, ops.UpdateActivityInput{
		Group:    input.Group,
		User:     input.User,
		Activity: input.Activity,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRemove handles the feed_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemoveActivity(ctx, h.deps, ops.RemoveActivityInput{
		Group:     input.Group,
		User:      input.User,
		ForeignID: input.ForeignID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleKind handles the feed_kind tool call.
func (h *Handlers) HandleKind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[KindRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetFeedKind(ctx, h.deps, ops.SetFeedKindInput{
		Group: input.Group,
		User:  input.User,
		Kind:  input.Kind,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleObjectPut handles the object_put tool call.
func (h *Handlers) HandleObjectPut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ObjectPutRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.PutObject(ctx, h.deps, ops.PutObjectInput{
		Ref:  input.Ref,
		Data: input.Data,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := errors.As(err); ok {
		msg := fErr.Message
		// Keep context added by wrapping, e.g. "items[2]: ..."
		if prefix := strings.TrimSuffix(err.Error(), fErr.Error()); prefix != err.Error() {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": msg,
			"status":  fErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		if fErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
