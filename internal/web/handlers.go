package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/feedq/internal/errors"
	"github.com/hpungsan/feedq/internal/ops"
)

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	deps    ops.Deps
	version string
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": h.version})
}

// HandleList handles GET /feeds/{group}/{user}/activities.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input, err := parseListInput(r)
	if err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.ListFeed(r.Context(), h.deps, input)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAdd handles POST /feeds/{group}/{user}/activities.
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(w, r, &fields); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.AddActivity(r.Context(), h.deps, ops.AddActivityInput{
		Group:    r.PathValue("group"),
		User:     r.PathValue("user"),
		Activity: fields,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleUpdate handles PUT /feeds/{group}/{user}/activities. The activity is
// addressed by foreign id and time.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(w, r, &fields); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.UpdateActivity(r.Context(), h.deps, ops.UpdateActivityInput{
		Group:    r.PathValue("group"),
		User:     r.PathValue("user"),
		Activity: fields,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleRemove handles DELETE /feeds/{group}/{user}/activities/{foreign_id}.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	result, err := ops.RemoveActivity(r.Context(), h.deps, ops.RemoveActivityInput{
		Group:     r.PathValue("group"),
		User:      r.PathValue("user"),
		ForeignID: r.PathValue("foreign_id"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleKind handles PUT /feeds/{group}/{user}/kind with body {"kind": "..."}.
func (h *Handlers) HandleKind(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind string `json:"kind"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.SetFeedKind(r.Context(), h.deps, ops.SetFeedKindInput{
		Group: r.PathValue("group"),
		User:  r.PathValue("user"),
		Kind:  body.Kind,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleObjectPut handles PUT /objects/{ref}; the body is the object data.
func (h *Handlers) HandleObjectPut(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := decodeBody(w, r, &data); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.PutObject(r.Context(), h.deps, ops.PutObjectInput{
		Ref:  r.PathValue("ref"),
		Data: data,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// parseListInput maps query parameters onto a ListFeed request. List
// parameters accept repeated keys and comma-separated values.
func parseListInput(r *http.Request) (ops.ListFeedInput, error) {
	q := r.URL.Query()
	input := ops.ListFeedInput{
		Group:    r.PathValue("group"),
		User:     r.PathValue("user"),
		IDLT:     q.Get("id_lt"),
		Includes: parseListParam(r, "includes"),
		SFW:      parseBoolParam(r, "sfw"),
		Ranking:  q.Get("ranking"),
		Render:   q.Get("render"),
	}

	var err error
	for name, dst := range map[string]*int{
		"page":   &input.Page,
		"per":    &input.Per,
		"limit":  &input.Limit,
		"offset": &input.Offset,
	} {
		if *dst, err = parseIntParam(r, name); err != nil {
			return input, err
		}
	}

	for _, s := range parseListParam(r, "blocked") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return input, errors.NewInvalidRequest(fmt.Sprintf("blocked must be a list of integer user ids, got %q", s))
		}
		input.Blocked = append(input.Blocked, id)
	}

	input.MarkReadAll, input.MarkRead = parseMarkParam(r, "mark_read")
	input.MarkSeenAll, input.MarkSeen = parseMarkParam(r, "mark_seen")

	if input.Render != "" && input.Render != ops.RenderMarkdown {
		return input, errors.NewInvalidRequest(fmt.Sprintf("render must be %q", ops.RenderMarkdown))
	}
	return input, nil
}

// parseIntParam parses an optional integer query parameter.
func parseIntParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// parseListParam collects the values of a repeated, comma-separated parameter.
func parseListParam(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseMarkParam reads a mark parameter: "true" marks everything, anything
// else is a list of group ids.
func parseMarkParam(r *http.Request, name string) (all bool, ids []string) {
	if parseBoolParam(r, name) {
		return true, nil
	}
	return false, parseListParam(r, name)
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// renderError writes a FeedError as {"error": {...}} with its HTTP status.
// Internal error details are not exposed.
func renderError(w http.ResponseWriter, err error) {
	fErr, ok := errors.As(err)
	if !ok {
		fErr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code":    string(fErr.Code),
		"message": fErr.Message,
		"status":  fErr.Status,
	}
	if fErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if fErr.Details != nil {
		errorObj["details"] = fErr.Details
	}

	renderJSON(w, fErr.Status, map[string]any{"error": errorObj})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
