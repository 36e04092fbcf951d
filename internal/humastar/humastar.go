// Package humastar answers Huma operations with Datastar server-sent events.
// Handlers embed [Handler], read client signals through [SignalsInput] and
// advertise follow-up transitions with [Action] links.
package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-survey/internal/survey"
)

// Handler is embedded by handlers whose operations reply with a stream.
type Handler struct{}

// Stream wraps fn in a Huma streaming response.
func (Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// SSE writes the Datastar events of one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts a Datastar event stream on the response behind ctx.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the inner HTML of the elements matching selector.
func (s SSE) Patch(html, selector string) error {
	return s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner())
}

// Signals merges values into the client's signals.
func (s SSE) Signals(values map[string]any) error {
	return s.MarshalAndPatchSignals(values)
}

// Error sets the error signal and clears success.
func (s SSE) Error(msg string) error {
	return s.Signals(map[string]any{"error": msg, "success": ""})
}

// Success sets the success signal and clears error.
func (s SSE) Success(msg string) error {
	return s.Signals(map[string]any{"success": msg, "error": ""})
}

// Signals is the flat JSON object of client signals a Datastar action posts.
type Signals map[string]any

// ParseSignals decodes a signals body.
func ParseSignals(body []byte) (Signals, error) {
	var s Signals
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// String returns key when it holds a string, or "".
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Bool coerces key the way stored visibility flags are read: true, 1, "1"
// and "true" are true.
func (s Signals) Bool(key string) bool {
	return survey.ToBool(s[key])
}

// Has reports whether key was sent at all.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// SignalsInput captures the raw body of a Datastar action.
type SignalsInput struct {
	RawBody []byte
}

// Decode parses the body. A malformed body is a 400.
func (i *SignalsInput) Decode() (Signals, error) {
	s, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid signals: " + err.Error())
	}
	return s, nil
}
