// internal/providers/providers.go
// Package providers enumerates the three pitch backends. Each is an
// interchangeable black box behind the gateway; what differs is the shape
// of the response body it streams back.
package providers

// Transport identifies how a provider's pitch endpoint delivers content.
type Transport int

const (
	// TransportRaw streams plain incremental UTF-8 text.
	TransportRaw Transport = iota
	// TransportEvent streams "data: "-prefixed JSON event lines.
	TransportEvent
	// TransportJSON returns one JSON document with the whole pitch.
	TransportJSON
)

func (t Transport) String() string {
	switch t {
	case TransportRaw:
		return "raw"
	case TransportEvent:
		return "event"
	case TransportJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseTransport maps a config string to a Transport. Unknown values fall
// back to raw, the most forgiving decoder.
func ParseTransport(s string) Transport {
	switch s {
	case "event":
		return TransportEvent
	case "json":
		return TransportJSON
	default:
		return TransportRaw
	}
}

// Info contains identity and display information for a provider.
type Info struct {
	ID        string
	Name      string
	Color     string // hex color for UI
	Transport Transport
}

// The fixed enumeration. Order matters: it is the tie-break order for
// verdict winners and the display order in the UI.
var defaults = []Info{
	{ID: "claude", Name: "Claude", Color: "#00FFFF", Transport: TransportRaw},
	{ID: "gpt", Name: "GPT", Color: "#00FF00", Transport: TransportEvent},
	{ID: "gemini", Name: "Gemini", Color: "#FF00FF", Transport: TransportJSON},
}

// Registry holds the provider set in enumeration order.
type Registry struct {
	infos map[string]Info
	order []string
}

// NewRegistry returns the default three-provider registry.
func NewRegistry() *Registry {
	r := &Registry{infos: make(map[string]Info)}
	for _, info := range defaults {
		r.infos[info.ID] = info
		r.order = append(r.order, info.ID)
	}
	return r
}

// SetTransport overrides one provider's transport, for config-driven
// gateway deployments that deliver a different shape.
func (r *Registry) SetTransport(id string, t Transport) {
	if info, ok := r.infos[id]; ok {
		info.Transport = t
		r.infos[id] = info
	}
}

// Disable removes a provider from the enumeration. The remaining order is
// preserved for tie-breaking and display.
func (r *Registry) Disable(id string) {
	if _, ok := r.infos[id]; !ok {
		return
	}
	delete(r.infos, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) (Info, bool) {
	info, ok := r.infos[id]
	return info, ok
}

// All returns the providers in enumeration order.
func (r *Registry) All() []Info {
	result := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.infos[id])
	}
	return result
}

// IDs returns the provider IDs in enumeration order.
func (r *Registry) IDs() []string {
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Count returns the number of providers.
func (r *Registry) Count() int {
	return len(r.order)
}

// DisplayName returns the display name for a provider ID, falling back to
// the ID itself.
func DisplayName(id string) string {
	for _, info := range defaults {
		if info.ID == id {
			return info.Name
		}
	}
	return id
}
