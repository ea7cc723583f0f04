// Package tool holds the domain representation of an MCP tool as discovered
// from an upstream server.
package tool

import "encoding/json"

// Tool is an opaque JSON object describing a tool, as returned by an
// upstream's tools/list response. Only Name is inspected by the proxy;
// everything else is forwarded to downstream clients verbatim.
type Tool struct {
	// Name is the tool's original name, as reported by its owning upstream.
	Name string

	// Raw is the complete JSON object for this tool exactly as the
	// upstream returned it (schema, description, annotations, and any
	// fields the proxy doesn't otherwise understand).
	Raw json.RawMessage
}

// ParseList decodes a tools/list result's "tools" array into Tool values.
// Entries without a usable string "name" field are skipped.
func ParseList(raw json.RawMessage) ([]Tool, error) {
	var decoded struct {
		Tools []json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	tools := make([]Tool, 0, len(decoded.Tools))
	for _, entry := range decoded.Tools {
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(entry, &named); err != nil || named.Name == "" {
			continue
		}
		tools = append(tools, Tool{Name: named.Name, Raw: entry})
	}
	return tools, nil
}

// WithName returns a copy of the tool's raw JSON object with its "name"
// field overwritten, leaving every other field untouched. Used to rewrite
// a tool's exported name to its alias without disturbing its schema or
// description.
func (t Tool) WithName(name string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(t.Raw, &fields); err != nil {
		return nil, err
	}

	encodedName, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	fields["name"] = encodedName

	return json.Marshal(fields)
}
