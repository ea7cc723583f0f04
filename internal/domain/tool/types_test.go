package tool

import (
	"encoding/json"
	"testing"
)

func TestParseList(t *testing.T) {
	raw := json.RawMessage(`{"tools":[
		{"name":"read","description":"reads a file"},
		{"name":"write"},
		{"description":"no name, should be skipped"}
	]}`)

	tools, err := ParseList(raw)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "read" || tools[1].Name != "write" {
		t.Errorf("unexpected tool names: %q, %q", tools[0].Name, tools[1].Name)
	}
}

func TestParseList_InvalidJSON(t *testing.T) {
	if _, err := ParseList(json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseList_EmptyToolsArray(t *testing.T) {
	tools, err := ParseList(json.RawMessage(`{"tools":[]}`))
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("expected 0 tools, got %d", len(tools))
	}
}

func TestTool_WithName(t *testing.T) {
	tl := Tool{
		Name: "read",
		Raw:  json.RawMessage(`{"name":"read","description":"reads a file","inputSchema":{"type":"object"}}`),
	}

	rewritten, err := tl.WithName("a1b2c3d4e5")
	if err != nil {
		t.Fatalf("WithName: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(rewritten, &decoded); err != nil {
		t.Fatalf("unmarshal rewritten: %v", err)
	}
	if decoded["name"] != "a1b2c3d4e5" {
		t.Errorf("expected name to be rewritten, got %v", decoded["name"])
	}
	if decoded["description"] != "reads a file" {
		t.Errorf("expected description preserved, got %v", decoded["description"])
	}
	if _, ok := decoded["inputSchema"]; !ok {
		t.Error("expected inputSchema preserved")
	}
}

func TestTool_WithName_InvalidRaw(t *testing.T) {
	tl := Tool{Name: "x", Raw: json.RawMessage(`not json`)}
	if _, err := tl.WithName("alias"); err == nil {
		t.Error("expected error for invalid raw JSON")
	}
}
