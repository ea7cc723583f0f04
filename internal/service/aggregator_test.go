package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

func TestAggregator_Connect_MergesToolsFromReadyUpstreams(t *testing.T) {
	agg := NewAggregator(testLogger())

	fakeA := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"read"}]}`))
	fakeB := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"fetch"}]}`))

	agg.AddUpstream(upstream.Spec{Name: "fs", Kind: upstream.KindStdio, Command: "x"}, NewUpstreamClient("fs", fakeA, testLogger()))
	agg.AddUpstream(upstream.Spec{Name: "web", Kind: upstream.KindSSE, URL: "http://x/sse"}, NewUpstreamClient("web", fakeB, testLogger()))

	agg.Connect(context.Background())

	statuses := agg.Statuses()
	if statuses["fs"].Status != upstream.StatusReady || statuses["web"].Status != upstream.StatusReady {
		t.Fatalf("expected both upstreams ready, got %+v", statuses)
	}

	var catalog struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(agg.ToolsList(), &catalog); err != nil {
		t.Fatalf("unmarshal ToolsList: %v", err)
	}
	if len(catalog.Tools) != 2 {
		t.Fatalf("expected 2 merged tools, got %d", len(catalog.Tools))
	}
}

func TestAggregator_Connect_FailedUpstreamExcludedFromCatalog(t *testing.T) {
	agg := NewAggregator(testLogger())

	good := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"read"}]}`))
	bad := newFakeUpstream(json.RawMessage(`not json`))

	agg.AddUpstream(upstream.Spec{Name: "fs", Kind: upstream.KindStdio, Command: "x"}, NewUpstreamClient("fs", good, testLogger()))
	agg.AddUpstream(upstream.Spec{Name: "broken", Kind: upstream.KindStdio, Command: "x"}, NewUpstreamClient("broken", bad, testLogger()))

	agg.Connect(context.Background())

	statuses := agg.Statuses()
	if statuses["fs"].Status != upstream.StatusReady {
		t.Errorf("expected fs ready, got %v", statuses["fs"].Status)
	}
	if statuses["broken"].Status != upstream.StatusFailed {
		t.Errorf("expected broken failed, got %v", statuses["broken"].Status)
	}
	if statuses["broken"].LastError == "" {
		t.Error("expected LastError to be set for failed upstream")
	}

	var catalog struct {
		Tools []json.RawMessage `json:"tools"`
	}
	json.Unmarshal(agg.ToolsList(), &catalog)
	if len(catalog.Tools) != 1 {
		t.Errorf("expected 1 tool from the healthy upstream only, got %d", len(catalog.Tools))
	}
}

func TestAggregator_Call_RoutesByAlias(t *testing.T) {
	agg := NewAggregator(testLogger())
	fake := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"read"}]}`))
	agg.AddUpstream(upstream.Spec{Name: "fs", Kind: upstream.KindStdio, Command: "x"}, NewUpstreamClient("fs", fake, testLogger()))

	agg.Connect(context.Background())

	var catalog struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	json.Unmarshal(agg.ToolsList(), &catalog)
	if len(catalog.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(catalog.Tools))
	}
	alias := catalog.Tools[0].Name

	raw := agg.Call(context.Background(), alias, json.RawMessage(`{"path":"/tmp"}`))

	var wrapper struct {
		Result struct {
			Name json.RawMessage `json:"name"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("unmarshal Call result: %v", err)
	}
	var name string
	json.Unmarshal(wrapper.Result.Name, &name)
	if name != "read" {
		t.Errorf("expected upstream to see original tool name read, got %q", name)
	}
}

func TestAggregator_Call_UnknownAlias(t *testing.T) {
	agg := NewAggregator(testLogger())
	agg.Connect(context.Background())

	raw := agg.Call(context.Background(), "nope", nil)

	var decoded struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal error result: %v", err)
	}
	if decoded.Error.Code != codeMethodNotFound {
		t.Errorf("expected code %d, got %d", codeMethodNotFound, decoded.Error.Code)
	}
	if decoded.Error.Message != "Method nope not found" {
		t.Errorf("expected literal not-found message, got %q", decoded.Error.Message)
	}
}

func TestAggregator_Close_ShutsDownAllUpstreams(t *testing.T) {
	agg := NewAggregator(testLogger())
	fake := newFakeUpstream(json.RawMessage(`{"tools":[]}`))
	agg.AddUpstream(upstream.Spec{Name: "fs", Kind: upstream.KindStdio, Command: "x"}, NewUpstreamClient("fs", fake, testLogger()))
	agg.Connect(context.Background())

	if err := agg.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
