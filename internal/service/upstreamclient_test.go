package service

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeUpstream plays the role of an upstream MCP server over in-memory
// pipes so UpstreamClient can be exercised without spawning a process.
type fakeUpstream struct {
	toUpstreamR   *io.PipeReader
	toUpstreamW   *io.PipeWriter
	fromUpstreamR *io.PipeReader
	fromUpstreamW *io.PipeWriter

	toolsResponse json.RawMessage
	refuseReplies bool
}

func newFakeUpstream(toolsResponse json.RawMessage) *fakeUpstream {
	tr, tw := io.Pipe()
	fr, fw := io.Pipe()
	return &fakeUpstream{
		toUpstreamR:   tr,
		toUpstreamW:   tw,
		fromUpstreamR: fr,
		fromUpstreamW: fw,
		toolsResponse: toolsResponse,
	}
}

func (f *fakeUpstream) Start(ctx context.Context) (io.WriteCloser, io.ReadCloser, error) {
	go f.serve()
	return f.toUpstreamW, f.fromUpstreamR, nil
}

func (f *fakeUpstream) Wait() error { return nil }

func (f *fakeUpstream) Close() error {
	_ = f.toUpstreamW.Close()
	_ = f.fromUpstreamW.Close()
	return nil
}

func (f *fakeUpstream) serve() {
	scanner := bufio.NewScanner(f.toUpstreamR)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if f.refuseReplies {
			continue
		}
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if req.ID == nil {
			continue
		}

		var result json.RawMessage
		switch req.Method {
		case "tools/list":
			result = f.toolsResponse
		case "tools/call":
			result = req.Params
		default:
			continue
		}

		resp, err := json.Marshal(map[string]json.RawMessage{
			"jsonrpc": mustMarshal("2.0"),
			"id":      req.ID,
			"result":  result,
		})
		if err != nil {
			continue
		}
		if _, err := f.fromUpstreamW.Write(append(resp, '\n')); err != nil {
			return
		}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpstreamClient_Connect_DiscoversTools(t *testing.T) {
	fake := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"read"},{"name":"write"}]}`))
	client := NewUpstreamClient("fs", fake, testLogger())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	tools := client.Tools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "read" || tools[1].Name != "write" {
		t.Errorf("unexpected tool names: %v", tools)
	}
}

func TestUpstreamClient_Connect_InvalidToolsList(t *testing.T) {
	fake := newFakeUpstream(json.RawMessage(`{"tools":"not a list"}`))
	client := NewUpstreamClient("fs", fake, testLogger())

	if err := client.Connect(context.Background()); err == nil {
		t.Error("expected error for malformed tools/list result")
	}
}

func TestUpstreamClient_Connect_Timeout(t *testing.T) {
	fake := newFakeUpstream(nil)
	fake.refuseReplies = true
	client := NewUpstreamClient("fs", fake, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		t.Error("expected error when upstream never replies")
	}
}

func TestUpstreamClient_Call_RoundTrips(t *testing.T) {
	fake := newFakeUpstream(json.RawMessage(`{"tools":[{"name":"read"}]}`))
	client := NewUpstreamClient("fs", fake, testLogger())

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	raw, err := client.Call(context.Background(), "read", json.RawMessage(`{"path":"/tmp/x"}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var decoded struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal Call result: %v", err)
	}
	if decoded.Name != "read" {
		t.Errorf("expected echoed tool name read, got %q", decoded.Name)
	}
}

func TestUpstreamClient_Close_ReleasesPendingCalls(t *testing.T) {
	fake := newFakeUpstream(json.RawMessage(`{"tools":[]}`))
	client := NewUpstreamClient("fs", fake, testLogger())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	fake.refuseReplies = true
	done := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "noop", nil)
		done <- err
	}()

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected Call to fail after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after Close")
	}
}
