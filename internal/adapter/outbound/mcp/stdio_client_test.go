package mcp

import (
	"bufio"
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestStdioClient_StartWritesAndReadsThroughPipes(t *testing.T) {
	client := NewStdioClient("cat")

	stdin, stdout, err := client.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Close()

	if _, err := stdin.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	reader := bufio.NewReader(stdout)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "hello\n" {
		t.Errorf("expected echoed line %q, got %q", "hello\n", line)
	}
}

func TestStdioClient_StartTwiceFails(t *testing.T) {
	client := NewStdioClient("cat")
	if _, _, err := client.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer client.Close()

	if _, _, err := client.Start(context.Background()); err == nil {
		t.Error("expected error starting an already-started client")
	}
}

func TestStdioClient_WaitWithoutStartFails(t *testing.T) {
	client := NewStdioClient("cat")
	if err := client.Wait(); err == nil {
		t.Error("expected error waiting on a client that was never started")
	}
}

func TestStdioClient_Close_KillsProcess(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := NewStdioClient("sleep", "30")
	if _, _, err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	done := make(chan struct{})
	go func() {
		client.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("expected killed process to be waitable promptly")
	}
}

func TestStdioClient_WithEnv_PassesVariablesToSubprocess(t *testing.T) {
	client := NewStdioClient("sh", "-c", "echo $MCPMUX_TEST_VAR").WithEnv(map[string]string{"MCPMUX_TEST_VAR": "proxied"})

	stdin, stdout, err := client.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = stdin
	defer client.Close()

	reader := bufio.NewReader(stdout)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "proxied\n" {
		t.Errorf("expected env var forwarded to subprocess, got %q", line)
	}
}

func TestStdioClient_Close_WithoutStart(t *testing.T) {
	client := NewStdioClient("cat")
	if err := client.Close(); err != nil {
		t.Errorf("Close on never-started client: %v", err)
	}
}
