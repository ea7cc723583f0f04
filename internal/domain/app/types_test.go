package app

import (
	"testing"

	"github.com/mcpmux/mcpmux/internal/domain/upstream"
)

func TestApp_Validate(t *testing.T) {
	tests := []struct {
		name    string
		app     App
		wantErr bool
	}{
		{
			name: "valid",
			app: App{
				Name: "my-tools",
				Upstreams: []upstream.Spec{
					{Name: "fs", Kind: upstream.KindStdio, Command: "mcp-server-fs"},
				},
			},
			wantErr: false,
		},
		{name: "missing name", app: App{}, wantErr: true},
		{name: "invalid name chars", app: App{Name: "my tools!"}, wantErr: true},
		{
			name: "duplicate upstream names",
			app: App{
				Name: "my-tools",
				Upstreams: []upstream.Spec{
					{Name: "fs", Kind: upstream.KindStdio, Command: "a"},
					{Name: "fs", Kind: upstream.KindStdio, Command: "b"},
				},
			},
			wantErr: true,
		},
		{
			name: "invalid upstream spec",
			app: App{
				Name: "my-tools",
				Upstreams: []upstream.Spec{
					{Name: "fs", Kind: upstream.KindStdio},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.app.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApp_Clone_DeepCopiesUpstreams(t *testing.T) {
	original := &App{
		Name: "my-tools",
		Upstreams: []upstream.Spec{
			{
				Name:    "fs",
				Kind:    upstream.KindStdio,
				Args:    []string{"--root", "/tmp"},
				Env:     map[string]string{"FOO": "bar"},
				Headers: map[string]string{"X-Api-Key": "secret"},
			},
		},
	}

	clone := original.Clone()

	clone.Upstreams[0].Args[0] = "mutated"
	clone.Upstreams[0].Env["FOO"] = "mutated"
	clone.Upstreams[0].Headers["X-Api-Key"] = "mutated"

	if original.Upstreams[0].Args[0] != "--root" {
		t.Errorf("expected original Args untouched, got %v", original.Upstreams[0].Args)
	}
	if original.Upstreams[0].Env["FOO"] != "bar" {
		t.Errorf("expected original Env untouched, got %v", original.Upstreams[0].Env)
	}
	if original.Upstreams[0].Headers["X-Api-Key"] != "secret" {
		t.Errorf("expected original Headers untouched, got %v", original.Upstreams[0].Headers)
	}
}

func TestNewID_Unique(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Error("expected distinct IDs")
	}
}
