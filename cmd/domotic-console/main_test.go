package main

import (
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/nerrad567/domotic-core/internal/console"
)

func parse(t *testing.T, args ...string) cli {
	t.Helper()
	var params cli
	parser, err := kong.New(&params)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return params
}

func TestCLI_Defaults(t *testing.T) {
	params := parse(t)
	if params.Port != 9999 {
		t.Errorf("Port = %d, want 9999", params.Port)
	}
	if params.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", params.Timeout)
	}

	sess, err := params.session()
	if err != nil {
		t.Fatalf("session() error = %v", err)
	}
	if sess.Server.IsValid() {
		t.Errorf("Server = %v, want unset so the console prompts", sess.Server)
	}
}

func TestCLI_Session(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, s *console.Session)
	}{
		{
			name: "explicit server",
			args: []string{"--server", "192.168.1.20", "--port", "10000", "--timeout", "2s"},
			check: func(t *testing.T, s *console.Session) {
				if s.Server.String() != "192.168.1.20" || s.Port != 10000 || s.Timeout != 2*time.Second {
					t.Errorf("session = %+v", s)
				}
			},
		},
		{
			name:    "bad server",
			args:    []string{"--server", "kitchen"},
			wantErr: console.ErrInvalidServer,
		},
		{
			name:    "bad port",
			args:    []string{"--port", "0"},
			wantErr: errors.New("any"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := parse(t, tt.args...)
			sess, err := params.session()
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("session() should fail")
				}
				if errors.Is(tt.wantErr, console.ErrInvalidServer) && !errors.Is(err, console.ErrInvalidServer) {
					t.Errorf("error = %v, want ErrInvalidServer", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("session() error = %v", err)
			}
			tt.check(t, sess)
		})
	}
}
