package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticFilePath(t *testing.T) {
	dir := filepath.Join("srv", "static")

	tests := []struct {
		name    string
		urlPath string
		want    string
	}{
		{
			name:    "root serves index",
			urlPath: "/",
			want:    filepath.Join(dir, "index.html"),
		},
		{
			name:    "plain file",
			urlPath: "/app.js",
			want:    filepath.Join(dir, "app.js"),
		},
		{
			name:    "nested file",
			urlPath: "/assets/logo.png",
			want:    filepath.Join(dir, "assets", "logo.png"),
		},
		{
			name:    "dotdot stays inside the static dir",
			urlPath: "/../../etc/passwd",
			want:    filepath.Join(dir, "etc", "passwd"),
		},
		{
			name:    "interior dotdot resolved",
			urlPath: "/assets/../app.js",
			want:    filepath.Join(dir, "app.js"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := staticFilePath(dir, tt.urlPath)
			if got != tt.want {
				t.Errorf("staticFilePath(%q) = %q, want %q", tt.urlPath, got, tt.want)
			}
			if !strings.HasPrefix(got, dir) {
				t.Errorf("path %q escapes static dir %q", got, dir)
			}
		})
	}
}
