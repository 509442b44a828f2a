package session

import "testing"

func TestExtractPattern(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		input    string
		expected string
	}{
		// Basic Bash commands
		{"git verb", "Bash", "git status", "Bash(git:status:*)"},
		{"simple ls", "Bash", "ls -la", "Bash(ls:*)"},
		{"npm install", "Bash", "npm install express", "Bash(npm:install:*)"},
		{"verb without args", "Bash", "make", "Bash(make:*)"},

		// Sudo handling
		{"sudo rm", "Bash", "sudo rm -rf /tmp/foo", "Bash(sudo:rm:*)"},
		{"sudo with user flag", "Bash", "sudo -u root apt update", "Bash(sudo:apt:*)"},
		{"sudo alone", "Bash", "sudo", "Bash(sudo:*)"},

		// Env var prefixes
		{"env var prefix", "Bash", "FOO=bar npm run build", "Bash(npm:run:*)"},
		{"multiple env vars", "Bash", "FOO=1 BAR=2 node server.js", "Bash(node:*)"},
		{"env wrapper", "Bash", "env -i PATH=/bin go test ./...", "Bash(go:test:*)"},

		// Command wrappers
		{"time wrapper", "Bash", "time make build", "Bash(make:build:*)"},
		{"nice wrapper", "Bash", "nice -n 10 cargo build", "Bash(cargo:build:*)"},
		{"xargs", "Bash", "xargs -0 rm", "Bash(rm:*)"},
		{"sh -c", "Bash", "sh -c 'git push origin'", "Bash(git:push:*)"},

		// Empty/edge cases
		{"empty command", "Bash", "", "Bash"},
		{"whitespace only", "Bash", "   ", "Bash"},

		// Non-Bash tools
		{"Edit tool", "Edit", "/path/to/file.go", "Edit"},
		{"Write tool", "Write", "/path/to/file.go", "Write"},
		{"unknown tool", "Unknown", "something", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractPattern(tt.toolName, tt.input)
			if result != tt.expected {
				t.Errorf("ExtractPattern(%q, %q) = %q, want %q",
					tt.toolName, tt.input, result, tt.expected)
			}
		})
	}
}
