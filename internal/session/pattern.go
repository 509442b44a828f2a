package session

import "strings"

// verbCommands capture their first non-flag argument as part of the pattern,
// e.g. "git commit -m x" becomes Bash(git:commit:*).
var verbCommands = map[string]bool{
	"git": true, "gh": true,
	"go": true, "cargo": true, "npm": true, "yarn": true, "pnpm": true,
	"pip": true, "uv": true, "make": true,
	"docker": true, "podman": true, "kubectl": true, "helm": true,
	"incus": true, "lxc": true, "zfs": true, "zpool": true,
	"systemctl": true, "launchctl": true,
	"nix": true, "nixos-rebuild": true, "home-manager": true,
	"tmux": true, "defaults": true, "alembic": true,
}

// sudoArgFlags are sudo options that consume the following word
var sudoArgFlags = map[string]bool{"-u": true, "-g": true, "-C": true, "-D": true, "-h": true, "-p": true}

// ExtractPattern converts a tool call into Claude permission pattern format.
// Only Bash calls get a command-derived pattern; other tools map to their name.
func ExtractPattern(toolName, input string) string {
	if toolName != "Bash" {
		return toolName
	}

	words := strings.Fields(input)
	words = dropWhile(words, func(w string) bool {
		return strings.Contains(w, "=") && !strings.HasPrefix(w, "-")
	})

	hasSudo := len(words) > 0 && words[0] == "sudo"
	if hasSudo {
		words = skipSudoFlags(words[1:])
	}

	words = unwrapCommand(words)
	if len(words) > 0 && isShell(words[0]) {
		words = shellCommand(words)
	}

	var parts []string
	if hasSudo {
		parts = append(parts, "sudo")
	}
	if len(words) > 0 {
		parts = append(parts, words[0])
		if verbCommands[words[0]] {
			if args := skipFlags(words[1:]); len(args) > 0 {
				parts = append(parts, args[0])
			}
		}
	}

	if len(parts) == 0 {
		return "Bash"
	}
	return "Bash(" + strings.Join(parts, ":") + ":*)"
}

func dropWhile(words []string, pred func(string) bool) []string {
	for len(words) > 0 && pred(words[0]) {
		words = words[1:]
	}
	return words
}

func skipFlags(args []string) []string {
	return dropWhile(args, func(w string) bool { return strings.HasPrefix(w, "-") })
}

func skipSudoFlags(words []string) []string {
	for len(words) > 0 && strings.HasPrefix(words[0], "-") {
		if sudoArgFlags[words[0]] && len(words) > 1 {
			words = words[2:]
			continue
		}
		words = words[1:]
	}
	return words
}

// unwrapCommand strips wrappers like env, time and nice that run another command
func unwrapCommand(words []string) []string {
	if len(words) == 0 {
		return words
	}

	switch words[0] {
	case "env":
		return dropWhile(words[1:], func(w string) bool {
			return strings.Contains(w, "=") || strings.HasPrefix(w, "-")
		})
	case "time", "nohup", "strace", "ltrace":
		return words[1:]
	case "nice":
		rest := words[1:]
		for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
			if rest[0] == "-n" && len(rest) > 1 {
				rest = rest[1:] // priority value
			}
			rest = rest[1:]
		}
		return rest
	case "xargs":
		return skipFlags(words[1:])
	}
	return words
}

func isShell(cmd string) bool {
	return cmd == "bash" || cmd == "sh" || cmd == "zsh"
}

// shellCommand extracts the words of "sh -c 'command'"
func shellCommand(words []string) []string {
	for i := 1; i < len(words)-1; i++ {
		if words[i] == "-c" {
			sub := strings.Join(words[i+1:], " ")
			return strings.Fields(strings.Trim(strings.TrimSpace(sub), "'\""))
		}
	}
	return words
}
