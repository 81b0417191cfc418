package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ExpandHomeDirPublic expands ~ and $HOME prefixes in path.
func ExpandHomeDirPublic(path, homeDir string) string {
	return expandHomeDir(path, homeDir)
}

func expandHomeDir(path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return clean
	}
	for _, prefix := range []string{"~", "$HOME", "${HOME}"} {
		if clean == prefix {
			return homeDir
		}
		if strings.HasPrefix(clean, prefix+"/") {
			return strings.TrimRight(homeDir, "/") + clean[len(prefix):]
		}
	}
	return clean
}

func contractHomeDir(path, homeDir string) string {
	if homeDir == "" || path == "" {
		return path
	}
	home := strings.TrimRight(homeDir, "/")
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}

// resolvePath returns the absolute path with symlinks resolved in its
// deepest existing ancestor, so paths that do not exist yet still compare
// correctly against resolved source trees.
func resolvePath(ctx context.Context, fs FileSystemPort, path string) string {
	abs, err := fs.Abs(ctx, path)
	if err != nil {
		abs = path
	}
	abs = fs.Clean(abs)
	var missing []string
	current := abs
	for {
		if resolved, err := fs.EvalSymlinks(ctx, current); err == nil {
			parts := []string{resolved}
			for i := len(missing) - 1; i >= 0; i-- {
				parts = append(parts, missing[i])
			}
			return fs.Clean(fs.Join(parts...))
		}
		parent := fs.Dir(current)
		if parent == current {
			return abs
		}
		missing = append(missing, fs.Base(current))
		current = parent
	}
}

// isWithin reports whether path equals dir or lies below it.
func isWithin(fs FileSystemPort, path, dir string) bool {
	rel, err := fs.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../") && !strings.HasPrefix(rel, `..\`)
}

func sanitizeSegment(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b = append(b, r)
		} else {
			b = append(b, '_')
		}
	}
	out := strings.Trim(strings.TrimLeft(string(b), "."), "_- ")
	if out == "" {
		out = "root"
	}
	return out
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:8]
}
