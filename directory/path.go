package directory

import (
	"fmt"
	"strings"
)

// MaxNameLen is the maximum byte length of a single path component.
const MaxNameLen = 255

// Root is the canonical path of the top-level directory.
const Root = "/"

// ValidateName checks a single path component.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: name too long (%d bytes, max %d)", ErrInvalidName, len(name), MaxNameLen)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name contains path separator", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: name is reserved", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\x00") {
		return fmt.Errorf("%w: name contains null byte", ErrInvalidName)
	}
	return nil
}

// CleanPath normalizes p to "/a/b" form. The leading slash is optional,
// repeated and trailing slashes are collapsed, "." and ".." are rejected.
func CleanPath(p string) (string, error) {
	parts, err := SplitPath(p)
	if err != nil {
		return "", err
	}
	return JoinPath(parts...), nil
}

// SplitPath returns the validated components of p. The root has none.
func SplitPath(p string) ([]string, error) {
	if strings.ContainsAny(p, "\x00") {
		return nil, fmt.Errorf("%w: %q contains null byte", ErrInvalidPath, p)
	}
	var parts []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if err := ValidateName(seg); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPath, p, err)
		}
		parts = append(parts, seg)
	}
	return parts, nil
}

// JoinPath builds a canonical path from already-validated components.
func JoinPath(parts ...string) string {
	return Root + strings.Join(parts, "/")
}

// SplitFilePath separates a file path into its parent directory and name.
func SplitFilePath(p string) (dir, name string, err error) {
	parts, err := SplitPath(p)
	if err != nil {
		return "", "", err
	}
	if len(parts) == 0 {
		return "", "", fmt.Errorf("%w: %q has no file name", ErrInvalidPath, p)
	}
	return JoinPath(parts[:len(parts)-1]...), parts[len(parts)-1], nil
}
