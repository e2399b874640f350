package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// maxNameAttempts bounds the search for a free name in AvailableName.
const maxNameAttempts = 100

var invalidNameChars = regexp.MustCompile(`[^-\p{L}\p{N}_.]`)

// ValidName turns spaces into underscores and drops every character that is
// not a letter, digit, underscore, dash or dot.
func ValidName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return invalidNameChars.ReplaceAllString(name, "")
}

// AvailableName returns name if it is free, otherwise name with a random
// seven character suffix inserted before the extension.
func AvailableName(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	dir, file := path.Split(name)
	ext := path.Ext(file)
	root := strings.TrimSuffix(file, ext)

	candidate := name
	for i := 0; i < maxNameAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check name %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
		candidate = dir + root + "_" + suffix + ext
	}
	return "", fmt.Errorf("no available name for %q after %d attempts", name, maxNameAttempts)
}
