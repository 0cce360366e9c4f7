package recognizer

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveModel picks a model directory under modelsDir, preferring largeName
// over smallName. Resolution happens once per logical recognition call, not
// per retry. Absence of both directories is a fatal configuration error.
func ResolveModel(modelsDir, largeName, smallName string) (string, error) {
	for _, name := range []string{largeName, smallName} {
		if name == "" {
			continue
		}
		path := filepath.Join(modelsDir, name)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return path, nil
		}
	}
	return "", &Error{
		Kind: KindModelNotFound,
		Err:  fmt.Errorf("no model directory found under %s (looked for %q, %q)", modelsDir, largeName, smallName),
	}
}
