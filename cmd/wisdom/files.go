package main

import (
	"fmt"
	"os"
)

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := encodeJSON(f, v, true); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
