package continuity

import (
	"os"
	"path/filepath"
)

// OSWriter is the default Writer, backed by the local filesystem. It creates
// parent directories as needed.
type OSWriter struct {
	Root string
}

// WriteFile writes data to Root/name, creating parent directories as needed.
func (w OSWriter) WriteFile(name string, data []byte) error {
	full := filepath.Join(w.Root, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}
