package sandboxjs

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// writeScriptFile materializes an Analysis's script content to a
// private temp file the child runtime is invoked against; cleanup
// removes it once the job finishes, win or lose.
func writeScriptFile(content string) (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "claystudio-analysis-")
	if err != nil {
		return "", nil, err
	}
	path = filepath.Join(dir, "analysis-"+uuid.NewString()+".js")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	return path, func() { _ = os.RemoveAll(dir) }, nil
}

func writeFileAll(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
