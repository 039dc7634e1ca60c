package arena

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MatchDir creates {root}/matches/{a}_vs_{b}[...]_{unix}. Two matches of the
// same seating started within the same second get a short uuid suffix.
func MatchDir(root string, agents []string, now time.Time, id uuid.UUID) (string, error) {
	parent := filepath.Join(root, "matches")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", err
	}
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = safeName(a)
	}
	base := fmt.Sprintf("%s_%d", strings.Join(names, "_vs_"), now.Unix())
	dir := filepath.Join(parent, base)
	err := os.Mkdir(dir, 0o755)
	if errors.Is(err, os.ErrExist) {
		dir = filepath.Join(parent, base+"_"+id.String()[:8])
		err = os.Mkdir(dir, 0o755)
	}
	if err != nil {
		return "", fmt.Errorf("create match dir: %w", err)
	}
	return dir, nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, s)
}

// writeJSON writes v to path through a temp file and rename.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
