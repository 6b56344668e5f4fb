package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadBlacklist lee una contraseña por línea (se ignoran vacías y las que
// empiezan con #) y las devuelve en minúsculas, listas para Policy.Blacklist.
// Un path vacío devuelve nil.
func LoadBlacklist(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := map[string]struct{}{}
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.ToLower(strings.TrimSpace(sc.Text()))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, sc.Err()
}
