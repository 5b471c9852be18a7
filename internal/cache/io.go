package cache

import "os"

// readFileIfExists returns nil, nil when path does not exist, so callers
// can distinguish "no cache yet" from a read error.
func readFileIfExists(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}
