// Package chunkid mints the identifiers shared by the vector index and the metadata stores.
package chunkid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const separator = "_chunk_"

// Generate returns n ids of the form {filename}_chunk_{i}_{uuid}.
// The random suffix keeps a re-upload of the same filename from colliding with a previous version.
func Generate(filename string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("%s%s%d_%s", filename, separator, i, uuid.NewString())
	}
	return ids
}

// Parse splits an id back into filename and index. Filenames may themselves contain "_chunk_",
// so the last occurrence is used.
func Parse(id string) (filename string, index int, err error) {
	pos := strings.LastIndex(id, separator)
	if pos < 0 {
		return "", 0, fmt.Errorf("chunk id %q: missing %q", id, separator)
	}
	filename = id[:pos]
	rest := id[pos+len(separator):]

	us := strings.IndexByte(rest, '_')
	if us < 0 {
		return "", 0, fmt.Errorf("chunk id %q: missing uuid suffix", id)
	}
	index, err = strconv.Atoi(rest[:us])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("chunk id %q: bad index", id)
	}
	if _, err := uuid.Parse(rest[us+1:]); err != nil {
		return "", 0, fmt.Errorf("chunk id %q: bad uuid: %w", id, err)
	}
	return filename, index, nil
}
