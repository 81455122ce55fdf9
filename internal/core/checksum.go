package core

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// digestChunkSize is the read size used when hashing archives
const digestChunkSize = 256 * 1024

// Digest returns the xxHash64 of everything read from r as 16 lower-case
// hex digits, the format the update catalog publishes. It is an integrity
// check against corrupted transfers, not a security boundary.
func Digest(r io.Reader) (string, error) {
	h := xxhash.New()
	buf := make([]byte, digestChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hashing: %w", err)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// FileDigest streams the file at path through Digest
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Digest(f)
}
