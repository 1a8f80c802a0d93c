// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// ManifestHash computes the BLAKE3 content hash of a manifest file. The hash
// is recorded in the lock file at solve time and compared on load to decide
// staleness; any byte-level edit of the manifest invalidates the lock.
func ManifestHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash manifest: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
