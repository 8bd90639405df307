package finding

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID returns the deterministic identifier of the finding a check raises for a resource.
// Repeated scans of an unchanged resource produce the same value.
func ID(checkName, resourceID, region string) string {
	sum := sha256.Sum256([]byte(checkName + "-" + resourceID + "-" + region))
	return hex.EncodeToString(sum[:])[:16]
}
