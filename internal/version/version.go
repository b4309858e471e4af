// Package version centralizes the version strings of the assistant's
// logical components, used to build version-aware cache keys.
//
// Cached chat responses embed these versions in their keys, so bumping a
// component version after a logic change automatically invalidates every
// stale entry: old keys simply stop matching and fresh responses get
// generated.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComponentVersions holds the version strings for the parts of the system
// whose changes should invalidate cached responses. Increment a version
// here before deploying a change to that component.
var ComponentVersions = struct {
	// Tools covers the diagnostic tool implementations and their schemas.
	Tools string

	// PromptLogic covers the system prompt template and transcript
	// construction.
	PromptLogic string
}{
	Tools:       "v1.0",
	PromptLogic: "v1.0",
}

// GenerateVersionedCacheKey builds the cache key for one chat request:
// a prefix, a hash of the question plus environment, and the component
// versions.
//
// Example output: "chatcache:a1b2c3d4...:tv1.0_pv1.0"
func GenerateVersionedCacheKey(prefix, message, environment string) string {
	hasher := sha256.New()
	hasher.Write([]byte(environment))
	hasher.Write([]byte{0})
	hasher.Write([]byte(message))
	digest := hex.EncodeToString(hasher.Sum(nil))

	versionString := fmt.Sprintf("tv%s_pv%s",
		ComponentVersions.Tools,
		ComponentVersions.PromptLogic,
	)
	return fmt.Sprintf("%s:%s:%s", prefix, digest, versionString)
}
