package version

import (
	"strings"
	"testing"
)

func TestGenerateVersionedCacheKey(t *testing.T) {
	key := GenerateVersionedCacheKey("chatcache", "why did daily_sales fail?", "prod")

	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		t.Fatalf("key %q has %d parts, want 3", key, len(parts))
	}
	if parts[0] != "chatcache" {
		t.Errorf("prefix = %q", parts[0])
	}
	if len(parts[1]) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(parts[1]))
	}
	if parts[2] != "tv"+ComponentVersions.Tools+"_pv"+ComponentVersions.PromptLogic {
		t.Errorf("version suffix = %q", parts[2])
	}
}

func TestGenerateVersionedCacheKeyDiscriminates(t *testing.T) {
	base := GenerateVersionedCacheKey("chatcache", "question", "dev")
	if GenerateVersionedCacheKey("chatcache", "question", "dev") != base {
		t.Error("same inputs produced different keys")
	}
	if GenerateVersionedCacheKey("chatcache", "other question", "dev") == base {
		t.Error("different messages produced the same key")
	}
	if GenerateVersionedCacheKey("chatcache", "question", "prod") == base {
		t.Error("different environments produced the same key")
	}
}
