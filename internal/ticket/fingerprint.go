package ticket

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a stable content hash over the ticket's semantic
// triple (area, title, description). Ids, timestamps, priority, and safe
// paths do not participate, so the same logical ticket always hashes
// identically across regeneration cycles.
func Fingerprint(t *Ticket) string {
	// Map keys marshal in sorted order, which keeps the serialization
	// canonical.
	raw, err := json.Marshal(map[string]string{
		"component": t.Area,
		"title":     t.Title,
		"summary":   t.Description,
	})
	if err != nil {
		// Marshalling three strings cannot fail; keep the signature simple.
		raw = []byte(t.Area + "\x00" + t.Title + "\x00" + t.Description)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
