package depgraph

import (
	"encoding/json"
	"strings"
)

// Metadata is the murmuration metadata block embedded in an issue body as
// `<!-- murmur:metadata { ... } -->`.
type Metadata struct {
	Phase     *uint32  `json:"phase,omitempty"`
	PR        string   `json:"pr,omitempty"`
	DependsOn []uint64 `json:"depends_on,omitempty"`
	Status    string   `json:"status,omitempty"`
	Type      string   `json:"type,omitempty"`
	Parent    *uint64  `json:"parent,omitempty"`
}

// IsEpic reports whether Type names this issue as an epic container.
func (m Metadata) IsEpic() bool {
	return strings.EqualFold(m.Type, "epic")
}

// IsBlocked reports whether Status indicates the issue is blocked.
func (m Metadata) IsBlocked() bool {
	return strings.EqualFold(m.Status, "blocked")
}

// ParseMetadata returns the first murmur:metadata block embedded in body,
// if any. Callers outside this package (the orchestrator, resolving an
// issue's agent type and epic parent) use this rather than ParseDependencies
// because they need the whole block, not just the dependency-shaped fields.
func ParseMetadata(body string) (Metadata, bool) {
	blocks := parseMetadataBlocks(body)
	if len(blocks) == 0 {
		return Metadata{}, false
	}
	return blocks[0], true
}

const (
	metadataStartMarker = "<!-- murmur:metadata"
	metadataEndMarker   = "-->"
)

// extractMetadataBlocks returns the raw JSON payload of every
// murmur:metadata comment block found in body, in order.
func extractMetadataBlocks(body string) []string {
	var blocks []string
	searchPos := 0
	for {
		start := strings.Index(body[searchPos:], metadataStartMarker)
		if start < 0 {
			break
		}
		absStart := searchPos + start + len(metadataStartMarker)
		end := strings.Index(body[absStart:], metadataEndMarker)
		if end < 0 {
			break
		}
		content := strings.TrimSpace(body[absStart : absStart+end])
		if content != "" {
			blocks = append(blocks, content)
		}
		searchPos = absStart + end + len(metadataEndMarker)
	}
	return blocks
}

// parseMetadataBlocks parses every metadata block in body. Malformed JSON is
// skipped rather than treated as an error — the metadata block is an
// optional enrichment, unlike a textual dependency reference.
func parseMetadataBlocks(body string) []Metadata {
	var results []Metadata
	for _, block := range extractMetadataBlocks(body) {
		if m, ok := parseMetadataBlock(block); ok {
			results = append(results, m)
		}
	}
	return results
}

func parseMetadataBlock(raw string) (Metadata, bool) {
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, false
	}
	return m, true
}
