package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/overlayc/internal/core/domain"
)

// Hash domains. A content hash and a metadata hash of the same bytes must
// never collide.
const (
	contentHashDomain  = "overlayc.content.v1"
	metadataHashDomain = "overlayc.metadata.v1"
)

// hashWithDomain computes SHA-256 over domain || 0x00 || data.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes the entry body exactly as stored.
func ContentHash(content string) string {
	return hashWithDomain(contentHashDomain, []byte(content))
}

// canonicalMetadata is the hashed metadata field set. Field order is fixed
// by the struct so the JSON encoding is stable.
type canonicalMetadata struct {
	Title        string   `json:"title"`
	Domain       string   `json:"domain"`
	ScopeLevel   string   `json:"scope_level"`
	DomainKey    string   `json:"domain_key"`
	SubKey       string   `json:"sub_key"`
	Capabilities []string `json:"capabilities"`
	Roles        []string `json:"roles"`
	Models       []string `json:"models"`
	Languages    []string `json:"languages"`
	Guardrail    string   `json:"guardrail_level"`
	Supersedes   string   `json:"supersedes"`
}

// MetadataHash hashes every indexed field except content. Status, version,
// timestamps and authoring notes are excluded: none of them change what a
// reader retrieves for the entry.
func MetadataHash(e *domain.ContentEntry) string {
	m := canonicalMetadata{
		Title:        nfc(e.Title),
		Domain:       string(e.Domain),
		ScopeLevel:   string(e.Scope.Level),
		DomainKey:    nfc(e.Scope.DomainKey),
		SubKey:       nfc(e.Scope.SubKey),
		Capabilities: canonicalList(e.Associations.Capabilities),
		Roles:        canonicalList(e.Associations.Roles),
		Models:       canonicalList(e.Associations.Models),
		Languages:    canonicalList(e.Associations.Languages),
		Guardrail:    string(e.Guardrails.Level),
	}
	if e.Lifecycle.Supersedes != nil {
		m.Supersedes = *e.Lifecycle.Supersedes
	}
	// Marshal of a struct of strings and string slices cannot fail.
	data, _ := json.Marshal(m)
	return hashWithDomain(metadataHashDomain, data)
}

// RefreshHashes recomputes both hashes on e.
func RefreshHashes(e *domain.ContentEntry) {
	e.ContentHash = ContentHash(e.Content)
	e.MetadataHash = MetadataHash(e)
}

func nfc(s string) string {
	return norm.NFC.String(s)
}

// canonicalList normalises and sorts a copy. Association order carries no
// meaning.
func canonicalList(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = nfc(s)
	}
	sort.Strings(out)
	return out
}
