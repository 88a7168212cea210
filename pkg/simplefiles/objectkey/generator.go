package objectkey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for blob key generation strategies
type Generator interface {
	// GenerateKey creates the key of an original payload. blobID is freshly
	// generated per payload and never derived from user input.
	GenerateKey(ownerID, blobID uuid.UUID) string
}

// FlatGenerator stores every payload directly under its blob id,
// the layout used by single-directory deployments.
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(ownerID, blobID uuid.UUID) string {
	return blobID.String()
}

// GitLikeGenerator provides Git-style sharded storage grouped by owner
// Original: originals/{owner}/ab/cd1234ef5678...
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(ownerID, blobID uuid.UUID) string {
	blobIDStr := strings.ReplaceAll(blobID.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength >= len(blobIDStr) {
		shardLength = 2
	}

	return fmt.Sprintf("originals/%s/%s/%s", ownerID, blobIDStr[:shardLength], blobIDStr[shardLength:])
}

// VariantKey returns the deterministic key of the derivative of ref at width.
// Writing the same variant twice targets the same key.
func VariantKey(ref string, width int) string {
	return fmt.Sprintf("%s_%d", ref, width)
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator() Generator {
	return NewGitLikeGenerator()
}
