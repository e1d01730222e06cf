package domain

import (
	"fmt"
	"strings"
	"time"
)

// Raw artifacts are named {SYMBOL}_{fetchTimestamp}{ext}. The basename is
// preserved when an artifact moves between the raw, parsed and deadletter
// areas so provenance stays traceable.
const (
	ArtifactExt        = ".html"
	artifactTimeLayout = "20060102T150405Z"
)

// ArtifactName builds the canonical basename for one fetch of one symbol
func ArtifactName(symbol string, fetchedAt time.Time) string {
	return fmt.Sprintf("%s_%s%s", symbol, fetchedAt.UTC().Format(artifactTimeLayout), ArtifactExt)
}

// ParseArtifactName splits a basename back into symbol and fetch time.
// Anything in a managed directory that fails this parse is foreign.
func ParseArtifactName(name string) (symbol string, fetchedAt time.Time, err error) {
	base, ok := strings.CutSuffix(name, ArtifactExt)
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: %q has no %s suffix", ErrMalformedArtifact, name, ArtifactExt)
	}

	idx := strings.LastIndex(base, "_")
	if idx <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrMalformedArtifact, name)
	}

	symbol = base[:idx]
	if err := ValidateSymbolName(symbol); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %q has invalid symbol", ErrMalformedArtifact, name)
	}

	fetchedAt, perr := time.Parse(artifactTimeLayout, base[idx+1:])
	if perr != nil {
		return "", time.Time{}, fmt.Errorf("%w: %q has invalid timestamp", ErrMalformedArtifact, name)
	}

	return symbol, fetchedAt, nil
}

// DeadletterMeta describes a failed artifact awaiting bounded retry.
// It is persisted next to the artifact in the deadletter area and kept
// there while the artifact itself is requeued, so the attempt count
// survives repeated failures.
type DeadletterMeta struct {
	Artifact    string     `json:"artifact"`
	Reason      string     `json:"reason"`
	Attempts    int        `json:"attempts"`
	FailedAt    time.Time  `json:"failed_at"`
	LastRetryAt *time.Time `json:"last_retry_at,omitempty"`
}

// DeadletterEntry pairs a deadlettered artifact with its metadata
type DeadletterEntry struct {
	Name string
	Meta DeadletterMeta
}
