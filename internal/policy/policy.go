// Package policy maps a parent-child link's declared surveillance tier to a
// read-visibility decision over the child's conversations. The mapping is pure;
// enforcement happens at the repository boundary, because the parent's client
// cannot be trusted to only request conversations it is allowed to see.
package policy

// Tier is the parent-declared strictness level on a parent-child link.
type Tier string

const (
	TierStrict Tier = "strict"
	TierMedium Tier = "medium"
	TierMild   Tier = "mild"
)

// Visibility is the read-access decision derived from a tier.
type Visibility string

const (
	// VisibilityFull grants read access to all of the child's conversations.
	VisibilityFull Visibility = "full"
	// VisibilityFlaggedOnly grants read access only to conversations that
	// contain at least one flagged message.
	VisibilityFlaggedOnly Visibility = "flagged-only"
	// VisibilityNone grants no direct read access; the parent learns of
	// concerns only through relayed advisories.
	VisibilityNone Visibility = "none"
)

// ValidTier reports whether t is one of the declared tiers.
func ValidTier(t Tier) bool {
	switch t {
	case TierStrict, TierMedium, TierMild:
		return true
	}
	return false
}

// ForTier returns the visibility decision for a tier. Unknown tiers resolve
// to VisibilityNone so a corrupted link can never widen access.
func ForTier(t Tier) Visibility {
	switch t {
	case TierStrict:
		return VisibilityFull
	case TierMedium:
		return VisibilityFlaggedOnly
	default:
		return VisibilityNone
	}
}
