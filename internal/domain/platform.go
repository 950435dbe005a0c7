package domain

// Platform identifies an advertising platform. Values are the canonical
// lower-case names produced by the value normalizer; anything read from user
// input should pass through normalize.Platform before being compared.
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformFacebook Platform = "facebook"
	PlatformGoogle   Platform = "google"
)

// KnownPlatforms lists the platforms with a canonical field vocabulary.
var KnownPlatforms = []Platform{PlatformLinkedIn, PlatformFacebook, PlatformGoogle}

// IsKnown reports whether p is one of the supported ad platforms.
func (p Platform) IsKnown() bool {
	for _, k := range KnownPlatforms {
		if p == k {
			return true
		}
	}
	return false
}
