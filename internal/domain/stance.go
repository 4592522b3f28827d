package domain

// Stance selects which mannequin anchor asset a try-on session composites
// onto.
type Stance string

// Supported stance values. Unknown selectors fall back to DefaultStance.
const (
	StanceFemale Stance = "female"
	StanceMale   Stance = "male"
)

// DefaultStance is used when a submission omits the selector or supplies an
// unknown value.
const DefaultStance = StanceFemale

// Storage keys of the anchor assets, one per stance.
const (
	femaleAnchorKey = "assets/female_mannequin_anchor.png"
	maleAnchorKey   = "assets/male_mannequin_anchor.png"
)

// ParseStance maps a raw selector to a Stance. The enum is closed: anything
// unrecognized falls back to the default rather than failing.
func ParseStance(raw string) Stance {
	switch Stance(raw) {
	case StanceFemale, StanceMale:
		return Stance(raw)
	default:
		return DefaultStance
	}
}

// AnchorKey returns the object storage key of the stance's anchor image.
func (s Stance) AnchorKey() string {
	if s == StanceMale {
		return maleAnchorKey
	}
	return femaleAnchorKey
}
