package domain

// XPPerLevel is the flat amount of XP each level costs.
const XPPerLevel = 100

// LevelFromXP derives the level from cumulative XP: floor(xp/100) + 1.
// Stored levels must always equal this value for the stored xp.
func LevelFromXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}
