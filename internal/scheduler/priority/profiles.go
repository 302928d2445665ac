package priority

// Hard and soft constraint ids recognised by the built-in profiles.
// The soft ids mirror the scorer package's constraint id constants.
const (
	ConstraintAvailability     = "I4_AVAILABILITY"
	ConstraintNoSplit          = "I5_NO_SPLIT"
	ConstraintMaxConsecutive   = "I6_MAX_CONSECUTIVE"
	ConstraintBlockIntegrity   = "I7_BLOCK_INTEGRITY"
	ConstraintBlockDispersion  = "I8_BLOCK_DISPERSION"
	ConstraintHoursFidelity    = "I9_HOURS_FIDELITY"

	SoftTeacherTimePref      = "teacher_time_pref"
	SoftBalancedDailyLoad    = "balanced_daily_load"
	SoftLessonSpacing        = "lesson_spacing"
	SoftDifficultMorning     = "difficult_morning"
	SoftTeacherLoadBalance   = "teacher_load_balance"
	SoftConsecutiveBlockBonus = "consecutive_block_bonus"
	SoftNoGaps               = "no_gaps"
	SoftLunchLight           = "lunch_light"
)

var hardConstraintIDs = []string{
	ConstraintClassUnique, ConstraintTeacherUnique, ConstraintAvailability,
	ConstraintNoSplit, ConstraintMaxConsecutive, ConstraintBlockIntegrity,
	ConstraintBlockDispersion, ConstraintHoursFidelity,
}

var softConstraintIDs = []string{
	SoftTeacherTimePref, SoftBalancedDailyLoad, SoftLessonSpacing,
	SoftDifficultMorning, SoftTeacherLoadBalance, SoftConsecutiveBlockBonus,
	SoftNoGaps, SoftLunchLight,
}

// Built-in profile names (§6.4).
const (
	ProfileStrict   = "strict"
	ProfileBalanced = "balanced"
	ProfileFlexible = "flexible"
	ProfileSpeed    = "speed"
)

// Profile returns the built-in levels map for name, or false if name is
// not one of the four presets.
func Profile(name string) (map[string]Level, bool) {
	switch name {
	case ProfileStrict:
		return uniform(hardConstraintIDs, Critical, softConstraintIDs, High), true
	case ProfileBalanced:
		return balancedDefaults(), true
	case ProfileFlexible:
		return uniform(hardConstraintIDs, High, softConstraintIDs, Low), true
	case ProfileSpeed:
		levels := uniform([]string{ConstraintClassUnique, ConstraintTeacherUnique}, Critical, softConstraintIDs, Optional)
		for _, id := range hardConstraintIDs {
			if id == ConstraintClassUnique || id == ConstraintTeacherUnique {
				continue
			}
			levels[id] = High
		}
		return levels, true
	default:
		return nil, false
	}
}

func uniform(hardIDs []string, hardLevel Level, softIDs []string, softLevel Level) map[string]Level {
	levels := make(map[string]Level, len(hardIDs)+len(softIDs))
	for _, id := range hardIDs {
		levels[id] = hardLevel
	}
	for _, id := range softIDs {
		levels[id] = softLevel
	}
	return levels
}

// balancedDefaults mirrors §4.4's relative weight ordering by mapping the
// highest-weight soft rules to High and the rest to Medium; hard
// constraints are all Critical.
func balancedDefaults() map[string]Level {
	levels := uniform(hardConstraintIDs, Critical, nil, "")
	highWeight := map[string]struct{}{
		SoftNoGaps:            {},
		SoftBalancedDailyLoad: {},
		SoftLessonSpacing:     {},
	}
	for _, id := range softConstraintIDs {
		if _, ok := highWeight[id]; ok {
			levels[id] = High
		} else {
			levels[id] = Medium
		}
	}
	return levels
}

// ProfileStore persists named priority profiles (§6.4). The registry's
// Snapshot() is the value saved/loaded.
type ProfileStore interface {
	Save(profileName string, levels map[string]Level) error
	Load(profileName string) (map[string]Level, bool, error)
	List() ([]string, error)
}

// MemoryProfileStore is the default ProfileStore: the four built-ins plus
// any custom profiles saved at runtime, matching the original source's
// constraint_priority_manager.py save_custom_profile/load_profile pair
// (supplemented feature, see SPEC_FULL.md).
type MemoryProfileStore struct {
	custom map[string]map[string]Level
}

// NewMemoryProfileStore returns a ProfileStore seeded with no custom
// profiles; the four built-ins are always available via Profile().
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{custom: make(map[string]map[string]Level)}
}

func (s *MemoryProfileStore) Save(profileName string, levels map[string]Level) error {
	snapshot := make(map[string]Level, len(levels))
	for k, v := range levels {
		snapshot[k] = v
	}
	s.custom[profileName] = snapshot
	return nil
}

func (s *MemoryProfileStore) Load(profileName string) (map[string]Level, bool, error) {
	if levels, ok := Profile(profileName); ok {
		return levels, true, nil
	}
	if levels, ok := s.custom[profileName]; ok {
		return levels, true, nil
	}
	return nil, false, nil
}

func (s *MemoryProfileStore) List() ([]string, error) {
	names := []string{ProfileStrict, ProfileBalanced, ProfileFlexible, ProfileSpeed}
	for name := range s.custom {
		names = append(names, name)
	}
	return names, nil
}
