package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefaultsToMedium(t *testing.T) {
	r := New(nil)
	assert.Equal(t, Medium, r.Level("unknown"))
	assert.Equal(t, 10.0, r.Penalty("unknown"))
}

func TestRegistrySetRejectsLoweringProtectedConstraint(t *testing.T) {
	r := New(map[string]Level{ConstraintClassUnique: Critical})
	err := r.Set(ConstraintClassUnique, High)
	require.Error(t, err)
	var protErr *ErrProtectedConstraint
	assert.ErrorAs(t, err, &protErr)
	assert.Equal(t, Critical, r.Level(ConstraintClassUnique))
}

func TestRegistrySetAllowsProtectedConstraintAtCritical(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Set(ConstraintTeacherUnique, Critical))
	assert.Equal(t, Critical, r.Level(ConstraintTeacherUnique))
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := New(map[string]Level{SoftNoGaps: High})
	snap := r.Snapshot()
	snap[SoftNoGaps] = Low
	assert.Equal(t, High, r.Level(SoftNoGaps))
}

func TestBuiltinProfilesCoverAllConstraints(t *testing.T) {
	for _, name := range []string{ProfileStrict, ProfileBalanced, ProfileFlexible, ProfileSpeed} {
		levels, ok := Profile(name)
		require.True(t, ok, name)
		for _, id := range hardConstraintIDs {
			_, present := levels[id]
			assert.True(t, present, "%s missing hard constraint %s", name, id)
		}
		for _, id := range softConstraintIDs {
			_, present := levels[id]
			assert.True(t, present, "%s missing soft constraint %s", name, id)
		}
	}
}

func TestStrictProfileKeepsHardConstraintsCritical(t *testing.T) {
	levels, _ := Profile(ProfileStrict)
	for _, id := range hardConstraintIDs {
		assert.Equal(t, Critical, levels[id])
	}
}

func TestSpeedProfileRelaxesSoftConstraintsToOptional(t *testing.T) {
	levels, _ := Profile(ProfileSpeed)
	for _, id := range softConstraintIDs {
		assert.Equal(t, Optional, levels[id])
	}
	assert.Equal(t, Critical, levels[ConstraintClassUnique])
	assert.Equal(t, Critical, levels[ConstraintTeacherUnique])
}

func TestMemoryProfileStoreSavesAndLoadsCustomProfile(t *testing.T) {
	store := NewMemoryProfileStore()
	custom := map[string]Level{ConstraintClassUnique: Critical, SoftNoGaps: High}
	require.NoError(t, store.Save("weekend-light", custom))

	loaded, ok, err := store.Load("weekend-light")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, High, loaded[SoftNoGaps])

	names, err := store.List()
	require.NoError(t, err)
	assert.Contains(t, names, "weekend-light")
	assert.Contains(t, names, ProfileBalanced)
}

func TestMemoryProfileStoreLoadsBuiltinsByName(t *testing.T) {
	store := NewMemoryProfileStore()
	loaded, ok, err := store.Load(ProfileFlexible)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, High, loaded[ConstraintClassUnique])
}

func TestMemoryProfileStoreLoadMissingReturnsFalse(t *testing.T) {
	store := NewMemoryProfileStore()
	_, ok, err := store.Load("does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}
