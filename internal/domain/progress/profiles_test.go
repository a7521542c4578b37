package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()

	standard, err := profiles.Keys("")
	require.NoError(t, err)
	assert.Len(t, standard, 20)

	extended, err := profiles.Keys(ProfileExtended)
	require.NoError(t, err)
	assert.Len(t, extended, 25)
	assert.Equal(t, standard, extended[:20])

	_, err = profiles.Keys("unknown")
	assert.Error(t, err)
}

func TestKeysReturnsCopy(t *testing.T) {
	profiles := DefaultProfiles()
	keys, err := profiles.Keys(ProfileStandard)
	require.NoError(t, err)
	keys[0] = "mutated"

	again, err := profiles.Keys(ProfileStandard)
	require.NoError(t, err)
	assert.Equal(t, KeyPersonalInformation, again[0])
}

func TestParseProfiles(t *testing.T) {
	raw := []byte(`
default: nursing
profiles:
  nursing:
    - i9Form
    - w9Form
    - i9Form
    - professionalLicense
`)
	profiles, err := ParseProfiles(raw)
	require.NoError(t, err)

	keys, err := profiles.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{KeyI9Form, KeyW9Form, KeyProfessionalLicense}, keys)

	// built-in profiles survive a partial file
	_, err = profiles.Keys(ProfileExtended)
	assert.NoError(t, err)
	assert.Equal(t, []string{"extended", "nursing", "standard"}, profiles.Names())
}

func TestParseProfilesRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"empty profile":    "profiles:\n  empty: []\n",
		"unknown default":  "default: missing\n",
		"unknown yaml key": "defaults: standard\n",
		"not a list":       "profiles:\n  standard: i9Form\n",
	}
	for name, raw := range tests {
		raw := raw
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form_keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: extended\n"), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	keys, err := profiles.Keys("")
	require.NoError(t, err)
	assert.Len(t, keys, 25)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	fallback, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, ProfileStandard, fallback.Default)
}

func TestShippedProfileFileMatchesDefaults(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join("..", "..", "..", "config", "form_keys.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StandardKeys(), profiles.Profiles[ProfileStandard])
	assert.Equal(t, ExtendedKeys(), profiles.Profiles[ProfileExtended])
}

func TestJobDescriptionKeyForPosition(t *testing.T) {
	assert.Equal(t, KeyJobDescriptionCNA, JobDescriptionKeyForPosition("CNA"))
	assert.Equal(t, KeyJobDescriptionLPN, JobDescriptionKeyForPosition("LPN"))
	assert.Equal(t, KeyJobDescriptionRN, JobDescriptionKeyForPosition("RN"))
	assert.Equal(t, KeyJobDescriptionPCA, JobDescriptionKeyForPosition(""))
	assert.Equal(t, KeyJobDescriptionPCA, JobDescriptionKeyForPosition("PCA"))
}
