package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadGames(t *testing.T, configPath string) []GameConfig {
	t.Helper()

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg.Games
}

func TestSaveGames_NewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	games := []GameConfig{
		{Name: "quake3", Label: "Quake III Arena", Environments: []string{"duel"}},
		{Name: "cs2"},
	}
	require.NoError(t, SaveGames(configPath, games))

	got := loadGames(t, configPath)
	require.Len(t, got, 2)
	require.Equal(t, "quake3", got[0].Name)
	require.Equal(t, []string{"duel"}, got[0].Environments)
	require.Equal(t, "cs2", got[1].Name)
	require.Empty(t, got[1].Label)
}

func TestSaveGames_PreservesOtherSectionsAndComments(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	seed := `# my tuned setup
auto_reload: false
debounce_ms: 250

games:
  - name: old
`
	require.NoError(t, os.WriteFile(configPath, []byte(seed), 0o600))

	require.NoError(t, SaveGames(configPath, []GameConfig{{Name: "quake3"}}))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	text := string(data)

	require.Contains(t, text, "# my tuned setup", "comments outside games must survive")
	require.Contains(t, text, "auto_reload: false")
	require.Contains(t, text, "debounce_ms: 250")
	require.NotContains(t, text, "name: old")

	got := loadGames(t, configPath)
	require.Len(t, got, 1)
	require.Equal(t, "quake3", got[0].Name)
}

func TestSaveGames_AppendsWhenSectionMissing(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("auto_reload: true\n"), 0o600))

	require.NoError(t, SaveGames(configPath, []GameConfig{{Name: "cs2"}}))

	got := loadGames(t, configPath)
	require.Len(t, got, 1)
	require.Equal(t, "cs2", got[0].Name)
}

func TestSaveGames_ValidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	require.NoError(t, SaveGames(configPath, []GameConfig{
		{Name: "quake3", Label: `Quake "III"`, Environments: []string{"duel", "ctf"}},
	}))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc), "saved config must stay parseable")
}

func TestAddGame(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	existing := []GameConfig{{Name: "quake3"}}
	require.NoError(t, AddGame(configPath, GameConfig{Name: "cs2", Label: "Counter-Strike 2"}, existing))

	got := loadGames(t, configPath)
	require.Len(t, got, 2)
	require.Equal(t, "cs2", got[1].Name)
}

func TestAddGame_DuplicateName(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	err := AddGame(configPath, GameConfig{Name: "quake3"}, []GameConfig{{Name: "quake3"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestUpdateGame(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	all := []GameConfig{{Name: "quake3"}, {Name: "cs2"}}
	require.NoError(t, UpdateGame(configPath, 1, GameConfig{Name: "cs2", Label: "CS2"}, all))

	got := loadGames(t, configPath)
	require.Equal(t, "CS2", got[1].Label)
	require.Empty(t, all[1].Label, "caller's slice must not be mutated")
}

func TestUpdateGame_IndexOutOfRange(t *testing.T) {
	err := UpdateGame(filepath.Join(t.TempDir(), "k.yaml"), 5, GameConfig{}, []GameConfig{{Name: "a"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestDeleteGame(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	all := []GameConfig{{Name: "quake3"}, {Name: "cs2"}}
	require.NoError(t, DeleteGame(configPath, 0, all))

	got := loadGames(t, configPath)
	require.Len(t, got, 1)
	require.Equal(t, "cs2", got[0].Name)
}

func TestDeleteGame_LastGameAllowed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	require.NoError(t, DeleteGame(configPath, 0, []GameConfig{{Name: "quake3"}}))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "games")
}

func TestRenameGame(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "keydeck.yaml")

	all := []GameConfig{{Name: "quake3", Label: "Old"}}
	require.NoError(t, RenameGame(configPath, 0, "Quake III Arena", all))

	got := loadGames(t, configPath)
	require.Equal(t, "Quake III Arena", got[0].Label)
}

func TestSaveGames_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "keydeck.yaml")

	require.NoError(t, SaveGames(configPath, []GameConfig{{Name: "quake3"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".keydeck.yaml.tmp"),
			"temp file %s should have been renamed away", e.Name())
	}
}
