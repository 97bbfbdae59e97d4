package storage

import (
	"chatty/errors"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestPreferenceRepository_Missing_Key(t *testing.T) {
	req := require.New(t)
	db, err := OpenDB("")
	req.NoError(err)
	defer db.Close()
	repo := NewPreferenceRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err = repo.GetPreference("chat-theme")

	req.ErrorIs(err, errors.ErrPreferenceNotFound)
}

func TestPreferenceRepository_Last_Write_Wins(t *testing.T) {
	req := require.New(t)
	db, err := OpenDB("")
	req.NoError(err)
	defer db.Close()
	repo := NewPreferenceRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	req.NoError(repo.SetPreference("chat-theme", "dark"))
	req.NoError(repo.SetPreference("chat-theme", "cupcake"))

	value, err := repo.GetPreference("chat-theme")
	req.NoError(err)
	req.Equal("cupcake", value)
}

func TestPreferenceRepository_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a value written by a previous run
	db, err := OpenDB(dir)
	req.NoError(err)
	req.NoError(NewPreferenceRepository(db, log).SetPreference("chat-theme", "synthwave"))
	req.NoError(db.Close())

	// When the store is opened again
	db, err = OpenDB(dir)
	req.NoError(err)
	defer db.Close()

	// Then
	value, err := NewPreferenceRepository(db, log).GetPreference("chat-theme")
	req.NoError(err)
	req.Equal("synthwave", value)
}

func TestPreferenceRepository_List(t *testing.T) {
	req := require.New(t)
	db, err := OpenDB("")
	req.NoError(err)
	defer db.Close()
	repo := NewPreferenceRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(repo.SetPreference("chat-theme", "dracula"))
	req.NoError(repo.SetPreference("chat-theme", "forest"))
	req.NoError(repo.SetPreference("other", "x"))

	prefs, err := repo.ListPreferences()

	req.NoError(err)
	req.Equal(map[string]string{"chat-theme": "forest", "other": "x"}, prefs)
}
