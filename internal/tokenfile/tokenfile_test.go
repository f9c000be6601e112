package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_FileNotFound(t *testing.T) {
	tok, meta, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Nil(t, tok)
	assert.Nil(t, meta)
	assert.NoError(t, err)
}

func TestSaveLoad_PreservesTokenAndMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", "default.json")

	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	original := &oauth2.Token{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}

	require.NoError(t, Save(path, original, map[string]string{
		MetaAccount: "default",
		MetaChannel: "Book Trailers",
	}))

	tok, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", tok.AccessToken)
	assert.Equal(t, "1//refresh", tok.RefreshToken)
	assert.True(t, tok.Expiry.Equal(expiry))
	assert.Equal(t, "default", meta[MetaAccount])
	assert.Equal(t, "Book Trailers", meta[MetaChannel])
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a"}, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_NilToken(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "t.json"), nil, nil)
	assert.Error(t, err)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.json")

	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "one"}, nil))
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "two"}, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t.json", entries[0].Name())

	tok, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "two", tok.AccessToken)
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"meta":{"account":"x"}}`), FilePerms))

	tok, meta, err := Load(path)
	assert.Nil(t, tok)
	assert.Nil(t, meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no token")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), FilePerms))

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestReadMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "a"}, map[string]string{MetaAccount: "work"}))

	meta, err := ReadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, "work", meta[MetaAccount])

	meta, err = ReadMeta(filepath.Join(t.TempDir(), "none.json"))
	assert.NoError(t, err)
	assert.Nil(t, meta)
}
