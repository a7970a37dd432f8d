package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestOpenCreatesTables(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), &probe{})
	if err != nil {
		t.Skipf("sqlite недоступен (нужен cgo): %v", err)
	}
	defer Close(db)

	require.NoError(t, db.Create(&probe{ID: 1, Name: "x"}).Error)

	var got probe
	require.NoError(t, db.First(&got, 1).Error)
	assert.Equal(t, "x", got.Name)
	assert.True(t, db.Migrator().HasTable(&probe{}))
}
