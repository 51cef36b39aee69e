package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/xmsync/exclude"
)

func TestCleanTargetStep_Entries(t *testing.T) {
	m, err := exclude.New([]string{".env", "uploads", "*.pem"})
	require.NoError(t, err)
	s := NewCleanTargetStep()
	s.matcher = m

	got := s.Entries([]string{"src", ".env", "uploads", "server.pem", "index.html", "README"})
	assert.Equal(t, []string{"README", "index.html", "src"}, got)
}

func TestCleanTargetStep_NoPatterns(t *testing.T) {
	m, err := exclude.New(nil)
	require.NoError(t, err)
	s := NewCleanTargetStep()
	s.matcher = m

	assert.Equal(t, []string{"a", "b"}, s.Entries([]string{"b", "a"}))
}
