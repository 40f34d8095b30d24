package store

import (
	"fmt"
	"testing"

	"github.com/basislager/dstcrawl/utils"
)

// NewTestStore creates a private in-memory SQLite store with the schema
// migrated and foreign keys enforced, dropped when the test finishes. Each
// call gets its own database so tests cannot observe one another.
func NewTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:testonlydb_%s?mode=memory&cache=shared", utils.RandomAlphabetString(8))
	s, err := OpenSQLite(dsn)
	if err != nil {
		t.Fatal("cannot open test store:", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
