package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oem-ev-warranty/parts-service/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// AssertEventually asserts that a condition becomes true within a timeout
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		<-ticker.C
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within timeout: %s", message)
		}
	}
}

// OpenSQLite returns a private in-memory database that lives until the test
// ends. The pool holds a single connection, so transactions run one at a time.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	db, err := database.Open(&database.Config{
		Driver:       database.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
