package pgxdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamplay/rewards/pkg/pgxdb"
)

func TestNewConnectionRejectsInvalidConnectionString(t *testing.T) {
	t.Parallel()

	// Act
	pool, err := pgxdb.NewConnection(t.Context(), "postgres://%zz", pgxdb.WithMaxConns(1))

	// Assert
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, pgxdb.ErrInvalidConnectionString)
}
