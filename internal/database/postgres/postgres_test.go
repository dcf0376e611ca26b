package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation on the code index",
			err:  &pgconn.PgError{Code: uniqueViolationErrCode},
			want: true,
		},
		{
			name: "different SQLSTATE",
			err:  &pgconn.PgError{Code: "40001"},
			want: false,
		},
		{
			name: "not a PgError",
			err:  errors.New("unknown error"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isUniqueViolationError(tt.err)

			assert.Equal(t, tt.want, got)
		})
	}
}
