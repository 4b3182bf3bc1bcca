package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/claude/coachplan/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TestClassify verifies driver errors map onto the error taxonomy.
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperr.KindNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), apperr.KindNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperr.KindConflict},
		{"other pg error", &pgconn.PgError{Code: "23503"}, apperr.KindInternal},
		{"plain error", errors.New("connection reset"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "plan %d", 7)
			if k := apperr.KindOf(got); k != tt.want {
				t.Errorf("kind = %v, want %v (err %v)", k, tt.want, got)
			}
		})
	}
}

// TestClassifyKeepsCause verifies unclassified errors stay unwrappable.
func TestClassifyKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := classify(cause, "inserting plan")
	if !errors.Is(err, cause) {
		t.Errorf("cause lost: %v", err)
	}
	if err.Error() != "inserting plan: connection reset" {
		t.Errorf("message = %q", err.Error())
	}
}
