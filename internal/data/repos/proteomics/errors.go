package proteomics

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
)

type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassNotFound
	ClassRetryable
)

// SQLSTATE codes worth a retry: serialization failure, deadlock, lock
// not available.
var retryableSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

func Classify(err error) ErrorClass {
	if err == nil {
		return ClassInternal
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, pkgerrors.ErrNotFound) {
		return ClassNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && retryableSQLStates[pgErr.Code] {
		return ClassRetryable
	}
	return ClassInternal
}

func IsRetryable(err error) bool { return Classify(err) == ClassRetryable }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, pkgerrors.ErrNotFound)
}
