// internal/repository/postgres/errors.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	xerrors "luckylogic-crm/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error carries a Postgres SQLSTATE through the service layer.
type Error struct {
	Code    string
	Message string
	Detail  string
	Hint    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("postgres error %s: %s", e.Code, e.Message)
}

func (e *Error) RemoteCode() string    { return e.Code }
func (e *Error) RemoteMessage() string { return e.Message }
func (e *Error) RemoteHint() string    { return e.Hint }

var _ xerrors.RemoteError = (*Error)(nil)

// translate maps driver errors onto the shared error vocabulary.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Code: pgErr.Code, Message: pgErr.Message, Detail: pgErr.Detail, Hint: pgErr.Hint}
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", xerrors.ErrUnreachable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
