// Package sheets defines the ports for the outbound spreadsheet sync.
package sheets

import (
	"context"

	"mindcash/internal/core"
)

type (
	// TransactionAppender writes one transaction row for a user.
	TransactionAppender interface {
		Append(ctx context.Context, ownerEmail string, t core.Transaction) (rowRef string, err error)
	}

	// TransactionDeleter removes the row holding the given transaction id.
	TransactionDeleter interface {
		Delete(ctx context.Context, id string) error
	}
)
