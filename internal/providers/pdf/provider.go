// Package pdf renders downloadable invoice documents.
package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
}
