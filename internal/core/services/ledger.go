package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/core/numbering"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
)

// systemUserID stamps writes made by read paths and maintenance jobs.
const systemUserID = "system"

func invoiceNumberLookup(tx portsrepo.InvoiceTx) numbering.Lookup {
	return numbering.LookupFuncs{
		Exists: tx.InvoiceNumberExists,
		Latest: tx.LatestInvoiceNumber,
	}
}

func quoteNumberLookup(tx portsrepo.QuoteTx) numbering.Lookup {
	return numbering.LookupFuncs{
		Exists: tx.QuoteNumberExists,
		Latest: tx.LatestQuoteNumber,
	}
}

// mintInvoiceNumber generates an invoice number inside tx. Under increment numbering with
// auto-numbering on, the prefix sequence row is read and advanced in the same transaction,
// so two concurrent creations can never commit with the same seed.
func mintInvoiceNumber(ctx context.Context, gen *numbering.Generator, tx portsrepo.LedgerTx, settings *domain.BillingSettings) (string, error) {
	seed := settings.NextNumber
	if settings.UsesSequence() {
		next, found, err := tx.LockSequence(ctx, settings.Prefix)
		if err != nil {
			return "", fmt.Errorf("reading invoice sequence: %w", err)
		}
		if found && next > seed {
			seed = next
		}
	}

	res, err := gen.Generate(ctx, invoiceNumberLookup(tx), settings.Prefix, settings.NumberingFormat, seed)
	if err != nil {
		return "", err
	}

	if settings.UsesSequence() {
		if err := tx.SaveSequence(ctx, settings.Prefix, res.Sequence+1); err != nil {
			return "", fmt.Errorf("advancing invoice sequence: %w", err)
		}
	}
	return res.Number, nil
}
