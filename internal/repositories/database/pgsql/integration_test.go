//go:build integration

package pgsql_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/SscSPs/repair_shop_billing/internal/core/numbering"
	portsrepo "github.com/SscSPs/repair_shop_billing/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/repair_shop_billing/internal/core/ports/services"
	"github.com/SscSPs/repair_shop_billing/internal/core/services"
	"github.com/SscSPs/repair_shop_billing/internal/dto"
	"github.com/SscSPs/repair_shop_billing/internal/repositories/database/pgsql"
	"github.com/SscSPs/repair_shop_billing/pkg/database"
)

type PgsqlLedgerSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	repos     portsrepo.RepositoryProvider
	invoices  portssvc.InvoiceSvcFacade
	quotes    portssvc.QuoteSvcFacade
	clients   portssvc.ClientSvcFacade
}

func TestPgsqlLedgerSuite(t *testing.T) {
	suite.Run(t, new(PgsqlLedgerSuite))
}

func (s *PgsqlLedgerSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("billing_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	_, err = database.RunMigrations(dsn, "file://../../../../migrations", database.MigrateUp)
	s.Require().NoError(err)

	s.pool, err = database.NewPgxPool(s.ctx, dsn, true)
	s.Require().NoError(err)
	s.repos = pgsql.NewRepositoryProvider(s.pool)

	runner := services.NewTxRunner(s.repos.TxManager, services.WithMaxAttempts(50), services.WithBaseBackoff(5*time.Millisecond))
	numbers := numbering.NewGenerator()
	s.invoices = services.NewInvoiceService(s.repos.InvoiceRepo, runner, numbers)
	s.quotes = services.NewQuoteService(s.repos.QuoteRepo, runner, numbers)
	s.clients = services.NewClientService(s.repos.ClientRepo, runner)
}

func (s *PgsqlLedgerSuite) TearDownSuite() {
	database.ClosePgxPool(s.pool)
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PgsqlLedgerSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE invoices, quotes, clients, billing_settings, number_sequences`)
	s.Require().NoError(err)
	s.Require().NoError(s.repos.SettingsRepo.SaveBillingSettings(s.ctx, domain.BillingSettings{
		VATRate:              decimal.NewFromInt(20),
		Prefix:               "INV",
		NumberingFormat:      domain.NumberingIncrement,
		NextNumber:           1,
		AutoNumbering:        true,
		DefaultDueDays:       30,
		AllowPartialPayments: true,
		AllowDeposits:        true,
		MinDepositPercentage: decimal.NewFromInt(25),
	}))
}

func (s *PgsqlLedgerSuite) newClient(name string) *domain.Client {
	c, err := s.clients.CreateClient(s.ctx, dto.CreateClientRequest{Name: name}, "tester")
	s.Require().NoError(err)
	return c
}

func lineItems(qty, price string) []dto.LineItemRequest {
	return []dto.LineItemRequest{{Description: "labour", Quantity: decimal.RequireFromString(qty), UnitPrice: decimal.RequireFromString(price)}}
}

func (s *PgsqlLedgerSuite) TestInvoiceLifecycle() {
	client := s.newClient("alice")

	inv, err := s.invoices.CreateInvoice(s.ctx, dto.CreateInvoiceRequest{ClientID: client.ClientID, Items: lineItems("2", "50.00")}, "tester")
	s.Require().NoError(err)
	s.Equal("INV-000001", inv.Number)
	s.True(inv.Total.Equal(decimal.NewFromInt(120)))

	paid, err := s.invoices.ApplyPayment(s.ctx, inv.InvoiceID, dto.ApplyPaymentRequest{Amount: decimal.NewFromInt(50), Method: domain.PaymentCash}, "tester")
	s.Require().NoError(err)
	s.Equal(domain.InvoicePartial, paid.Status)

	_, err = s.invoices.ApplyPayment(s.ctx, inv.InvoiceID, dto.ApplyPaymentRequest{Amount: decimal.NewFromInt(200), Method: domain.PaymentCash}, "tester")
	s.ErrorIs(err, apperrors.ErrInvalidPaymentAmount)

	stored, err := s.invoices.GetInvoiceByID(s.ctx, inv.InvoiceID)
	s.Require().NoError(err)
	s.Require().Len(stored.Payments, 1)
	s.True(stored.RemainingAmount.Equal(decimal.NewFromInt(70)))

	c, err := s.clients.GetClientByID(s.ctx, client.ClientID)
	s.Require().NoError(err)
	s.True(c.TotalSpent.Equal(decimal.NewFromInt(50)))

	err = s.clients.DeleteClient(s.ctx, client.ClientID, "tester")
	s.ErrorIs(err, apperrors.ErrClientHasInvoices)

	s.Require().NoError(s.invoices.DeleteInvoice(s.ctx, inv.InvoiceID, "tester"))
	c, err = s.clients.GetClientByID(s.ctx, client.ClientID)
	s.Require().NoError(err)
	s.True(c.TotalSpent.IsZero())

	settings, err := s.repos.SettingsRepo.GetBillingSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), settings.NextNumber)

	s.Require().NoError(s.clients.DeleteClient(s.ctx, client.ClientID, "tester"))
}

func (s *PgsqlLedgerSuite) TestConcurrentIncrementNumbering() {
	client := s.newClient("bob")

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]struct{}{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := s.invoices.CreateInvoice(s.ctx, dto.CreateInvoiceRequest{ClientID: client.ClientID, Items: lineItems("1", "10")}, "tester")
			if !s.NoError(err) {
				return
			}
			mu.Lock()
			numbers[inv.Number] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.Len(numbers, n)

	settings, err := s.repos.SettingsRepo.GetBillingSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(n+1), settings.NextNumber)
}

func (s *PgsqlLedgerSuite) TestConvertQuoteOnce() {
	client := s.newClient("carol")
	quote, err := s.quotes.CreateQuote(s.ctx, dto.CreateQuoteRequest{ClientID: client.ClientID, Items: lineItems("3", "100")}, "tester")
	s.Require().NoError(err)

	_, inv, err := s.quotes.ConvertQuote(s.ctx, quote.QuoteID, "tester")
	s.Require().NoError(err)
	s.True(inv.Total.Equal(decimal.NewFromInt(360)))

	_, _, err = s.quotes.ConvertQuote(s.ctx, quote.QuoteID, "tester")
	s.ErrorIs(err, apperrors.ErrQuoteNotPending)
}

func (s *PgsqlLedgerSuite) TestListInvoicesPagination() {
	client := s.newClient("dave")
	for i := 0; i < 5; i++ {
		_, err := s.invoices.CreateInvoice(s.ctx, dto.CreateInvoiceRequest{ClientID: client.ClientID, Items: lineItems("1", "10")}, "tester")
		s.Require().NoError(err)
	}

	seen := map[string]struct{}{}
	var token *string
	for {
		page, err := s.invoices.ListInvoices(s.ctx, dto.ListInvoicesParams{ListParams: dto.ListParams{Limit: 2, NextToken: token}})
		s.Require().NoError(err)
		for _, inv := range page.Invoices {
			seen[inv.InvoiceID] = struct{}{}
		}
		if page.NextToken == nil {
			break
		}
		token = page.NextToken
	}
	s.Len(seen, 5)
}

func TestMigrationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60*time.Second)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	changed, err := database.RunMigrations(dsn, "file://../../../../migrations", database.MigrateUp)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = database.RunMigrations(dsn, "file://../../../../migrations", database.MigrateUp)
	require.NoError(t, err)
	require.False(t, changed)

	_, err = database.RunMigrations(dsn, "file://../../../../migrations", database.MigrateDown)
	require.NoError(t, err)
}
