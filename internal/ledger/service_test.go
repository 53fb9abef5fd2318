package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/cart"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/pkg/config"
	"github.com/angelmondragon/catalogbrowser/pkg/db"
	"github.com/angelmondragon/catalogbrowser/pkg/db/models"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *db.Client {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Migrate(context.Background()))
	return client
}

func newTestService(t *testing.T) Service {
	t.Helper()
	client := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)
	return svc
}

func snapshotOf(t *testing.T, at time.Time, lines ...cart.Line) cart.Snapshot {
	t.Helper()
	c := cart.New()
	for _, l := range lines {
		_, err := c.Add(l.Product, l.Quantity)
		require.NoError(t, err)
	}
	snap, err := c.Checkout(at, nil)
	require.NoError(t, err)
	return snap
}

var (
	pen = catalog.Product{Name: "Pen", Category: "Office", Price: 1.50, Rating: 4.0}
	mug = catalog.Product{Name: "Mug", Category: "Kitchen", Price: 8.00, Rating: 3.0}
)

func TestService_RecordAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	first, err := svc.Record(ctx, "session-a", snapshotOf(t, at, cart.Line{Product: pen, Quantity: 5}))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 7.5, first.Total)
	assert.Equal(t, 5, first.ItemCount)

	second, err := svc.Record(ctx, "session-a", snapshotOf(t, at.Add(time.Minute),
		cart.Line{Product: mug, Quantity: 1},
		cart.Line{Product: pen, Quantity: 2},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, 11.0, second.Total)

	purchases, err := svc.List(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, first.ID, purchases[0].ID)
	assert.True(t, purchases[0].PurchasedAt.Equal(at))
	assert.Equal(t, 7.5, purchases[0].Total)
	require.Len(t, purchases[1].Lines, 2)
	assert.Equal(t, "Mug", purchases[1].Lines[0].Product.Name)
	assert.Equal(t, "Pen", purchases[1].Lines[1].Product.Name)
	assert.Equal(t, 2, purchases[1].Lines[1].Quantity)
	assert.Equal(t, pen, purchases[1].Lines[1].Product)

	page, err := svc.Page(ctx, "session-a", pagination.Params{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, "a", snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 1}))
	require.NoError(t, err)
	other, err := svc.Record(ctx, "b", snapshotOf(t, time.Now(), cart.Line{Product: mug, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, 1, other.Sequence)

	purchases, err := svc.List(ctx, "b")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "Mug", purchases[0].Lines[0].Product.Name)

	empty, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_RecordValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, " ", snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 1}))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.Record(ctx, "a", cart.Snapshot{At: time.Now()})
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	assert.True(t, errors.Is(err, cart.ErrEmptyCart))

	_, err = svc.Record(ctx, "a", cart.Snapshot{Lines: []cart.Line{{Product: pen, Quantity: 0}}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	page, err := svc.Page(ctx, "a", pagination.Params{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Purchases)
}

func TestService_StoresSnapshotTotal(t *testing.T) {
	svc := newTestService(t)
	snap := snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 2})
	snap.Total = decimal.RequireFromString("2.75")

	purchase, err := svc.Record(context.Background(), "a", snap)
	require.NoError(t, err)
	assert.Equal(t, 2.75, purchase.Total)
}

func TestService_PageWalksSequences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Record(ctx, "pager", snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: i + 1}))
		require.NoError(t, err)
	}

	first, err := svc.Page(ctx, "pager", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Purchases, 2)
	assert.Equal(t, 1, first.Purchases[0].Sequence)
	assert.EqualValues(t, 5, first.Total)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.Page(ctx, "pager", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Purchases, 2)
	assert.Equal(t, 3, second.Purchases[0].Sequence)

	last, err := svc.Page(ctx, "pager", pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Purchases, 1)
	assert.Equal(t, 5, last.Purchases[0].Sequence)
	assert.Equal(t, 5, last.Purchases[0].ItemCount)
	assert.Empty(t, last.NextCursor)

	exact, err := svc.Page(ctx, "pager", pagination.Params{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, exact.Purchases, 5)
	assert.Empty(t, exact.NextCursor)

	_, err = svc.Page(ctx, "pager", pagination.Params{Cursor: "not-a-cursor!"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

type fakeRepository struct {
	Repository
	lastSequenceFn func(ctx context.Context, sessionID string) (int, error)
	createFn       func(ctx context.Context, purchase *models.Purchase) error
	listFn         func(ctx context.Context, sessionID string) ([]models.Purchase, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) LastSequence(ctx context.Context, sessionID string) (int, error) {
	return f.lastSequenceFn(ctx, sessionID)
}

func (f *fakeRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	return f.createFn(ctx, purchase)
}

func (f *fakeRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Purchase, error) {
	return f.listFn(ctx, sessionID)
}

type inlineTx struct{}

func (inlineTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func TestService_DependencyErrors(t *testing.T) {
	boom := errors.New("disk full")
	repo := &fakeRepository{
		lastSequenceFn: func(context.Context, string) (int, error) { return 0, nil },
		createFn:       func(context.Context, *models.Purchase) error { return boom },
		listFn:         func(context.Context, string) ([]models.Purchase, error) { return nil, boom },
	}
	svc, err := NewService(repo, inlineTx{})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), "a", snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 1}))
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, boom)

	_, err = svc.List(context.Background(), "a")
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestService_UniqueViolationIsConflict(t *testing.T) {
	repo := &fakeRepository{
		lastSequenceFn: func(context.Context, string) (int, error) { return 0, nil },
		createFn: func(context.Context, *models.Purchase) error {
			return errors.New("UNIQUE constraint failed: purchases.session_id, purchases.sequence")
		},
	}
	svc, err := NewService(repo, inlineTx{})
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), "a", snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 1}))
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestService_ConcurrentRecordsGetDistinctSequences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const workers = 8
	snap := snapshotOf(t, time.Now(), cart.Line{Product: pen, Quantity: 1})
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(ctx, "shared", snap)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	purchases, err := svc.List(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, purchases, workers)
	for i, p := range purchases {
		assert.Equal(t, i+1, p.Sequence)
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(nil, inlineTx{})
	assert.Error(t, err)
	_, err = NewService(&fakeRepository{}, nil)
	assert.Error(t, err)
}
