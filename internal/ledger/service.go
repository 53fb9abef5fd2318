package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/cart"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/pkg/db"
	"github.com/angelmondragon/catalogbrowser/pkg/db/models"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records completed checkouts and lists them per session.
type Service interface {
	Record(ctx context.Context, sessionID string, snap cart.Snapshot) (*Purchase, error)
	List(ctx context.Context, sessionID string) ([]Purchase, error)
	Page(ctx context.Context, sessionID string, params pagination.Params) (*Page, error)
}

// Purchase is the read model of a recorded checkout.
type Purchase struct {
	ID          uuid.UUID   `json:"id"`
	Sequence    int         `json:"sequence"`
	PurchasedAt time.Time   `json:"purchased_at"`
	Lines       []cart.Line `json:"lines"`
	ItemCount   int         `json:"item_count"`
	Total       float64     `json:"total"`
}

// Page is one slice of a session's purchases in sequence order. Total counts every purchase of
// the session. NextCursor is empty on the last page.
type Page struct {
	Purchases  []Purchase `json:"purchases"`
	Total      int64      `json:"total"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a ledger service with the provided repository and transaction runner.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Record appends the snapshot as the next purchase of sessionID. The total stored is the
// snapshot total; it is not recomputed.
func (s *service) Record(ctx context.Context, sessionID string, snap cart.Snapshot) (*Purchase, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if len(snap.Lines) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, cart.ErrEmptyCart, "nothing to record")
	}
	for _, line := range snap.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, cart.ErrInvalidQuantity, "invalid line quantity").
				WithDetails(map[string]any{"name": line.Product.Name, "quantity": line.Quantity})
		}
	}

	record := toModel(sessionID, snap)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		last, err := repo.LastSequence(ctx, sessionID)
		if err != nil {
			return err
		}
		record.Sequence = last + 1
		return repo.Create(ctx, record)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "concurrent checkout for session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record purchase")
	}

	purchase := fromModel(*record)
	return &purchase, nil
}

func (s *service) List(ctx context.Context, sessionID string) ([]Purchase, error) {
	records, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	out := make([]Purchase, 0, len(records))
	for _, r := range records {
		out = append(out, fromModel(r))
	}
	return out, nil
}

func (s *service) Page(ctx context.Context, sessionID string, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	after := 0
	if cursor != nil {
		after = cursor.Sequence
	}

	limit := pagination.NormalizeLimit(params.Limit)
	records, err := s.repo.ListPageBySession(ctx, sessionID, after, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}
	total, err := s.repo.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count purchases")
	}

	page := &Page{Purchases: make([]Purchase, 0, limit), Total: total}
	if len(records) > limit {
		records = records[:limit]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{Sequence: records[limit-1].Sequence})
	}
	for _, r := range records {
		page.Purchases = append(page.Purchases, fromModel(r))
	}
	return page, nil
}

func toModel(sessionID string, snap cart.Snapshot) *models.Purchase {
	record := &models.Purchase{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Total:       snap.Total,
		PurchasedAt: snap.At.UTC(),
		Lines:       make([]models.PurchaseLine, 0, len(snap.Lines)),
	}
	for i, line := range snap.Lines {
		price := decimal.NewFromFloat(line.Product.Price)
		record.ItemCount += line.Quantity
		record.Lines = append(record.Lines, models.PurchaseLine{
			ID:         uuid.New(),
			PurchaseID: record.ID,
			Position:   i,
			Name:       line.Product.Name,
			Category:   line.Product.Category,
			UnitPrice:  price,
			Rating:     line.Product.Rating,
			Quantity:   line.Quantity,
			Subtotal:   price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return record
}

func fromModel(record models.Purchase) Purchase {
	lines := make([]cart.Line, 0, len(record.Lines))
	for _, l := range record.Lines {
		lines = append(lines, cart.Line{
			Product: catalog.Product{
				Name:     l.Name,
				Category: l.Category,
				Price:    l.UnitPrice.InexactFloat64(),
				Rating:   l.Rating,
			},
			Quantity: l.Quantity,
		})
	}
	return Purchase{
		ID:          record.ID,
		Sequence:    record.Sequence,
		PurchasedAt: record.PurchasedAt,
		Lines:       lines,
		ItemCount:   record.ItemCount,
		Total:       record.Total.InexactFloat64(),
	}
}
