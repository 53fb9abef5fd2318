package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/catalogbrowser/internal/cart"
	"github.com/angelmondragon/catalogbrowser/internal/catalog"
	"github.com/angelmondragon/catalogbrowser/internal/history"
	"github.com/angelmondragon/catalogbrowser/internal/ledger"
	"github.com/angelmondragon/catalogbrowser/internal/session"
	pkgerrors "github.com/angelmondragon/catalogbrowser/pkg/errors"
	"github.com/angelmondragon/catalogbrowser/pkg/logger"
	"github.com/angelmondragon/catalogbrowser/pkg/metrics"
	"github.com/angelmondragon/catalogbrowser/pkg/pagination"
)

// ErrProductNotFound is returned when an add names a product the catalog does not have.
var ErrProductNotFound = errors.New("product not found")

const (
	actionBrowse   = "browse"
	actionAdd      = "add_to_cart"
	actionRemove   = "remove_from_cart"
	actionCheckout = "checkout"
	actionHistory  = "purchases"
)

// Service exposes one method per shopper action.
type Service interface {
	Browse(ctx context.Context, sessionID string, q BrowseQuery) ([]catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	PriceBounds(ctx context.Context) (catalog.PriceRange, error)
	AddToCart(ctx context.Context, sessionID, name string, quantity int) (CartView, error)
	RemoveFromCart(ctx context.Context, sessionID, name string) (CartView, error)
	Cart(ctx context.Context, sessionID string) (CartView, error)
	Checkout(ctx context.Context, sessionID string) (*ledger.Purchase, error)
	Purchases(ctx context.Context, sessionID string) ([]ledger.Purchase, error)
	PurchasePage(ctx context.Context, sessionID string, params pagination.Params) (*ledger.Page, error)
	SearchHistory(ctx context.Context, sessionID string) ([]history.Entry, error)
}

// ServiceParams wires the shop service.
type ServiceParams struct {
	Catalog  *catalog.Catalog
	Sessions *session.Registry
	Ledger   ledger.Service
	Metrics  *metrics.ShopMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	catalog  *catalog.Catalog
	sessions *session.Registry
	ledger   ledger.Service
	metrics  *metrics.ShopMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a shop service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		catalog:  params.Catalog,
		sessions: params.Sessions,
		ledger:   params.Ledger,
		metrics:  params.Metrics,
		logg:     logg,
		now:      now,
	}, nil
}

// Browse runs search, then the advanced filters, then the sort. Non-empty search text is
// appended to the session history.
func (s *service) Browse(ctx context.Context, sessionID string, q BrowseQuery) ([]catalog.Product, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, s.fail(actionBrowse, err)
	}
	if q.Sort != "" && !q.Sort.IsValid() {
		return nil, s.fail(actionBrowse, pkgerrors.New(pkgerrors.CodeValidation, "unknown sort key").
			WithDetails(map[string]any{"sort": string(q.Sort)}))
	}

	var out []catalog.Product
	_ = sess.Do(func(st *session.State) error {
		view := catalog.Search(s.catalog.Products(), q.Text)
		st.History.Record(q.Text, s.now())
		view = catalog.ApplyFilters(view, q.filter())
		out = catalog.Sort(view, q.Sort)
		return nil
	})
	s.metrics.ObserveBrowse(q.Text != "", len(out))
	return out, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return catalog.Categories(s.catalog.Products()), nil
}

func (s *service) PriceBounds(ctx context.Context) (catalog.PriceRange, error) {
	return catalog.PriceBounds(s.catalog.Products()), nil
}

// AddToCart rejects a bad quantity before it looks the product up.
func (s *service) AddToCart(ctx context.Context, sessionID, name string, quantity int) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, s.fail(actionAdd, err)
	}
	if quantity < 1 {
		return CartView{}, s.fail(actionAdd, pkgerrors.Wrap(pkgerrors.CodeValidation, cart.ErrInvalidQuantity, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": quantity}))
	}
	product, ok := s.catalog.Lookup(name)
	if !ok {
		return CartView{}, s.fail(actionAdd, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrProductNotFound, "product not found").
			WithDetails(map[string]any{"name": name}))
	}

	var view CartView
	err = sess.Do(func(st *session.State) error {
		if _, err := st.Cart.Add(product, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "add to cart")
		}
		view = newCartView(st.Cart)
		return nil
	})
	if err != nil {
		return CartView{}, s.fail(actionAdd, err)
	}
	s.metrics.AddItems(quantity)
	return view, nil
}

// RemoveFromCart deletes the line for name. Removing a name that is not in the cart is not an
// error.
func (s *service) RemoveFromCart(ctx context.Context, sessionID, name string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, s.fail(actionRemove, err)
	}
	var view CartView
	_ = sess.Do(func(st *session.State) error {
		if st.Cart.Remove(name) {
			s.metrics.IncLinesRemoved()
		}
		view = newCartView(st.Cart)
		return nil
	})
	return view, nil
}

func (s *service) Cart(ctx context.Context, sessionID string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}
	var view CartView
	_ = sess.Do(func(st *session.State) error {
		view = newCartView(st.Cart)
		return nil
	})
	return view, nil
}

// Checkout records the cart in the ledger and clears it while holding the session lock. A
// ledger failure leaves the cart as it was.
func (s *service) Checkout(ctx context.Context, sessionID string) (*ledger.Purchase, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, s.fail(actionCheckout, err)
	}

	var purchase *ledger.Purchase
	err = sess.Do(func(st *session.State) error {
		_, err := st.Cart.Checkout(s.now(), func(snap cart.Snapshot) error {
			recorded, err := s.ledger.Record(ctx, sessionID, snap)
			if err != nil {
				return err
			}
			purchase = recorded
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) && pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "cart is empty")
		}
		if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
			s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "checkout failed", err)
		}
		return nil, s.fail(actionCheckout, err)
	}

	s.metrics.ObserveCheckout(purchase.Total)
	logCtx := s.logg.WithFields(s.logg.WithSessionID(ctx, sessionID), map[string]any{
		"purchase_id": purchase.ID.String(),
		"sequence":    purchase.Sequence,
		"total":       purchase.Total,
		"item_count":  purchase.ItemCount,
	})
	s.logg.Info(logCtx, "checkout completed")
	return purchase, nil
}

func (s *service) Purchases(ctx context.Context, sessionID string) ([]ledger.Purchase, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, s.fail(actionHistory, err)
	}
	var purchases []ledger.Purchase
	err = sess.Do(func(*session.State) error {
		var err error
		purchases, err = s.ledger.List(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, s.fail(actionHistory, err)
	}
	return purchases, nil
}

func (s *service) PurchasePage(ctx context.Context, sessionID string, params pagination.Params) (*ledger.Page, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, s.fail(actionHistory, err)
	}
	var page *ledger.Page
	err = sess.Do(func(*session.State) error {
		var err error
		page, err = s.ledger.Page(ctx, sessionID, params)
		return err
	})
	if err != nil {
		return nil, s.fail(actionHistory, err)
	}
	return page, nil
}

func (s *service) SearchHistory(ctx context.Context, sessionID string) ([]history.Entry, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	var entries []history.Entry
	_ = sess.Do(func(st *session.State) error {
		entries = st.History.Entries()
		return nil
	})
	return entries, nil
}

func (s *service) session(id string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.sessions.Get(id), nil
}

func (s *service) fail(action string, err error) error {
	s.metrics.IncFailure(action, string(pkgerrors.CodeOf(err)))
	return err
}
