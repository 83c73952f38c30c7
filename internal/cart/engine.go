// Package cart implements the shopping cart engine: an ordered collection
// of plain-product and combo lines with merge-on-add identity, persisted
// as a whole snapshot after every mutation.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront-service/internal/kvstore"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ComboIDOffset is added to a combo's numeric suffix to form its derived
// line id. Plain product ids must stay below this value so the two id
// spaces never collide inside one cart.
const ComboIDOffset = 1000

// ErrProductIDReserved is returned when a plain product's id falls into
// the derived combo id range.
var ErrProductIDReserved = errors.New("cart: product id collides with combo id range")

// Engine owns the cart lifecycle for a session. It reads and writes the
// cart snapshot key and consumes the pending-clear flag key.
type Engine struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewEngine creates a cart engine on top of the storage port.
func NewEngine(store kvstore.Store) *Engine {
	return &Engine{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Load hydrates the cart for a session. A set pending-clear flag discards
// the stored snapshot and resets the store to empty.
func (e *Engine) Load(ctx context.Context, sessionID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartEngine.Load")
	defer span.End()

	if _, err := e.store.Get(ctx, kvstore.PendingClearKey(sessionID)); err == nil {
		e.logger.Info("Pending clear flag set, discarding stored cart",
			zap.String("session_id", sessionID))
		if err := e.Clear(ctx, sessionID); err != nil {
			return nil, err
		}
		return &models.Cart{}, nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return nil, err
	}

	var cart models.Cart
	err := kvstore.GetJSON(ctx, e.store, kvstore.CartKey(sessionID), &cart)
	if errors.Is(err, kvstore.ErrNotFound) {
		return &models.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem merges a plain product into the cart: an existing line with the
// same product id (and not a combo) has its quantity incremented,
// otherwise a new line is appended.
func (e *Engine) AddItem(ctx context.Context, sessionID string, product models.Product, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartEngine.AddItem")
	defer span.End()

	if product.ID >= ComboIDOffset {
		return nil, fmt.Errorf("%w: id=%d", ErrProductIDReserved, product.ID)
	}
	if quantity < 1 {
		quantity = 1
	}

	cart, err := e.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ID == product.ID && !cart.Items[i].IsCombo {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			ID:          product.ID,
			Name:        product.Name,
			Price:       product.Price,
			Image:       product.Image,
			Description: product.Description,
			HeatLevel:   product.HeatLevel,
			Rating:      product.Rating,
			Badge:       product.Badge,
			Origin:      product.Origin,
			Quantity:    quantity,
		})
	}

	util.CartMutationsTotal.WithLabelValues("add_item").Inc()
	return cart, e.persist(ctx, sessionID, cart)
}

// AddCombo merges a combo offer into the cart, keyed by combo id. The
// stored price is the offer's discounted price, never recomputed from
// constituents.
func (e *Engine) AddCombo(ctx context.Context, sessionID string, offer models.ComboOffer, quantity int) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartEngine.AddCombo")
	defer span.End()

	derivedID, err := DeriveComboID(offer.ID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}

	cart, err := e.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].IsCombo && cart.Items[i].ComboID == offer.ID {
			cart.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			ID:            derivedID,
			Name:          offer.Name,
			Price:         offer.OfferPrice,
			Image:         offer.Image,
			Description:   offer.Description,
			HeatLevel:     offer.HeatLevel,
			Rating:        offer.Rating,
			Badge:         offer.Badge,
			Origin:        offer.Origin,
			Quantity:      quantity,
			IsCombo:       true,
			ComboID:       offer.ID,
			OriginalPrice: offer.OriginalPrice,
			Discount:      offer.Discount,
		})
	}

	util.CartMutationsTotal.WithLabelValues("add_combo").Inc()
	return cart, e.persist(ctx, sessionID, cart)
}

// RemoveOne decrements the matching line's quantity by one, removing the
// line when it reaches zero. An absent id is a no-op.
func (e *Engine) RemoveOne(ctx context.Context, sessionID string, itemID int64) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartEngine.RemoveOne")
	defer span.End()

	cart, err := e.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ID != itemID {
			continue
		}
		cart.Items[i].Quantity--
		if cart.Items[i].Quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
		util.CartMutationsTotal.WithLabelValues("remove_one").Inc()
		return cart, e.persist(ctx, sessionID, cart)
	}

	return cart, nil
}

// Clear empties the cart and erases the persisted snapshot along with any
// pending-clear flag. Safe to call repeatedly: the reconciliation entry
// point and the storefront both invoke it after a payment, in any order.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	ctx, span := util.StartSpan(ctx, "CartEngine.Clear")
	defer span.End()

	if err := e.store.Delete(ctx, kvstore.CartKey(sessionID)); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, kvstore.PendingClearKey(sessionID)); err != nil {
		return err
	}
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// persist writes the snapshot after a mutation. An empty cart erases the
// stored snapshot instead of writing an empty blob.
func (e *Engine) persist(ctx context.Context, sessionID string, cart *models.Cart) error {
	if cart.IsEmpty() {
		return e.store.Delete(ctx, kvstore.CartKey(sessionID))
	}
	return kvstore.SetJSON(ctx, e.store, kvstore.CartKey(sessionID), cart, 0)
}

// DeriveComboID maps a combo's string id ("combo1") to its derived line
// id (numeric suffix + ComboIDOffset).
func DeriveComboID(comboID string) (int64, error) {
	digits := strings.TrimLeftFunc(comboID, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		return 0, fmt.Errorf("cart: combo id %q has no numeric suffix", comboID)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cart: combo id %q has no numeric suffix", comboID)
	}
	return n + ComboIDOffset, nil
}

// Subtotal sums price*quantity over all lines. Arithmetic runs in decimal
// to keep CHF amounts exact, rounded to 2 places.
func Subtotal(cart *models.Cart) float64 {
	total := decimal.Zero
	for _, it := range cart.Items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	f, _ := total.Round(2).Float64()
	return f
}
