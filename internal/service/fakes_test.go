package service_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/clients/razorpay"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---------- users ----------

type fakeUserRepo struct {
	users map[string]*models.User // ключ — email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// ---------- vendors ----------

type fakeVendorRepo struct {
	mu      sync.Mutex
	vendors map[int64]*models.Vendor
}

var _ storage.VendorStorage = (*fakeVendorRepo)(nil)

func newFakeVendorRepo(vendors ...*models.Vendor) *fakeVendorRepo {
	f := &fakeVendorRepo{vendors: make(map[int64]*models.Vendor)}
	for _, v := range vendors {
		f.vendors[v.ID] = v
	}
	return f
}

func (f *fakeVendorRepo) CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vendors {
		if v.UserID == vendor.UserID {
			return nil, storage.ErrVendorExists
		}
	}
	vendor.ID = int64(len(f.vendors) + 1)
	f.vendors[vendor.ID] = vendor
	return vendor, nil
}

func (f *fakeVendorRepo) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vendors[id]
	if !ok {
		return nil, storage.ErrVendorNotFound
	}
	return v, nil
}

func (f *fakeVendorRepo) GetVendorByUserID(ctx context.Context, userID int64) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vendors {
		if v.UserID == userID {
			return v, nil
		}
	}
	return nil, storage.ErrVendorNotFound
}

func (f *fakeVendorRepo) ListVendorsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vendor
	for _, v := range f.vendors {
		if v.Status == status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeVendorRepo) UpdateVendorStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vendors[id]
	if !ok {
		return storage.ErrVendorNotFound
	}
	v.Status = status
	return nil
}

// ---------- products ----------

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	variants map[int64]*models.VariantDetails
	writes   int
	lockErr  error
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(variants ...*models.VariantDetails) *fakeProductRepo {
	f := &fakeProductRepo{
		products: make(map[int64]*models.Product),
		variants: make(map[int64]*models.VariantDetails),
	}
	for _, v := range variants {
		f.variants[v.ID] = v
	}
	return f
}

func (f *fakeProductRepo) stock(variantID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants[variantID].Stock
}

func (f *fakeProductRepo) CreateProductTx(ctx context.Context, tx *sql.Tx, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	product.ID = int64(len(f.products) + 1)
	f.products[product.ID] = product
	return nil
}

func (f *fakeProductRepo) CreateVariantTx(ctx context.Context, tx *sql.Tx, variant *models.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	variant.ID = int64(len(f.variants) + 100)
	p := f.products[variant.ProductID]
	f.variants[variant.ID] = &models.VariantDetails{
		Variant:       *variant,
		ProductName:   p.Name,
		VendorID:      p.VendorID,
		ProductStatus: p.Status,
	}
	return nil
}

func (f *fakeProductRepo) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) list(match func(p *models.Product) bool) []*models.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Product
	for _, p := range f.products {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeProductRepo) ListApprovedProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	out := f.list(func(p *models.Product) bool { return p.Status == models.ReviewApproved })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProductRepo) ListProductsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Product, error) {
	return f.list(func(p *models.Product) bool { return p.Status == status }), nil
}

func (f *fakeProductRepo) ListProductsByVendor(ctx context.Context, vendorID int64) ([]*models.Product, error) {
	return f.list(func(p *models.Product) bool { return p.VendorID == vendorID }), nil
}

func (f *fakeProductRepo) UpdateProductStatus(ctx context.Context, id int64, status models.ReviewStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.Status = status
	p.RejectionReason = reason
	return nil
}

func (f *fakeProductRepo) GetVariantDetails(ctx context.Context, variantID int64) (*models.VariantDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return nil, storage.ErrVariantNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeProductRepo) LockVariantTx(ctx context.Context, tx *sql.Tx, variantID int64) (*models.VariantDetails, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.GetVariantDetails(ctx, variantID)
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok || v.Stock < quantity {
		return storage.ErrInsufficientStock
	}
	v.Stock -= quantity
	f.writes++
	return nil
}

func (f *fakeProductRepo) IncrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok {
		return storage.ErrVariantNotFound
	}
	v.Stock += quantity
	f.writes++
	return nil
}

func (f *fakeProductRepo) UpdateStock(ctx context.Context, vendorID, variantID int64, stock int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[variantID]
	if !ok || v.VendorID != vendorID {
		return storage.ErrVariantNotFound
	}
	v.Stock = stock
	f.writes++
	return nil
}

// ---------- cart ----------

type fakeCartRepo struct {
	mu      sync.Mutex
	lines   map[int64][]*models.CartLine // ключ: userID
	lockErr error
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{lines: make(map[int64][]*models.CartLine)}
}

func (f *fakeCartRepo) UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines[item.UserID] {
		if l.VariantID == item.VariantID {
			l.Quantity += item.Quantity
			item.ID = l.CartItemID
			item.Quantity = l.Quantity
			return item, nil
		}
	}
	item.ID = int64(len(f.lines[item.UserID]) + 1)
	f.lines[item.UserID] = append(f.lines[item.UserID], &models.CartLine{
		CartItemID: item.ID,
		ProductID:  item.ProductID,
		VariantID:  item.VariantID,
		Quantity:   item.Quantity,
	})
	return item, nil
}

func (f *fakeCartRepo) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lines[userID] {
		if l.CartItemID == itemID {
			l.Quantity = quantity
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) DeleteItem(ctx context.Context, userID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[userID]
	for i, l := range lines {
		if l.CartItemID == itemID {
			f.lines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) ListLines(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[userID], nil
}

func (f *fakeCartRepo) LockLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.ListLines(ctx, userID)
}

func (f *fakeCartRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.lines, userID)
	return nil
}

// ---------- addresses ----------

type fakeAddressRepo struct {
	addresses map[int64]*models.Address
}

var _ storage.AddressStorage = (*fakeAddressRepo)(nil)

func newFakeAddressRepo(addresses ...*models.Address) *fakeAddressRepo {
	f := &fakeAddressRepo{addresses: make(map[int64]*models.Address)}
	for _, a := range addresses {
		f.addresses[a.ID] = a
	}
	return f
}

func (f *fakeAddressRepo) CreateAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	address.ID = int64(len(f.addresses) + 1)
	f.addresses[address.ID] = address
	return address, nil
}

func (f *fakeAddressRepo) ListAddresses(ctx context.Context, userID int64) ([]*models.Address, error) {
	var out []*models.Address
	for _, a := range f.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAddressRepo) GetAddress(ctx context.Context, userID, id int64) (*models.Address, error) {
	a, ok := f.addresses[id]
	if !ok || a.UserID != userID {
		return nil, storage.ErrAddressNotFound
	}
	return a, nil
}

// ---------- orders ----------

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	items     map[int64][]*models.OrderItem // ключ: orderID
	shipments *fakeShipmentRepo
	paidMarks int
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo(shipments *fakeShipmentRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]*models.OrderItem),
		shipments: shipments,
	}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = int64(len(f.orders) + 1)
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = int64(len(f.items[item.OrderID]) + 1)
	f.items[item.OrderID] = append(f.items[item.OrderID], item)
	return nil
}

func (f *fakeOrderRepo) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeOrderRepo) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeOrderRepo) ListOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[orderID], nil
}

func (f *fakeOrderRepo) ListOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.OrderItem, error) {
	return f.ListOrderItems(ctx, orderID)
}

func (f *fakeOrderRepo) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	if o.Status != from {
		return storage.ErrStatusChanged
	}
	o.Status = to
	if to == models.OrderPaid {
		f.paidMarks++
	}
	return nil
}

func (f *fakeOrderRepo) CancelOrderTx(ctx context.Context, tx *sql.Tx, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	o.Status = models.OrderCancelled
	o.CancellationStatus = models.CancellationCancelled
	return nil
}

func (f *fakeOrderRepo) CompleteIfDelivered(ctx context.Context, id int64) (bool, error) {
	shipments, _ := f.shipments.ListShipmentsByOrder(ctx, id)
	for _, sh := range shipments {
		if sh.Status != models.ShipmentDelivered {
			return false, nil
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	if o.Status != models.OrderPaid {
		return false, nil
	}
	o.Status = models.OrderCompleted
	return true, nil
}

// ---------- shipments ----------

type fakeShipmentRepo struct {
	mu        sync.Mutex
	shipments map[int64]*models.Shipment
	nextID    int64
}

var _ storage.ShipmentStorage = (*fakeShipmentRepo)(nil)

func newFakeShipmentRepo() *fakeShipmentRepo {
	return &fakeShipmentRepo{shipments: make(map[int64]*models.Shipment)}
}

func (f *fakeShipmentRepo) add(sh *models.Shipment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sh.ID == 0 {
		f.nextID++
		sh.ID = f.nextID
	} else if sh.ID > f.nextID {
		f.nextID = sh.ID
	}
	f.shipments[sh.ID] = sh
}

func (f *fakeShipmentRepo) status(id int64) models.ShipmentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shipments[id].Status
}

func (f *fakeShipmentRepo) CreateShipmentTx(ctx context.Context, tx *sql.Tx, shipment *models.Shipment) error {
	cp := *shipment
	cp.ID = 0
	f.add(&cp)
	shipment.ID = cp.ID
	return nil
}

func (f *fakeShipmentRepo) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok {
		return nil, storage.ErrShipmentNotFound
	}
	cp := *sh
	return &cp, nil
}

func (f *fakeShipmentRepo) filter(match func(sh *models.Shipment) bool) []*models.Shipment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Shipment
	for _, sh := range f.shipments {
		if match(sh) {
			cp := *sh
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeShipmentRepo) ListShipmentsByOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	return f.filter(func(sh *models.Shipment) bool { return sh.OrderID == orderID }), nil
}

func (f *fakeShipmentRepo) LockShipmentsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.Shipment, error) {
	return f.ListShipmentsByOrder(ctx, orderID)
}

func (f *fakeShipmentRepo) ListShipmentsByStatus(ctx context.Context, status models.ShipmentStatus) ([]*models.Shipment, error) {
	return f.filter(func(sh *models.Shipment) bool { return sh.Status == status }), nil
}

func (f *fakeShipmentRepo) ActivateAwaitingTx(ctx context.Context, tx *sql.Tx, orderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, sh := range f.shipments {
		if sh.OrderID == orderID && sh.Status == models.ShipmentAwaitingPayment {
			sh.Status = models.ShipmentPending
			n++
		}
	}
	return n, nil
}

func (f *fakeShipmentRepo) ClaimForBooking(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok || sh.Status != models.ShipmentPending {
		return false, nil
	}
	sh.Status = models.ShipmentBooking
	return true, nil
}

func (f *fakeShipmentRepo) MarkBooked(ctx context.Context, id int64, b *models.ShipmentBookingInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok || sh.Status != models.ShipmentBooking {
		return storage.ErrStatusChanged
	}
	sh.Status = models.ShipmentBooked
	sh.CourierShipmentID = b.CourierShipmentID
	sh.AWBNumber = b.AWBNumber
	sh.LabelURL = b.LabelURL
	if b.CourierName != "" {
		sh.CourierName = b.CourierName
	}
	return nil
}

func (f *fakeShipmentRepo) ReleaseClaim(ctx context.Context, id int64) error {
	return f.UpdateStatus(ctx, id, models.ShipmentBooking, models.ShipmentPending)
}

func (f *fakeShipmentRepo) UpdateStatus(ctx context.Context, id int64, from, to models.ShipmentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok || sh.Status != from {
		return storage.ErrStatusChanged
	}
	sh.Status = to
	return nil
}

func (f *fakeShipmentRepo) CancelShipmentsTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shipments {
		if sh.OrderID == orderID {
			sh.Status = models.ShipmentCancelled
		}
	}
	return nil
}

// ---------- payments ----------

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment // ключ: gateway order id
	updates  int
}

var _ storage.PaymentStorage = (*fakePaymentRepo)(nil)

func newFakePaymentRepo(payments ...*models.Payment) *fakePaymentRepo {
	f := &fakePaymentRepo{payments: make(map[string]*models.Payment)}
	for _, p := range payments {
		f.payments[p.GatewayOrderID] = p
	}
	return f
}

func (f *fakePaymentRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = int64(len(f.payments) + 1)
	f.payments[payment.GatewayOrderID] = payment
	return payment, nil
}

func (f *fakePaymentRepo) LockByGatewayOrderIDTx(ctx context.Context, tx *sql.Tx, gatewayOrderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[gatewayOrderID]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) mark(id int64, status models.PaymentStatus, gatewayPaymentID string, raw []byte, from ...models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			if !slices.Contains(from, p.Status) {
				return storage.ErrStatusChanged
			}
			p.Status = status
			p.GatewayPaymentID = gatewayPaymentID
			p.RawPayload = raw
			f.updates++
			return nil
		}
	}
	return storage.ErrPaymentNotFound
}

func (f *fakePaymentRepo) MarkSuccessTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error {
	return f.mark(id, models.PaymentSuccess, gatewayPaymentID, raw, models.PaymentCreated, models.PaymentFailed)
}

func (f *fakePaymentRepo) MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, gatewayPaymentID string, raw []byte) error {
	return f.mark(id, models.PaymentFailed, gatewayPaymentID, raw, models.PaymentCreated)
}

// ---------- outbox ----------

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages map[string]*models.OutboxMessage // ключ: dedup key
	fail     error
}

var _ storage.OutboxStorage = (*fakeOutboxRepo)(nil)

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{messages: make(map[string]*models.OutboxMessage)}
}

func (f *fakeOutboxRepo) has(dedupKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.messages[dedupKey]
	return ok
}

func (f *fakeOutboxRepo) Enqueue(ctx context.Context, msg *models.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.messages[msg.DedupKey]; !ok {
		f.messages[msg.DedupKey] = msg
	}
	return nil
}

func (f *fakeOutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *models.OutboxMessage) error {
	return f.Enqueue(ctx, msg)
}

func (f *fakeOutboxRepo) ClaimBatchTx(ctx context.Context, tx *sql.Tx, limit int) ([]*models.OutboxMessage, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkDoneTx(ctx context.Context, tx *sql.Tx, id int64) error { return nil }

func (f *fakeOutboxRepo) MarkRetryTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string, availableAt time.Time) error {
	return nil
}

func (f *fakeOutboxRepo) MarkFailedTx(ctx context.Context, tx *sql.Tx, id int64, lastErr string) error {
	return nil
}

// ---------- внешние сервисы ----------

type fakeQuoter struct {
	options map[string][]courier.Option // ключ: индекс склада продавца
	err     error
	calls   int
}

func (f *fakeQuoter) Serviceability(ctx context.Context, req courier.RateRequest) ([]courier.Option, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.options[req.PickupPincode], nil
}

type fakeBooker struct {
	mu        sync.Mutex
	requests  []*courier.BookingRequest
	failFor   map[string]error // ключ: OrderReference
	cancelled []string
	cancelErr error
}

func (f *fakeBooker) CreateShipment(ctx context.Context, req *courier.BookingRequest) (*courier.BookingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.failFor[req.OrderReference]; err != nil {
		return nil, err
	}
	return &courier.BookingResult{
		ShipmentID:  "SH-" + req.OrderReference,
		AWBNumber:   "AWB-" + req.OrderReference,
		CourierName: "Delhivery",
		LabelURL:    "https://labels.example/" + req.OrderReference,
	}, nil
}

func (f *fakeBooker) CancelShipment(ctx context.Context, shipmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, shipmentID)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[key] {
		return nil, false, nil
	}
	f.held[key] = true
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
		return nil
	}, true, nil
}

type fakeGateway struct {
	err    error
	orders []string
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*razorpay.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	id := "order_" + receipt
	f.orders = append(f.orders, id)
	return &razorpay.Order{ID: id, Amount: razorpay.ToMinorUnits(amount), Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

var errUpstream = errors.New("upstream unavailable")
