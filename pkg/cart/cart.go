package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// DeliveryFeeAmount is charged for home delivery, pickup is free.
var DeliveryFeeAmount = decimal.NewFromInt(30)

// Medicine is the catalog snapshot a cart entry carries. Price and flags are
// cached at add time and may go stale relative to the server; checkout
// re-validates against live stock.
type Medicine struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	RequiresPrescription bool            `json:"requires_prescription"`
	IsScheduleH          bool            `json:"is_schedule_h"`
}

type Item struct {
	Medicine Medicine `json:"medicine"`
	Quantity int      `json:"quantity"`
}

// Manager owns the client-local cart state. All mutation goes through its
// methods, every change is written back to the store in full.
type Manager struct {
	mu    sync.Mutex
	store Store
	items []Item
}

// NewManager loads the persisted cart once. Corrupt or missing stored state
// yields an empty cart, not an error.
func NewManager(store Store) (*Manager, error) {
	items, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, items: items}, nil
}

// AddItem merges into an existing entry for the same medicine, otherwise
// appends. Quantities below one are coerced to one.
func (m *Manager) AddItem(med Medicine, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].Medicine.ID == med.ID {
			m.items[i].Quantity += quantity
			return m.persist()
		}
	}
	m.items = append(m.items, Item{Medicine: med, Quantity: quantity})
	return m.persist()
}

// RemoveItem deletes the entry for the medicine; removing an absent id is a
// no-op.
func (m *Manager) RemoveItem(medicineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(medicineID)
}

// UpdateQuantity sets the entry's quantity directly. A quantity of zero or
// less removes the entry.
func (m *Manager) UpdateQuantity(medicineID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		return m.removeLocked(medicineID)
	}
	for i := range m.items {
		if m.items[i].Medicine.ID == medicineID {
			m.items[i].Quantity = quantity
			return m.persist()
		}
	}
	return nil
}

func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return m.persist()
}

func (m *Manager) removeLocked(medicineID string) error {
	for i := range m.items {
		if m.items[i].Medicine.ID == medicineID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return m.persist()
		}
	}
	return nil
}

func (m *Manager) persist() error {
	return m.store.Save(m.items)
}

func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		count += item.Quantity
	}
	return count
}

// Subtotal sums unit price times quantity over the locally cached price
// snapshots.
func (m *Manager) Subtotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subtotalLocked()
}

func (m *Manager) subtotalLocked() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range m.items {
		subtotal = subtotal.Add(item.Medicine.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

func (m *Manager) HasScheduleHDrugs() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Medicine.IsScheduleH {
			return true
		}
	}
	return false
}

func (m *Manager) RequiresPrescription() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Medicine.RequiresPrescription {
			return true
		}
	}
	return false
}

type SnapshotItem struct {
	MedicineID string          `json:"medicine_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Snapshot is the checkout payload: the item list plus the totals computed
// from the cached prices.
type Snapshot struct {
	Items       []SnapshotItem  `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

func (m *Manager) Snapshot(deliveryType string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]SnapshotItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, SnapshotItem{
			MedicineID: item.Medicine.ID,
			Quantity:   item.Quantity,
			Price:      item.Medicine.Price,
		})
	}

	subtotal := m.subtotalLocked()
	fee := decimal.Zero
	if deliveryType == "delivery" {
		fee = DeliveryFeeAmount
	}

	return Snapshot{
		Items:       items,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}
