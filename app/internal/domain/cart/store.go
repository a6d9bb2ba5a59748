package cart

import "encoding/json"

type SyncState string

const (
	SyncNotSynced SyncState = "not_synced"
	SyncMerging   SyncState = "merging"
	SyncSynced    SyncState = "synced"
)

// Cart is the ordered set of line items held for one session. Every
// successful mutation bumps Revision so derived values can be recomputed.
// Cart is not safe for concurrent use; callers serialize access per session.
type Cart struct {
	items     []Item
	index     map[string]int
	SyncState SyncState
	Loading   bool
	Revision  uint64
}

func New() *Cart {
	return &Cart{
		index:     make(map[string]int),
		SyncState: SyncNotSynced,
	}
}

func (c *Cart) Synced() bool {
	return c.SyncState == SyncSynced
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Items returns copies of the line items in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it.clone())
	}
	return out
}

func (c *Cart) Item(productID string) (Item, bool) {
	i, ok := c.index[productID]
	if !ok {
		return Item{}, false
	}
	return c.items[i].clone(), true
}

// Add inserts the item, or increments the quantity of an existing line while
// keeping its stored options.
func (c *Cart) Add(it Item) error {
	if it.PurchaseMode == "" {
		it.PurchaseMode = ModeWallet
	}
	if err := it.validate(); err != nil {
		return err
	}
	if i, ok := c.index[it.ProductID]; ok {
		c.items[i].Quantity += it.Quantity
		c.touch()
		return nil
	}
	c.index[it.ProductID] = len(c.items)
	c.items = append(c.items, it.clone())
	c.touch()
	return nil
}

// SetQuantity stores q for the item; q <= 0 removes the line.
func (c *Cart) SetQuantity(productID string, q int64) error {
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	if q <= 0 {
		return c.Remove(productID)
	}
	c.items[i].Quantity = q
	c.touch()
	return nil
}

func (c *Cart) Remove(productID string) error {
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.reindex()
	c.touch()
	return nil
}

// SetPurchaseMode switches one item. Resale without an explicit plan selects
// the first offered plan; a product without plans keeps no selection.
func (c *Cart) SetPurchaseMode(productID string, mode PurchaseMode, planID string) error {
	if !mode.IsValid() {
		return ErrInvalidPurchaseMode
	}
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	it := &c.items[i]
	if mode == ModeResale {
		switch {
		case planID != "":
			if _, ok := it.Plan(planID); !ok {
				return ErrInvalidResalePlan
			}
			it.SelectedPlanID = planID
		case it.HasResale():
			it.SelectedPlanID = it.ResalePlans[0].ID
		default:
			it.SelectedPlanID = ""
		}
	}
	it.PurchaseMode = mode
	c.touch()
	return nil
}

func (c *Cart) SetCompany(productID, companyID string) error {
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	c.items[i].CompanyID = companyID
	c.touch()
	return nil
}

func (c *Cart) SetResalePlan(productID, planID string) error {
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	if _, ok := c.items[i].Plan(planID); !ok {
		return ErrInvalidResalePlan
	}
	c.items[i].SelectedPlanID = planID
	c.touch()
	return nil
}

// Restore puts back a previously observed version of one line. A nil prev
// removes the line. Used to undo an optimistic change.
func (c *Cart) Restore(productID string, prev *Item) {
	i, ok := c.index[productID]
	switch {
	case prev == nil && ok:
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.reindex()
	case prev == nil:
		return
	case ok:
		c.items[i] = prev.clone()
	default:
		c.index[productID] = len(c.items)
		c.items = append(c.items, prev.clone())
	}
	c.touch()
}

func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]int)
	c.touch()
}

// Replace swaps all items for the given ones, typically the authoritative
// upstream cart. Invalid items reject the whole replacement.
func (c *Cart) Replace(items []Item) error {
	next := New()
	for _, it := range items {
		if err := next.Add(it); err != nil {
			return err
		}
	}
	c.items = next.items
	c.index = next.index
	c.touch()
	return nil
}

func (c *Cart) touch() {
	c.Revision++
}

func (c *Cart) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, it := range c.items {
		c.index[it.ProductID] = i
	}
}

type cartJSON struct {
	Items     []Item    `json:"items"`
	SyncState SyncState `json:"sync_state"`
	Loading   bool      `json:"loading"`
	Revision  uint64    `json:"revision"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(cartJSON{
		Items:     items,
		SyncState: c.SyncState,
		Loading:   c.Loading,
		Revision:  c.Revision,
	})
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.items = raw.Items
	c.reindex()
	c.SyncState = raw.SyncState
	if c.SyncState == "" {
		c.SyncState = SyncNotSynced
	}
	c.Loading = raw.Loading
	c.Revision = raw.Revision
	return nil
}
