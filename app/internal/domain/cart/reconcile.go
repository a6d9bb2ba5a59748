package cart

// Selection is the session-wide purchase mode and delivery company. It is
// broadcast to every line rather than chosen per item in the UI.
type Selection struct {
	PurchaseMode PurchaseMode `json:"purchase_mode"`
	CompanyID    string       `json:"company_id,omitempty"`
}

func DefaultSelection() Selection {
	return Selection{PurchaseMode: ModeWallet}
}

// ApplyMode broadcasts mode to all items as one mutation. Switching to resale
// keeps a still-valid explicit plan and otherwise picks the first plan; items
// without plans store resale but stay wallet-priced. Applying the same mode
// twice yields the same assignments.
func ApplyMode(c *Cart, mode PurchaseMode) error {
	if !mode.IsValid() {
		return ErrInvalidPurchaseMode
	}
	for i := range c.items {
		applyMode(&c.items[i], mode)
	}
	c.touch()
	return nil
}

func ApplyCompany(c *Cart, companyID string) {
	for i := range c.items {
		c.items[i].CompanyID = companyID
	}
	c.touch()
}

func ApplySelection(c *Cart, sel Selection) error {
	if err := ApplyMode(c, sel.PurchaseMode); err != nil {
		return err
	}
	ApplyCompany(c, sel.CompanyID)
	return nil
}

// ApplyItemSelection applies the session selection to a single line, used
// when a new item joins a cart whose selection is already set.
func ApplyItemSelection(c *Cart, productID string, sel Selection) error {
	if !sel.PurchaseMode.IsValid() {
		return ErrInvalidPurchaseMode
	}
	i, ok := c.index[productID]
	if !ok {
		return ErrItemNotFound
	}
	applyMode(&c.items[i], sel.PurchaseMode)
	c.items[i].CompanyID = sel.CompanyID
	c.touch()
	return nil
}

func applyMode(it *Item, mode PurchaseMode) {
	it.PurchaseMode = mode
	if mode != ModeResale || !it.HasResale() {
		return
	}
	if it.SelectedPlanID != "" {
		if _, ok := it.Plan(it.SelectedPlanID); ok {
			return
		}
	}
	it.SelectedPlanID = it.ResalePlans[0].ID
}
