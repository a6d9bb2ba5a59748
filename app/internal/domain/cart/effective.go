package cart

// EffectivePlan resolves the plan an item is priced and checked out with: the
// explicit selection when present, otherwise the first offered plan. Items in
// wallet mode or without plans have none.
func EffectivePlan(it Item) (ResalePlan, bool) {
	if it.PurchaseMode != ModeResale || len(it.ResalePlans) == 0 {
		return ResalePlan{}, false
	}
	if it.SelectedPlanID != "" {
		if p, ok := it.Plan(it.SelectedPlanID); ok {
			return p, true
		}
	}
	return it.ResalePlans[0], true
}

// EffectiveMode is wallet for any item without a resale plan, whatever mode
// is stored on it.
func EffectiveMode(it Item) PurchaseMode {
	if _, ok := EffectivePlan(it); ok {
		return ModeResale
	}
	return ModeWallet
}
