package engine

import (
	"github.com/dinesync/dinesync/utils"
)

// UnitPrice computes base price plus the price deltas of every selected
// customization. Pure function; unknown selection ids contribute nothing.
func UnitPrice(product Product, selections []uint) float64 {
	selected := make(map[uint]bool, len(selections))
	for _, id := range selections {
		selected[id] = true
	}

	price := product.Price
	for _, group := range product.CustomizationGroups {
		for _, opt := range group.Options {
			if selected[opt.ID] {
				price += opt.PriceDelta
			}
		}
	}
	return price
}

// ValidateSelections checks that every required customization group has at
// least one selection. A product with no groups is always valid. The check
// is local; a failure here must never produce a network or channel effect.
func ValidateSelections(product Product, selections []uint) error {
	if len(product.CustomizationGroups) == 0 {
		return nil
	}

	selected := make(map[uint]bool, len(selections))
	for _, id := range selections {
		selected[id] = true
	}

	for _, group := range product.CustomizationGroups {
		if !group.Required {
			continue
		}
		found := false
		for _, opt := range group.Options {
			if selected[opt.ID] {
				found = true
				break
			}
		}
		if !found {
			return &MissingCustomizationError{Group: group.Name}
		}
	}
	return nil
}

// beneficiaries resolves who an item's cost is divided across, in a
// deterministic order with the adder first when present.
//
//   - private: the adder alone
//   - all: the roster as of apportionment time
//   - users: the adder plus the named set, frozen at add time — a named user
//     who has since left is still charged
func beneficiaries(item CartItem, roster []Participant) []string {
	switch item.SharingMode {
	case ShareWithAll:
		ids := make([]string, 0, len(roster))
		seen := make(map[string]bool, len(roster))
		if hasParticipant(roster, item.AddedByUserID) {
			ids = append(ids, item.AddedByUserID)
			seen[item.AddedByUserID] = true
		}
		for _, p := range roster {
			if !seen[p.UserID] {
				ids = append(ids, p.UserID)
				seen[p.UserID] = true
			}
		}
		if len(ids) == 0 {
			ids = append(ids, item.AddedByUserID)
		}
		return ids
	case ShareWithUsers:
		ids := []string{item.AddedByUserID}
		seen := map[string]bool{item.AddedByUserID: true}
		for _, id := range item.SharedWith {
			if !seen[id] {
				ids = append(ids, id)
				seen[id] = true
			}
		}
		return ids
	default:
		return []string{item.AddedByUserID}
	}
}

func hasParticipant(roster []Participant, userID string) bool {
	for _, p := range roster {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Apportion derives the per-participant bill from scratch for the given
// cart and roster snapshot. Each item's line total is split evenly across
// its beneficiaries on integer cents; the indivisible remainder goes to the
// adder (the first beneficiary). Re-deriving the whole breakdown on every
// call avoids drift when the roster changes between additions; the same
// snapshot always yields the same result.
func Apportion(items []CartItem, roster []Participant) map[string]float64 {
	cents := make(map[string]int64)

	for _, item := range items {
		ids := beneficiaries(item, roster)
		total := utils.ToCents(item.LineTotal())
		share, rem := utils.SplitCents(total, len(ids))
		for _, id := range ids {
			cents[id] += share
		}
		// ids[0] is the adder whenever the adder is a beneficiary.
		cents[ids[0]] += rem
	}

	bill := make(map[string]float64, len(cents))
	for id, amount := range cents {
		bill[id] = utils.FromCents(amount)
	}
	return bill
}
