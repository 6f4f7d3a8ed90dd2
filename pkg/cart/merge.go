package cart

// MergeInitial combines the persisted cart with an externally supplied list.
// Stored lines win on identity conflicts; incoming only contributes lines
// whose product/variant is not already stored.
func MergeInitial(stored, incoming []LineItem) []LineItem {
	if len(incoming) == 0 {
		return cloneItems(stored)
	}
	if len(stored) == 0 {
		return cloneItems(incoming)
	}

	existing := make(map[lineKey]struct{}, len(stored))
	for _, i := range stored {
		existing[i.key()] = struct{}{}
	}

	merged := cloneItems(stored)
	for _, i := range incoming {
		if _, ok := existing[i.key()]; ok {
			continue
		}
		merged = append(merged, i)
	}
	return merged
}
