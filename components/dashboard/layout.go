package dashboard

func applyOrderOverride(cards []WidgetInstance, order []string) []WidgetInstance {
	if len(order) == 0 {
		return cards
	}
	index := make(map[string]WidgetInstance, len(cards))
	for _, c := range cards {
		index[c.DefinitionID] = c
	}
	result := make([]WidgetInstance, 0, len(cards))
	seen := make(map[string]struct{}, len(order))
	for _, code := range order {
		if c, ok := index[code]; ok {
			result = append(result, c)
			seen[code] = struct{}{}
		}
	}
	for _, c := range cards {
		if _, ok := seen[c.DefinitionID]; !ok {
			result = append(result, c)
		}
	}
	return result
}

func applyHiddenFilter(cards []WidgetInstance, hidden map[string]bool) []WidgetInstance {
	if len(hidden) == 0 {
		return cards
	}
	out := make([]WidgetInstance, 0, len(cards))
	for _, c := range cards {
		if !hidden[c.DefinitionID] {
			out = append(out, c)
		}
	}
	return out
}
