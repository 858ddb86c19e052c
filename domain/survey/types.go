package survey

// ItemType classifies an item by its response scale
type ItemType string

const (
	// ItemBinary is the two-category special case of the graded model
	ItemBinary ItemType = "binary"
	// ItemPolytomous has three or more ordered categories
	ItemPolytomous ItemType = "polytomous"
)

// Item is immutable item metadata from the upstream codebook.
// Response codes for an item run 0..Categories-1.
type Item struct {
	ID         string   `json:"id"`
	Type       ItemType `json:"item_type"`
	Categories int      `json:"n_categories"`
}

// ClassifyItem derives the item type from its category count
func ClassifyItem(categories int) ItemType {
	if categories <= 2 {
		return ItemBinary
	}
	return ItemPolytomous
}

// Participant is an immutable respondent row. Responses is sparse: absent
// keys are missing responses. Covariate is the person-level regressor
// (e.g., standardized age) entering the model through the per-item slope.
type Participant struct {
	ID        string         `json:"id"`
	Authentic bool           `json:"is_authentic"`
	Covariate float64        `json:"covariate"`
	Responses map[string]int `json:"responses"`
}

// NAnswered returns the number of observed (non-missing) responses
func (p Participant) NAnswered() int {
	return len(p.Responses)
}
