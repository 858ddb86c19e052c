package survey

import (
	"fmt"
	"sort"
	"strings"

	"authscreen/domain/core"
)

// Missing marks an unobserved response in the dense matrix view.
const Missing = -1

// ResponseMatrix is the validated participant×item view the engine
// consumes. Cells hold ordinal codes 0..K-1 or Missing. The matrix is
// immutable once built; subsampling returns index sets, not copies.
type ResponseMatrix struct {
	Items        []Item
	Participants []Participant

	cells   [][]int // participant-major
	itemIdx map[string]int
}

// NewResponseMatrix validates participants against item metadata and
// builds the dense view. Codes outside 0..K-1 are rejected, as are
// responses to unknown items.
func NewResponseMatrix(items []Item, participants []Participant) (*ResponseMatrix, error) {
	if len(items) == 0 || len(participants) == 0 {
		return nil, core.ErrEmptyMatrix
	}

	itemIdx := make(map[string]int, len(items))
	for j, item := range items {
		if item.Categories < 2 {
			return nil, fmt.Errorf("item %s: category count %d below 2", item.ID, item.Categories)
		}
		itemIdx[item.ID] = j
	}

	cells := make([][]int, len(participants))
	for i, p := range participants {
		row := make([]int, len(items))
		for j := range row {
			row[j] = Missing
		}
		for itemID, code := range p.Responses {
			j, ok := itemIdx[itemID]
			if !ok {
				return nil, fmt.Errorf("participant %s: unknown item %s", p.ID, itemID)
			}
			if code < 0 || code >= items[j].Categories {
				return nil, fmt.Errorf("%w: participant %s item %s code %d (K=%d)",
					core.ErrInvalidResponse, p.ID, itemID, code, items[j].Categories)
			}
			row[j] = code
		}
		cells[i] = row
	}

	return &ResponseMatrix{
		Items:        items,
		Participants: participants,
		cells:        cells,
		itemIdx:      itemIdx,
	}, nil
}

// Response returns the ordinal code for participant i on item j and
// whether it was observed.
func (m *ResponseMatrix) Response(i, j int) (int, bool) {
	code := m.cells[i][j]
	return code, code != Missing
}

// Row returns the dense response row for participant i. Callers must not
// mutate it.
func (m *ResponseMatrix) Row(i int) []int {
	return m.cells[i]
}

// NParticipants returns the participant count
func (m *ResponseMatrix) NParticipants() int { return len(m.Participants) }

// NItems returns the item count
func (m *ResponseMatrix) NItems() int { return len(m.Items) }

// AuthenticIndex returns the indices of participants flagged authentic
// by the upstream screening criteria.
func (m *ResponseMatrix) AuthenticIndex() []int {
	idx := make([]int, 0, len(m.Participants))
	for i, p := range m.Participants {
		if p.Authentic {
			idx = append(idx, i)
		}
	}
	return idx
}

// NonAuthenticIndex returns the indices of participants flagged
// non-authentic.
func (m *ResponseMatrix) NonAuthenticIndex() []int {
	idx := make([]int, 0)
	for i, p := range m.Participants {
		if !p.Authentic {
			idx = append(idx, i)
		}
	}
	return idx
}

// DegenerateItems returns item indices with fewer than two distinct
// observed categories among the given participants. Fitting such an item
// on that subsample would yield a spurious parameter estimate.
func (m *ResponseMatrix) DegenerateItems(participantIdx []int) []int {
	degenerate := make([]int, 0)
	for j := range m.Items {
		first := Missing
		distinct := 0
		for _, i := range participantIdx {
			code := m.cells[i][j]
			if code == Missing {
				continue
			}
			if distinct == 0 {
				first = code
				distinct = 1
			} else if code != first {
				distinct = 2
				break
			}
		}
		if distinct < 2 {
			degenerate = append(degenerate, j)
		}
	}
	return degenerate
}

// Fingerprint produces a deterministic hash of the item set and
// participant roster, used to version checkpoint artifacts.
func (m *ResponseMatrix) Fingerprint() core.Hash {
	var data strings.Builder
	for _, item := range m.Items {
		data.WriteString(fmt.Sprintf("%s|%s|%d;", item.ID, item.Type, item.Categories))
	}
	ids := make([]string, len(m.Participants))
	for i, p := range m.Participants {
		keys := make([]string, 0, len(p.Responses))
		for k := range p.Responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var resp strings.Builder
		for _, k := range keys {
			resp.WriteString(fmt.Sprintf("%s=%d,", k, p.Responses[k]))
		}
		ids[i] = fmt.Sprintf("%s|%t|%g|%s", p.ID, p.Authentic, p.Covariate, resp.String())
	}
	data.WriteString(strings.Join(ids, "\n"))
	return core.NewHash([]byte(data.String()))
}
