// Package matrixio loads response matrices from tabular files. Two
// backends share one row contract: an items table (item_id, n_categories)
// and a responses table whose header is participant_id, is_authentic,
// covariate, then one column per item ID. Empty response cells are
// missing responses.
package matrixio

import (
	"strconv"
	"strings"

	"authscreen/domain/survey"
	"authscreen/internal/errors"
)

const fixedColumns = 3 // participant_id, is_authentic, covariate

// parseItems converts the items table (header + data rows) into item
// metadata.
func parseItems(rows [][]string) ([]survey.Item, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("items table needs a header and at least one item")
	}
	items := make([]survey.Item, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < 2 {
			return nil, errors.InvalidInput("items row " + strconv.Itoa(n+2) + ": need item_id and n_categories")
		}
		id := strings.TrimSpace(row[0])
		k, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "items row %d: n_categories", n+2)
		}
		items = append(items, survey.Item{
			ID:         id,
			Type:       survey.ClassifyItem(k),
			Categories: k,
		})
	}
	return items, nil
}

// parseParticipants converts the responses table into participants,
// matching response columns to items by header name.
func parseParticipants(rows [][]string) ([]survey.Participant, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput("responses table needs a header and at least one participant")
	}
	header := rows[0]
	if len(header) < fixedColumns+1 {
		return nil, errors.InvalidInput("responses header needs participant_id, is_authentic, covariate, and item columns")
	}
	itemIDs := make([]string, len(header)-fixedColumns)
	for c := fixedColumns; c < len(header); c++ {
		itemIDs[c-fixedColumns] = strings.TrimSpace(header[c])
	}

	participants := make([]survey.Participant, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < fixedColumns {
			return nil, errors.InvalidInput("responses row " + strconv.Itoa(n+2) + ": too few columns")
		}
		authentic, err := strconv.ParseBool(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "responses row %d: is_authentic", n+2)
		}
		covariate := 0.0
		if v := strings.TrimSpace(row[2]); v != "" {
			covariate, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "responses row %d: covariate", n+2)
			}
		}

		responses := make(map[string]int, len(itemIDs))
		for c, itemID := range itemIDs {
			col := fixedColumns + c
			if col >= len(row) {
				break
			}
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			code, err := strconv.Atoi(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "responses row %d item %s", n+2, itemID)
			}
			responses[itemID] = code
		}

		participants = append(participants, survey.Participant{
			ID:        strings.TrimSpace(row[0]),
			Authentic: authentic,
			Covariate: covariate,
			Responses: responses,
		})
	}
	return participants, nil
}

// buildMatrix validates the parsed tables into a response matrix
func buildMatrix(itemRows, responseRows [][]string) (*survey.ResponseMatrix, error) {
	items, err := parseItems(itemRows)
	if err != nil {
		return nil, err
	}
	participants, err := parseParticipants(responseRows)
	if err != nil {
		return nil, err
	}
	m, err := survey.NewResponseMatrix(items, participants)
	if err != nil {
		return nil, errors.Wrap(err, "matrix validation")
	}
	return m, nil
}
