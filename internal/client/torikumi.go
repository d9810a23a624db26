package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"sumo_tracker/ingestion/internal/models"
)

// The site serves results as a page + AJAX pair per division/day: the page GET
// establishes session state, then the AJAX POST returns the torikumi JSON.

// DayPage fetches the torikumi page for one division/day.
func (c *Client) DayPage(ctx context.Context, tournamentID, division, day int) (*Response, error) {
	path := fmt.Sprintf("/EnHonbashoMain/torikumi/%d/%d/", division, day)
	params := map[string]string{"basho_id": strconv.Itoa(tournamentID)}

	resp, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day page: %w", err)
	}
	return resp, nil
}

// DayResults fetches and decodes the torikumi AJAX payload for one
// division/day.
func (c *Client) DayResults(ctx context.Context, tournamentID, division, day int) (*models.TorikumiResponse, error) {
	path := fmt.Sprintf("/EnHonbashoMain/torikumiAjax/%d/%d/", division, day)
	form := map[string]string{
		"basho_id":    strconv.Itoa(tournamentID),
		"day":         strconv.Itoa(day),
		"kakuzuke_id": strconv.Itoa(division),
	}

	resp, err := c.do(ctx, http.MethodPost, path, nil, form)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day results: %w", err)
	}

	var torikumi models.TorikumiResponse
	if err := resp.ExtractJSON(&torikumi); err != nil {
		return nil, fmt.Errorf("failed to unmarshal torikumi response: %w", err)
	}

	return &torikumi, nil
}
