package pipeline

import (
	"context"
	"database/sql"
	"time"
)

// NextCity is db_manager.py's get_next_city: the city with the oldest
// last_searched (nulls sort first), tie-broken by lowest search_count.
func (s *Store) NextCity(ctx context.Context) (*City, error) {
	row := s.queryRow(ctx, `
		SELECT city_name, country, language, last_searched, search_count
		FROM city_rotation
		ORDER BY
			CASE WHEN last_searched IS NULL THEN '1900-01-01' ELSE last_searched END ASC,
			search_count ASC
		LIMIT 1
	`)

	var c City
	var lastSearched sql.NullString
	if err := row.Scan(&c.CityName, &c.Country, &c.Language, &lastSearched, &c.SearchCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if lastSearched.Valid && lastSearched.String != "" {
		if t, err := parseStoredTime(lastSearched.String); err == nil {
			c.LastSearched = &t
		}
	}
	return &c, nil
}

// UpdateCitySearched is db_manager.py's update_city_searched: marks a
// city searched today and increments its search_count.
func (s *Store) UpdateCitySearched(ctx context.Context, cityName, country string) error {
	_, err := s.exec(ctx, `
		UPDATE city_rotation
		SET last_searched = ?, search_count = search_count + 1
		WHERE city_name = ? AND country = ?
	`, time.Now().UTC().Format("2006-01-02"), cityName, country)
	return err
}

// ResetCityRotation is db_manager.py's reset_city_rotation: marks
// every city as searched today, then clears the target city so it
// becomes the next pick. Returns whether a target row was updated.
func (s *Store) ResetCityRotation(ctx context.Context, startCity, startCountry string) (bool, error) {
	today := time.Now().UTC().Format("2006-01-02")
	if _, err := s.exec(ctx, `UPDATE city_rotation SET last_searched = ?, search_count = 1`, today); err != nil {
		return false, err
	}

	var res sql.Result
	var err error
	if startCountry != "" {
		res, err = s.exec(ctx, `
			UPDATE city_rotation SET last_searched = NULL, search_count = 0
			WHERE city_name = ? AND country = ?
		`, startCity, startCountry)
	} else {
		res, err = s.exec(ctx, `
			UPDATE city_rotation SET last_searched = NULL, search_count = 0
			WHERE city_name = ?
		`, startCity)
	}
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func parseStoredTime(s string) (time.Time, error) {
	layouts := []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
