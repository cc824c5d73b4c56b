package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sharesync/internal/models"
)

const customerColumns = `id, name, email, plex_username, plex_user_id, subscribed, created_at, updated_at`

func scanCustomer(scanner interface{ Scan(...any) error }) (models.Customer, error) {
	var c models.Customer
	err := scanner.Scan(&c.ID, &c.Name, &c.Email, &c.PlexUsername, &c.PlexUserID,
		&c.Subscribed, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCustomer(ctx context.Context, c models.Customer) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (name, email, plex_username, plex_user_id, subscribed)
		 VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.PlexUsername, c.PlexUserID, c.Subscribed,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading customer id: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c models.Customer) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers
		 SET name = ?, email = ?, plex_username = ?, plex_user_id = ?, subscribed = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		c.Name, c.Email, c.PlexUsername, c.PlexUserID, c.Subscribed, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %d: %w", c.ID, models.ErrNotFound)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	return nil
}
