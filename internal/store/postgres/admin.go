package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) CreateOrganization(ctx context.Context, org models.Organization) (models.Organization, error) {
	org.OrganizationID = uuid.NewString()
	org.CreatedAt = time.Now().UTC()
	err := retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO organizations (organization_id, name, org_type, location, contact_phone, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, org.OrganizationID, org.Name, org.Type, org.Location, org.ContactPhone, org.Active, org.CreatedAt)
		return err
	})
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, org models.Organization) (models.Organization, error) {
	var updated models.Organization
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			UPDATE organizations
			SET name = $2, org_type = $3, location = $4, contact_phone = $5, active = $6
			WHERE organization_id = $1
			RETURNING organization_id, name, org_type, location, contact_phone, active, created_at
		`, org.OrganizationID, org.Name, org.Type, org.Location, org.ContactPhone, org.Active)
		if err := scanOrganization(row, &updated); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrOrganizationNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Organization{}, err
	}
	return updated, nil
}

// DeleteOrganization removes the organization and everything under it.
// Services, tickets and staff rows go via ON DELETE CASCADE.
func (s *Store) DeleteOrganization(ctx context.Context, orgID string) error {
	return retry(ctx, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE organization_id = $1`, orgID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrOrganizationNotFound
		}
		return nil
	})
}

func (s *Store) ListOrganizations(ctx context.Context, activeOnly bool) ([]models.Organization, error) {
	query := `
		SELECT organization_id, name, org_type, location, contact_phone, active, created_at
		FROM organizations
	`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC`

	var orgs []models.Organization
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		orgs = orgs[:0]
		for rows.Next() {
			var org models.Organization
			if err := scanOrganization(rows, &org); err != nil {
				return err
			}
			orgs = append(orgs, org)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *Store) CreateService(ctx context.Context, service models.Service) (models.Service, error) {
	service.ServiceID = uuid.NewString()
	err := retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO services (service_id, organization_id, name, counter_number, avg_service_time, active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, service.ServiceID, service.OrganizationID, service.Name, service.CounterNumber, service.AvgServiceTime, service.Active)
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return err
	})
	if err != nil {
		return models.Service{}, err
	}
	return service, nil
}

func (s *Store) UpdateService(ctx context.Context, service models.Service) (models.Service, error) {
	var updated models.Service
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			UPDATE services
			SET name = $2, counter_number = $3, avg_service_time = $4, active = $5
			WHERE service_id = $1
			RETURNING service_id, organization_id, name, counter_number, avg_service_time, active
		`, service.ServiceID, service.Name, service.CounterNumber, service.AvgServiceTime, service.Active)
		if err := row.Scan(&updated.ServiceID, &updated.OrganizationID, &updated.Name, &updated.CounterNumber, &updated.AvgServiceTime, &updated.Active); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrServiceNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Service{}, err
	}
	return updated, nil
}

func (s *Store) DeleteService(ctx context.Context, serviceID string) error {
	return retry(ctx, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM services WHERE service_id = $1`, serviceID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrServiceNotFound
		}
		return nil
	})
}

func (s *Store) ListServices(ctx context.Context, orgID string, activeOnly bool) ([]models.Service, error) {
	query := `
		SELECT service_id, organization_id, name, counter_number, avg_service_time, active
		FROM services
		WHERE TRUE
	`
	var args []any
	if orgID != "" {
		query += ` AND organization_id = $1`
		args = append(args, orgID)
	}
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY name ASC`

	var services []models.Service
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		services = services[:0]
		for rows.Next() {
			var service models.Service
			if err := rows.Scan(&service.ServiceID, &service.OrganizationID, &service.Name, &service.CounterNumber, &service.AvgServiceTime, &service.Active); err != nil {
				return err
			}
			services = append(services, service)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		UserID:         uuid.NewString(),
		Username:       input.Username,
		Role:           input.Role,
		FullName:       input.FullName,
		Phone:          input.Phone,
		OrganizationID: input.OrganizationID,
		ServiceID:      input.ServiceID,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	err = retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO users (user_id, username, password_hash, role, full_name, phone, organization_id, service_id, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, NULLIF($8, '')::uuid, $9, $10)
		`, user.UserID, user.Username, string(hash), user.Role, user.FullName, user.Phone, user.OrganizationID, user.ServiceID, user.Active, user.CreatedAt)
		if isUniqueViolation(err) {
			return store.ErrUsernameTaken
		}
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, input store.UpdateUserInput) (models.User, error) {
	var hash *string
	if input.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, err
		}
		hashed := string(h)
		hash = &hashed
	}

	var updated models.User
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			UPDATE users
			SET full_name = COALESCE($2, full_name),
				phone = COALESCE($3, phone),
				service_id = COALESCE(NULLIF($4, '')::uuid, service_id),
				password_hash = COALESCE($5, password_hash),
				active = COALESCE($6, active)
			WHERE user_id = $1
			RETURNING user_id, username, role, full_name, phone, organization_id, service_id, active, created_at, last_login
		`, input.UserID, input.FullName, input.Phone, input.ServiceID, hash, input.Active)
		if err := scanUser(row, &updated); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return retry(ctx, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrUserNotFound
		}
		return nil
	})
}

func (s *Store) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT user_id, username, role, full_name, phone, organization_id, service_id, active, created_at, last_login
			FROM users
			WHERE ($1 = '' OR role = $1)
			ORDER BY username ASC
		`, role)
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var user models.User
			if err := scanUser(rows, &user); err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func scanOrganization(row rowScanner, org *models.Organization) error {
	var location, phone sql.NullString
	if err := row.Scan(&org.OrganizationID, &org.Name, &org.Type, &location, &phone, &org.Active, &org.CreatedAt); err != nil {
		return err
	}
	org.Location = location.String
	org.ContactPhone = phone.String
	return nil
}

func scanUser(row rowScanner, user *models.User) error {
	var fullName, phone, orgID, serviceID sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(&user.UserID, &user.Username, &user.Role, &fullName, &phone, &orgID, &serviceID, &user.Active, &user.CreatedAt, &lastLogin); err != nil {
		return err
	}
	user.FullName = fullName.String
	user.Phone = phone.String
	user.OrganizationID = orgID.String
	user.ServiceID = serviceID.String
	user.LastLogin = nullTimePtr(lastLogin)
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
