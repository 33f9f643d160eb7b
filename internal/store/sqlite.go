package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/helmai/voice-server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	bookingMu sync.Mutex // Mutex for booking writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository, initializing the
// schema and seed data on first open.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := store.seed(); err != nil {
		return nil, fmt.Errorf("seed database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS flights (
		flight_id TEXT PRIMARY KEY,
		airline TEXT NOT NULL,
		dep_airport TEXT NOT NULL,
		dep_city TEXT,
		dep_time TEXT NOT NULL,
		dep_date TEXT NOT NULL,
		arr_airport TEXT NOT NULL,
		arr_city TEXT,
		arr_time TEXT NOT NULL,
		arr_date TEXT NOT NULL,
		price TEXT NOT NULL,
		duration TEXT NOT NULL,
		stops TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		loyalty_tier TEXT
	);

	CREATE TABLE IF NOT EXISTS bookings (
		booking_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(user_id),
		confirmation_number TEXT NOT NULL,
		flight_number TEXT NOT NULL,
		route TEXT NOT NULL,
		date INTEGER NOT NULL,
		status TEXT NOT NULL,
		total_amount REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id, status, date);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// seed loads sample flights, users and bookings so the service is
// usable out of the box. Inserts are idempotent across restarts.
func (s *SQLiteStore) seed() error {
	query := `
	INSERT OR IGNORE INTO flights VALUES
		('FL001', 'SkyWings', 'JFK', 'New York', '08:30', '2025-08-25',
		 'LAX', 'Los Angeles', '11:45', '2025-08-25', '$299', '5h 15m', 'Direct'),
		('FL002', 'AeroFast', 'JFK', 'New York', '14:20', '2025-08-25',
		 'LAX', 'Los Angeles', '17:30', '2025-08-25', '$349', '5h 10m', 'Direct'),
		('AA123', 'American Airlines', 'JFK', 'New York', '08:00 AM', '2025-08-21',
		 'MIA', 'Miami', '11:30 AM', '2025-08-21', '$299', '3h 30m', 'Direct'),
		('AA456', 'American Airlines', 'LGA', 'New York', '02:15 PM', '2025-08-21',
		 'MIA', 'Miami', '05:45 PM', '2025-08-21', '$349', '3h 30m', 'Direct');

	INSERT OR IGNORE INTO users VALUES
		('U001', 'John Doe', 'john.doe@example.com', 'password123', 'Gold'),
		('USER001', 'Jane Smith', 'jane.smith@example.com', 'password123', 'Silver');

	INSERT OR IGNORE INTO bookings VALUES
		('BK1001', 'USER001', 'ABC123', 'AA456', 'JFK → MIA', 1755763200, 'confirmed', 299),
		('BK1002', 'USER001', 'XYZ789', 'FL001', 'JFK → LAX', 1756108800, 'confirmed', 349);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("insert seed rows: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SearchFlights returns flights matching the optional origin and
// destination airport codes.
func (s *SQLiteStore) SearchFlights(ctx context.Context, origin, destination string) ([]domain.Flight, error) {
	query := `
		SELECT flight_id, airline, dep_airport, dep_city, dep_time, dep_date,
		       arr_airport, arr_city, arr_time, arr_date, price, duration, stops
		FROM flights
		WHERE (? = '' OR dep_airport = ?) AND (? = '' OR arr_airport = ?)
		ORDER BY flight_id`

	rows, err := s.db.QueryContext(ctx, query, origin, origin, destination, destination)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	var flights []domain.Flight
	for rows.Next() {
		var f domain.Flight
		var depCity, arrCity sql.NullString
		if err := rows.Scan(
			&f.ID, &f.Airline,
			&f.Departure.Airport, &depCity, &f.Departure.Time, &f.Departure.Date,
			&f.Arrival.Airport, &arrCity, &f.Arrival.Time, &f.Arrival.Date,
			&f.Price, &f.Duration, &f.Stops,
		); err != nil {
			return nil, fmt.Errorf("scan flight row: %w", err)
		}
		f.Departure.City = depCity.String
		f.Arrival.City = arrCity.String
		flights = append(flights, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flights: %w", err)
	}
	return flights, nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT user_id, name, email, loyalty_tier FROM users WHERE user_id = ?`
	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var loyalty sql.NullString
	err := row.Scan(&user.ID, &user.Name, &user.Email, &loyalty)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	user.Loyalty = loyalty.String
	return &user, nil
}

// ListUsers returns all registered users.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, email, loyalty_tier FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		var loyalty sql.NullString
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &loyalty); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		user.Loyalty = loyalty.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// Login verifies an email/password pair.
func (s *SQLiteStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	query := `SELECT user_id, name, email, loyalty_tier, password FROM users WHERE email = ?`
	row := s.db.QueryRowContext(ctx, query, email)

	var user domain.User
	var loyalty sql.NullString
	var stored string
	err := row.Scan(&user.ID, &user.Name, &user.Email, &loyalty, &stored)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	if stored != password {
		return nil, ErrInvalidCredentials
	}
	user.Loyalty = loyalty.String
	return &user, nil
}

// ConfirmBooking books a flight for a user.
func (s *SQLiteStore) ConfirmBooking(ctx context.Context, userID, flightID string) (*domain.Booking, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()

	query := `
		SELECT flight_id, dep_airport, arr_airport, dep_date, price
		FROM flights WHERE flight_id = ?`
	row := s.db.QueryRowContext(ctx, query, flightID)

	var id, depAirport, arrAirport, depDate, price string
	err := row.Scan(&id, &depAirport, &arrAirport, &depDate, &price)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("flight %s not found", flightID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan flight row: %w", err)
	}

	date, err := time.Parse("2006-01-02", depDate)
	if err != nil {
		date = time.Now().AddDate(0, 0, 1)
	}

	now := time.Now()
	booking := &domain.Booking{
		BookingID:          fmt.Sprintf("BK%d", now.UnixMilli()),
		UserID:             userID,
		ConfirmationNumber: fmt.Sprintf("CNF%06d", now.UnixMilli()%1000000),
		FlightNumber:       id,
		Route:              depAirport + " → " + arrAirport,
		Date:               date,
		Status:             domain.BookingConfirmed,
		TotalAmount:        parseAmount(price),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookings
			(booking_id, user_id, confirmation_number, flight_number, route, date, status, total_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.BookingID, booking.UserID, booking.ConfirmationNumber,
		booking.FlightNumber, booking.Route, booking.Date.Unix(),
		booking.Status, booking.TotalAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return booking, nil
}

// parseAmount extracts the numeric value from a price string like "$299".
func parseAmount(price string) float64 {
	var amount float64
	fmt.Sscanf(price, "$%f", &amount)
	return amount
}

// UpcomingTrips returns the user's confirmed bookings, earliest first.
func (s *SQLiteStore) UpcomingTrips(ctx context.Context, userID string) ([]domain.Trip, error) {
	query := `
		SELECT booking_id, confirmation_number, flight_number, route, date, total_amount
		FROM bookings
		WHERE user_id = ? AND status = ?
		ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, domain.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var trip domain.Trip
		var date int64
		if err := rows.Scan(
			&trip.BookingID, &trip.ConfirmationNumber, &trip.Flight,
			&trip.Route, &date, &trip.TotalAmount,
		); err != nil {
			return nil, fmt.Errorf("scan trip row: %w", err)
		}
		trip.Date = time.Unix(date, 0).UTC()
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return trips, nil
}

// CancelBooking cancels a confirmed booking.
func (s *SQLiteStore) CancelBooking(ctx context.Context, bookingID string) (bool, error) {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE booking_id = ? AND status = ?`,
		domain.BookingCancelled, bookingID, domain.BookingConfirmed)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
