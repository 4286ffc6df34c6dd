package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rtchat/internal/models"
	"rtchat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, username, created_at`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, username, passwordHash).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

// Room Repository Implementation
func (db *PostgresDB) CreateRoom(ctx context.Context, name, description, createdBy string) (*models.Room, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room := &models.Room{
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		Members:     []string{createdBy},
	}

	query := `
		INSERT INTO rooms (name, description, created_by, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`

	if err := tx.QueryRow(ctx, query, name, description, createdBy).Scan(&room.ID, &room.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	// The creator is the first member
	memberQuery := `INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, memberQuery, room.ID, createdBy); err != nil {
		return nil, fmt.Errorf("failed to add creator to room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.created_by, r.created_at,
		       COALESCE(array_agg(m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM rooms r
		LEFT JOIN room_members m ON r.id = m.room_id
		WHERE r.id = $1
		GROUP BY r.id`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Description, &room.CreatedBy, &room.CreatedAt, &room.Members,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) ListRooms(ctx context.Context) ([]*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.description, r.created_by, r.created_at,
		       COALESCE(array_agg(m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM rooms r
		LEFT JOIN room_members m ON r.id = m.room_id
		GROUP BY r.id
		ORDER BY r.created_at DESC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.CreatedBy, &room.CreatedAt, &room.Members); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PostgresDB) AddMember(ctx context.Context, roomID, userID string) error {
	query := `
		INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, roomID, userID)
	return err
}

// Message Log Implementation
func (db *PostgresDB) AppendMessage(ctx context.Context, roomID, userID, username, content string, ts time.Time) (*models.Message, error) {
	query := `
		INSERT INTO messages (room_id, user_id, username, content, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	msg := &models.Message{
		RoomID:    roomID,
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: ts,
	}
	if err := db.pool.QueryRow(ctx, query, roomID, userID, username, content, ts).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) QueryMessages(ctx context.Context, roomID string, limit int, before *time.Time) ([]*models.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if before != nil {
		query := `
			SELECT id, room_id, user_id, username, content, timestamp
			FROM messages
			WHERE room_id = $1 AND timestamp < $2
			ORDER BY timestamp DESC
			LIMIT $3`
		rows, err = db.pool.Query(ctx, query, roomID, *before, limit)
	} else {
		query := `
			SELECT id, room_id, user_id, username, content, timestamp
			FROM messages
			WHERE room_id = $1
			ORDER BY timestamp DESC
			LIMIT $2`
		rows, err = db.pool.Query(ctx, query, roomID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Username, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
