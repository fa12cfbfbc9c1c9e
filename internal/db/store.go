// internal/db/store.go
package db

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

type Round struct {
	ID        string
	TopicA    string
	TopicB    string
	CreatedAt time.Time
	Status    string // streaming, complete, judged, aborted
	Winner    string
}

type Pitch struct {
	ID        int64
	RoundID   string
	Provider  string
	Content   string
	Fallback  bool
	FaultCode string
	CreatedAt time.Time
}

type Verdict struct {
	ID        int64
	RoundID   string
	Winner    string
	Overall   string
	Fallback  bool
	Scores    map[string]int
	Reasoning map[string]string
	CreatedAt time.Time
}

func Open() (*Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dir)
}

// OpenAt opens the round store under the given directory, creating it
// if needed.
func OpenAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "rounds.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// DataDir returns the app's XDG data directory, shared with the markdown
// exporter.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pitcharena"), nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		topic_a TEXT NOT NULL,
		topic_b TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		status TEXT DEFAULT 'streaming',
		winner TEXT
	);

	CREATE TABLE IF NOT EXISTS pitches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id TEXT NOT NULL REFERENCES rounds(id),
		provider TEXT NOT NULL,
		content TEXT NOT NULL,
		fallback INTEGER DEFAULT 0,
		fault_code TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pitches_round ON pitches(round_id);

	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id TEXT NOT NULL REFERENCES rounds(id),
		winner TEXT NOT NULL,
		overall TEXT NOT NULL,
		fallback INTEGER DEFAULT 0,
		scores TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_round ON verdicts(round_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRound records the start of a new round
func (s *Store) CreateRound(id, topicA, topicB string) error {
	_, err := s.db.Exec(
		`INSERT INTO rounds (id, topic_a, topic_b) VALUES (?, ?, ?)`,
		id, topicA, topicB,
	)
	return err
}

// GetRound retrieves a round by ID
func (s *Store) GetRound(id string) (*Round, error) {
	row := s.db.QueryRow(
		`SELECT id, topic_a, topic_b, created_at, status, winner
		 FROM rounds WHERE id = ?`, id,
	)

	var r Round
	var winner sql.NullString
	err := row.Scan(&r.ID, &r.TopicA, &r.TopicB, &r.CreatedAt, &r.Status, &winner)
	if err != nil {
		return nil, err
	}
	r.Winner = winner.String
	return &r, nil
}

// ListRounds returns all rounds, newest first
func (s *Store) ListRounds() ([]Round, error) {
	rows, err := s.db.Query(
		`SELECT id, topic_a, topic_b, created_at, status, winner
		 FROM rounds ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		var winner sql.NullString
		if err := rows.Scan(&r.ID, &r.TopicA, &r.TopicB, &r.CreatedAt, &r.Status, &winner); err != nil {
			return nil, err
		}
		r.Winner = winner.String
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// UpdateRoundStatus marks a round's lifecycle transition
func (s *Store) UpdateRoundStatus(id, status string) error {
	_, err := s.db.Exec(
		`UPDATE rounds SET status = ? WHERE id = ?`,
		status, id,
	)
	return err
}

// SavePitch stores one provider's finished pitch for a round
func (s *Store) SavePitch(roundID, provider, content string, fallback bool, faultCode string) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO pitches (round_id, provider, content, fallback, fault_code) VALUES (?, ?, ?, ?, ?)`,
		roundID, provider, content, fallback, faultCode,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetPitches retrieves all pitches for a round in insertion order
func (s *Store) GetPitches(roundID string) ([]Pitch, error) {
	rows, err := s.db.Query(
		`SELECT id, round_id, provider, content, fallback, fault_code, created_at
		 FROM pitches WHERE round_id = ? ORDER BY id`,
		roundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pitches []Pitch
	for rows.Next() {
		var p Pitch
		var faultCode sql.NullString
		if err := rows.Scan(&p.ID, &p.RoundID, &p.Provider, &p.Content, &p.Fallback, &faultCode, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.FaultCode = faultCode.String
		pitches = append(pitches, p)
	}
	return pitches, rows.Err()
}

// SaveVerdict stores the judgment for a round and marks the round judged.
// Score and reasoning maps are kept as JSON columns, sqlite has no native
// map type and we never query into them.
func (s *Store) SaveVerdict(roundID string, winner, overall string, fallback bool, scores map[string]int, reasoning map[string]string) (int64, error) {
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return 0, err
	}
	reasoningJSON, err := json.Marshal(reasoning)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(
		`INSERT INTO verdicts (round_id, winner, overall, fallback, scores, reasoning) VALUES (?, ?, ?, ?, ?, ?)`,
		roundID, winner, overall, fallback, string(scoresJSON), string(reasoningJSON),
	)
	if err != nil {
		return 0, err
	}

	s.db.Exec(`UPDATE rounds SET status = 'judged', winner = ? WHERE id = ?`, winner, roundID)

	return result.LastInsertId()
}

// GetVerdict retrieves the latest verdict for a round, or nil when the
// round was never judged.
func (s *Store) GetVerdict(roundID string) (*Verdict, error) {
	row := s.db.QueryRow(
		`SELECT id, round_id, winner, overall, fallback, scores, reasoning, created_at
		 FROM verdicts WHERE round_id = ? ORDER BY id DESC LIMIT 1`,
		roundID,
	)

	var v Verdict
	var scoresJSON, reasoningJSON string
	err := row.Scan(&v.ID, &v.RoundID, &v.Winner, &v.Overall, &v.Fallback, &scoresJSON, &reasoningJSON, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scoresJSON), &v.Scores); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reasoningJSON), &v.Reasoning); err != nil {
		return nil, err
	}
	return &v, nil
}
