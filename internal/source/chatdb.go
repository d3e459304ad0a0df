package source

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// appleEpochOffset is the unix timestamp of 2001-01-01T00:00:00Z, the zero
// point of the messaging database's native clock.
const appleEpochOffset = 978307200

// ChatDB reads an iMessage-style chat.db: handle, chat, message,
// chat_handle_join, and chat_message_join tables. All access is read-only.
type ChatDB struct {
	db   *sql.DB
	path string
}

// OpenChatDB opens the messaging database at path.
func OpenChatDB(path string) (*ChatDB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("chat.db not found at %s (Full Disk Access may be required)", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}
	if _, err := db.Exec("PRAGMA query_only = 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set query_only: %w", err)
	}

	return &ChatDB{db: db, path: path}, nil
}

func (c *ChatDB) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *ChatDB) Path() string {
	return c.path
}

// Handles lists every distinct identifier in the handle table, in row
// order.
func (c *ChatDB) Handles() ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT id FROM handle ORDER BY ROWID`)
	if err != nil {
		return nil, fmt.Errorf("failed to query handles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}

// HandleIDs maps identifier strings to handle row ids. Identifiers with no
// handle row are skipped.
func (c *ChatDB) HandleIDs(identifiers []string) ([]int64, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT ROWID FROM handle WHERE id IN (%s)`, placeholders(len(identifiers)))
	rows, err := c.db.Query(query, toArgs(identifiers)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query handle ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan handle id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RecentThreads returns up to limit thread ids involving any of the given
// handles, ordered by most recent message timestamp descending.
func (c *ChatDB) RecentThreads(handleIDs []int64, limit int) ([]int64, error) {
	if len(handleIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT cmj.chat_id
		FROM chat_message_join cmj
		JOIN message m ON m.ROWID = cmj.message_id
		WHERE cmj.chat_id IN (
			SELECT chat_id FROM chat_handle_join WHERE handle_id IN (%s)
		)
		GROUP BY cmj.chat_id
		ORDER BY MAX(m.date) DESC
		LIMIT ?
	`, placeholders(len(handleIDs)))

	args := make([]any, 0, len(handleIDs)+1)
	for _, id := range handleIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ThreadParticipants returns every handle identifier associated with the
// thread, in handle row order.
func (c *ChatDB) ThreadParticipants(threadID int64) ([]string, error) {
	rows, err := c.db.Query(`
		SELECT h.id
		FROM chat_handle_join chj
		JOIN handle h ON h.ROWID = chj.handle_id
		WHERE chj.chat_id = ?
		ORDER BY h.ROWID
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ThreadMessages returns up to limit messages for the thread, newest first
// by source timestamp. Text stays nullable; the assembler decides what to
// do with attachment-only rows.
func (c *ChatDB) ThreadMessages(threadID int64, limit int) ([]RawMessage, error) {
	rows, err := c.db.Query(`
		SELECT m.ROWID, m.text, m.date, m.is_from_me,
			COALESCE(h.id, ''), COALESCE(m.cache_has_attachments, 0)
		FROM chat_message_join cmj
		JOIN message m ON m.ROWID = cmj.message_id
		LEFT JOIN handle h ON h.ROWID = m.handle_id
		WHERE cmj.chat_id = ?
		ORDER BY m.date DESC
		LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []RawMessage
	for rows.Next() {
		var m RawMessage
		var text sql.NullString
		var date int64
		var fromMe, hasAttachment int
		if err := rows.Scan(&m.ID, &text, &date, &fromMe, &m.Handle, &hasAttachment); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Text = text.String
		m.HasText = text.Valid && text.String != ""
		m.Timestamp = appleToUnix(date)
		m.FromMe = fromMe == 1
		m.ThreadID = threadID
		m.HasAttachment = hasAttachment == 1
		out = append(out, m)
	}
	return out, rows.Err()
}

// appleToUnix converts the source-native timestamp to unix seconds.
// Modern databases store nanoseconds since 2001-01-01; older ones store
// seconds. Magnitude disambiguates: a seconds value can never reach 1e12.
func appleToUnix(v int64) int64 {
	if v > 1_000_000_000_000 {
		v /= 1_000_000_000
	}
	return v + appleEpochOffset
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
