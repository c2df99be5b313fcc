package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// WAL mode for concurrent readers while the simulator writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			full_name     TEXT NOT NULL DEFAULT '',
			company       TEXT NOT NULL DEFAULT '',
			department    TEXT NOT NULL DEFAULT '',
			phone         TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			timezone      TEXT NOT NULL DEFAULT '',
			language      TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'operator'
		);

		CREATE TABLE IF NOT EXISTS agents (
			id                     TEXT PRIMARY KEY,
			agent_name             TEXT NOT NULL,
			agent_description      TEXT NOT NULL DEFAULT '',
			pre_prompts            TEXT NOT NULL DEFAULT '',
			bot_email              TEXT NOT NULL DEFAULT '',
			llm_provider           TEXT NOT NULL,
			llm_api_key            TEXT NOT NULL DEFAULT '',
			llm_model              TEXT NOT NULL,
			llm_max_tokens         INTEGER NOT NULL DEFAULT 0,
			llm_temperature        REAL NOT NULL DEFAULT 0,
			status                 TEXT NOT NULL DEFAULT 'INACTIVE',
			auto_process_tickets   INTEGER NOT NULL DEFAULT 0,
			max_concurrent_tickets INTEGER NOT NULL DEFAULT 1,
			git_workspace_dir      TEXT NOT NULL DEFAULT '',
			created_at             TEXT NOT NULL,
			updated_at             TEXT NOT NULL,
			last_active_at         TEXT
		);

		CREATE TABLE IF NOT EXISTS tickets (
			id                 TEXT PRIMARY KEY,
			zoho_ticket_id     TEXT NOT NULL DEFAULT '',
			ticket_number      TEXT NOT NULL DEFAULT '',
			subject            TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL DEFAULT 'PENDING',
			priority           TEXT NOT NULL DEFAULT 'MEDIUM',
			repository_name    TEXT NOT NULL DEFAULT '',
			branch_name        TEXT NOT NULL DEFAULT '',
			pull_request_url   TEXT NOT NULL DEFAULT '',
			created_at         TEXT NOT NULL,
			completed_at       TEXT,
			processing_time_ms INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS processing_logs (
			id            TEXT PRIMARY KEY,
			ticket_id     TEXT NOT NULL REFERENCES tickets(id),
			step          TEXT NOT NULL,
			status        TEXT NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			error_details TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS zoho_configs (
			id             TEXT PRIMARY KEY,
			config_name    TEXT NOT NULL,
			org_id         TEXT NOT NULL,
			client_id      TEXT NOT NULL,
			client_secret  TEXT NOT NULL,
			refresh_token  TEXT NOT NULL,
			webhook_secret TEXT NOT NULL DEFAULT '',
			is_active      INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS gitlab_configs (
			id             TEXT PRIMARY KEY,
			config_name    TEXT NOT NULL,
			gitlab_url     TEXT NOT NULL,
			personal_token TEXT NOT NULL,
			username       TEXT NOT NULL,
			default_branch TEXT NOT NULL DEFAULT 'main',
			is_active      INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS bot_config (
			id                     INTEGER PRIMARY KEY CHECK (id = 1),
			bot_name               TEXT NOT NULL DEFAULT '',
			bot_email              TEXT NOT NULL DEFAULT '',
			llm_provider           TEXT NOT NULL,
			llm_api_key            TEXT NOT NULL DEFAULT '',
			llm_model              TEXT NOT NULL,
			llm_max_tokens         INTEGER NOT NULL DEFAULT 0,
			llm_temperature        REAL NOT NULL DEFAULT 0,
			auto_process_tickets   INTEGER NOT NULL DEFAULT 0,
			max_concurrent_tickets INTEGER NOT NULL DEFAULT 0,
			git_workspace_dir      TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_logs_ticket ON processing_logs(ticket_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- Users ---

func (s *SQLiteStore) CreateUser(u User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (username, password_hash, email, full_name, company, department, phone, avatar_url, timezone, language, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.Username, u.PasswordHash, u.Profile.Email, u.Profile.FullName,
		u.Profile.Company, u.Profile.Department, u.Profile.Phone,
		u.Profile.AvatarURL, u.Profile.Timezone, u.Profile.Language, role(u.Profile.Role))
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func role(r string) string {
	if r == "" {
		return "operator"
	}
	return r
}

func (s *SQLiteStore) UserByUsername(username string) (User, error) {
	row := s.db.QueryRow(`
		SELECT username, password_hash, email, full_name, company, department, phone, avatar_url, timezone, language, role
		FROM users WHERE username = ?
	`, username)

	var u User
	err := row.Scan(&u.Username, &u.PasswordHash, &u.Profile.Email, &u.Profile.FullName,
		&u.Profile.Company, &u.Profile.Department, &u.Profile.Phone,
		&u.Profile.AvatarURL, &u.Profile.Timezone, &u.Profile.Language, &u.Profile.Role)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: user by username: %w", err)
	}
	u.Profile.Username = u.Username
	return u, nil
}

func (s *SQLiteStore) SaveProfile(username string, p model.UserProfile) error {
	result, err := s.db.Exec(`
		UPDATE users SET email = ?, full_name = ?, company = ?, department = ?,
			phone = ?, avatar_url = ?, timezone = ?, language = ?
		WHERE username = ?
	`, p.Email, p.FullName, p.Company, p.Department, p.Phone, p.AvatarURL,
		p.Timezone, p.Language, username)
	if err != nil {
		return fmt.Errorf("store: save profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Agents ---

func (s *SQLiteStore) SaveAgent(a model.Agent) (model.Agent, error) {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
		a.CreatedAt = now
	}
	if a.Status == "" {
		a.Status = model.AgentInactive
	}
	a.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO agents (id, agent_name, agent_description, pre_prompts, bot_email,
			llm_provider, llm_api_key, llm_model, llm_max_tokens, llm_temperature,
			status, auto_process_tickets, max_concurrent_tickets, git_workspace_dir,
			created_at, updated_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agent_name=excluded.agent_name, agent_description=excluded.agent_description,
			pre_prompts=excluded.pre_prompts, bot_email=excluded.bot_email,
			llm_provider=excluded.llm_provider, llm_api_key=excluded.llm_api_key,
			llm_model=excluded.llm_model, llm_max_tokens=excluded.llm_max_tokens,
			llm_temperature=excluded.llm_temperature,
			auto_process_tickets=excluded.auto_process_tickets,
			max_concurrent_tickets=excluded.max_concurrent_tickets,
			git_workspace_dir=excluded.git_workspace_dir,
			updated_at=excluded.updated_at
	`, a.ID, a.AgentName, a.AgentDescription, a.PrePrompts, a.BotEmail,
		a.LLMProvider, a.LLMAPIKey, a.LLMModel, a.LLMMaxTokens, a.LLMTemperature,
		string(a.Status), a.AutoProcessTickets, a.MaxConcurrentTickets, a.GitWorkspaceDir,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339), optTime(a.LastActiveAt))
	if err != nil {
		return model.Agent{}, fmt.Errorf("store: save agent: %w", err)
	}
	return s.AgentByID(a.ID)
}

const agentColumns = `id, agent_name, agent_description, pre_prompts, bot_email,
	llm_provider, llm_api_key, llm_model, llm_max_tokens, llm_temperature,
	status, auto_process_tickets, max_concurrent_tickets, git_workspace_dir,
	created_at, updated_at, last_active_at`

func (s *SQLiteStore) AgentByID(id string) (model.Agent, error) {
	row := s.db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return model.Agent{}, ErrNotFound
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("store: agent by id: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Agents() ([]model.Agent, error) {
	rows, err := s.db.Query(`SELECT ` + agentColumns + ` FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list agents: %w", err)
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *SQLiteStore) DeleteAgent(id string) error {
	result, err := s.db.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete agent: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetAgentStatus(id string, status model.AgentStatus) (model.Agent, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var result sql.Result
	var err error
	if status == model.AgentActive {
		result, err = s.db.Exec(`UPDATE agents SET status = ?, updated_at = ?, last_active_at = ? WHERE id = ?`,
			string(status), now, now, id)
	} else {
		result, err = s.db.Exec(`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), now, id)
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("store: set agent status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return model.Agent{}, ErrNotFound
	}
	return s.AgentByID(id)
}

// --- Tickets ---

func (s *SQLiteStore) SaveTicket(t model.Ticket) (model.Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.TicketPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, zoho_ticket_id, ticket_number, subject, description,
			status, priority, repository_name, branch_name, pull_request_url,
			created_at, completed_at, processing_time_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, priority=excluded.priority,
			repository_name=excluded.repository_name, branch_name=excluded.branch_name,
			pull_request_url=excluded.pull_request_url,
			completed_at=excluded.completed_at,
			processing_time_ms=excluded.processing_time_ms
	`, t.ID, t.ZohoTicketID, t.TicketNumber, t.Subject, t.Description,
		string(t.Status), string(t.Priority), t.RepositoryName, t.BranchName,
		t.PullRequestURL, t.CreatedAt.Format(time.RFC3339), optTime(t.CompletedAt),
		t.ProcessingTimeMs)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("store: save ticket: %w", err)
	}
	return t, nil
}

const ticketColumns = `id, zoho_ticket_id, ticket_number, subject, description,
	status, priority, repository_name, branch_name, pull_request_url,
	created_at, completed_at, processing_time_ms`

func (s *SQLiteStore) TicketByID(id string) (model.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return model.Ticket{}, ErrNotFound
	}
	if err != nil {
		return model.Ticket{}, fmt.Errorf("store: ticket by id: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Tickets(status *model.TicketStatus) ([]model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) AppendLog(ticketID string, entry model.ProcessingLog) error {
	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO processing_logs (id, ticket_id, step, status, message, error_details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), ticketID, string(entry.Step), string(entry.Status),
		entry.Message, entry.ErrorDetails, at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: append log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Logs(ticketID string) ([]model.ProcessingLog, error) {
	rows, err := s.db.Query(`
		SELECT step, status, message, error_details, created_at
		FROM processing_logs WHERE ticket_id = ? ORDER BY created_at
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("store: list logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ProcessingLog
	for rows.Next() {
		var entry model.ProcessingLog
		var step, status, at string
		if err := rows.Scan(&step, &status, &entry.Message, &entry.ErrorDetails, &at); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		entry.Step = model.ProcessingStep(step)
		entry.Status = model.LogOutcome(status)
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, at)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// --- Health ---

func (s *SQLiteStore) Health() (model.AppHealth, error) {
	h := model.AppHealth{Status: "UP"}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return model.AppHealth{}, fmt.Errorf("store: health: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.AppHealth{}, fmt.Errorf("store: health scan: %w", err)
		}
		h.TotalTickets += count
		switch model.TicketStatus(status) {
		case model.TicketPending:
			h.Pending = count
		case model.TicketProcessing:
			h.Processing = count
		case model.TicketAnalyzing:
			h.Analyzing = count
		case model.TicketFixing:
			h.Fixing = count
		case model.TicketCompleted:
			h.Completed = count
		case model.TicketFailed:
			h.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return model.AppHealth{}, fmt.Errorf("store: health: %w", err)
	}

	var avg sql.NullFloat64
	err = s.db.QueryRow(`SELECT AVG(processing_time_ms) FROM tickets WHERE status = 'COMPLETED'`).Scan(&avg)
	if err != nil {
		return model.AppHealth{}, fmt.Errorf("store: health avg: %w", err)
	}
	if avg.Valid {
		h.AverageProcessingTimeMs = int64(avg.Float64)
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM agents WHERE status = 'ACTIVE'`).Scan(&h.ActiveAgents)
	if err != nil {
		return model.AppHealth{}, fmt.Errorf("store: health agents: %w", err)
	}
	return h, nil
}

// --- Integration configs ---

func (s *SQLiteStore) ZohoConfigs() ([]model.ZohoConfig, error) {
	rows, err := s.db.Query(`SELECT id, config_name, org_id, client_id, client_secret, refresh_token, webhook_secret, is_active FROM zoho_configs ORDER BY config_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list zoho configs: %w", err)
	}
	defer rows.Close()

	var configs []model.ZohoConfig
	for rows.Next() {
		var c model.ZohoConfig
		if err := rows.Scan(&c.ID, &c.ConfigName, &c.OrgID, &c.ClientID, &c.ClientSecret, &c.RefreshToken, &c.WebhookSecret, &c.IsActive); err != nil {
			return nil, fmt.Errorf("store: scan zoho config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *SQLiteStore) AddZohoConfig(cfg model.ZohoConfig) (model.ZohoConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO zoho_configs (id, config_name, org_id, client_id, client_secret, refresh_token, webhook_secret, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, cfg.ID, cfg.ConfigName, cfg.OrgID, cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, cfg.WebhookSecret, cfg.IsActive)
	if err != nil {
		return model.ZohoConfig{}, fmt.Errorf("store: add zoho config: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) DeleteZohoConfig(id string) error {
	result, err := s.db.Exec(`DELETE FROM zoho_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete zoho config: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GitLabConfigs() ([]model.GitLabConfig, error) {
	rows, err := s.db.Query(`SELECT id, config_name, gitlab_url, personal_token, username, default_branch, is_active FROM gitlab_configs ORDER BY config_name`)
	if err != nil {
		return nil, fmt.Errorf("store: list gitlab configs: %w", err)
	}
	defer rows.Close()

	var configs []model.GitLabConfig
	for rows.Next() {
		var c model.GitLabConfig
		if err := rows.Scan(&c.ID, &c.ConfigName, &c.GitLabURL, &c.PersonalToken, &c.Username, &c.DefaultBranch, &c.IsActive); err != nil {
			return nil, fmt.Errorf("store: scan gitlab config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *SQLiteStore) AddGitLabConfig(cfg model.GitLabConfig) (model.GitLabConfig, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = "main"
	}
	_, err := s.db.Exec(`
		INSERT INTO gitlab_configs (id, config_name, gitlab_url, personal_token, username, default_branch, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cfg.ID, cfg.ConfigName, cfg.GitLabURL, cfg.PersonalToken, cfg.Username, cfg.DefaultBranch, cfg.IsActive)
	if err != nil {
		return model.GitLabConfig{}, fmt.Errorf("store: add gitlab config: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) DeleteGitLabConfig(id string) error {
	result, err := s.db.Exec(`DELETE FROM gitlab_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete gitlab config: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) BotConfig() (model.BotConfig, error) {
	row := s.db.QueryRow(`
		SELECT bot_name, bot_email, llm_provider, llm_api_key, llm_model,
			llm_max_tokens, llm_temperature, auto_process_tickets,
			max_concurrent_tickets, git_workspace_dir
		FROM bot_config WHERE id = 1
	`)
	var cfg model.BotConfig
	err := row.Scan(&cfg.BotName, &cfg.BotEmail, &cfg.LLMProvider, &cfg.LLMAPIKey,
		&cfg.LLMModel, &cfg.LLMMaxTokens, &cfg.LLMTemperature,
		&cfg.AutoProcessTickets, &cfg.MaxConcurrentTickets, &cfg.GitWorkspaceDir)
	if err == sql.ErrNoRows {
		return model.BotConfig{}, ErrNotFound
	}
	if err != nil {
		return model.BotConfig{}, fmt.Errorf("store: bot config: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) SaveBotConfig(cfg model.BotConfig) error {
	_, err := s.db.Exec(`
		INSERT INTO bot_config (id, bot_name, bot_email, llm_provider, llm_api_key,
			llm_model, llm_max_tokens, llm_temperature, auto_process_tickets,
			max_concurrent_tickets, git_workspace_dir)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bot_name=excluded.bot_name, bot_email=excluded.bot_email,
			llm_provider=excluded.llm_provider, llm_api_key=excluded.llm_api_key,
			llm_model=excluded.llm_model, llm_max_tokens=excluded.llm_max_tokens,
			llm_temperature=excluded.llm_temperature,
			auto_process_tickets=excluded.auto_process_tickets,
			max_concurrent_tickets=excluded.max_concurrent_tickets,
			git_workspace_dir=excluded.git_workspace_dir
	`, cfg.BotName, cfg.BotEmail, cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel,
		cfg.LLMMaxTokens, cfg.LLMTemperature, cfg.AutoProcessTickets,
		cfg.MaxConcurrentTickets, cfg.GitWorkspaceDir)
	if err != nil {
		return fmt.Errorf("store: save bot config: %w", err)
	}
	return nil
}

// --- helpers ---

func optTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAgent(row scannable) (model.Agent, error) {
	var a model.Agent
	var status, createdAt, updatedAt string
	var lastActive *string

	err := row.Scan(&a.ID, &a.AgentName, &a.AgentDescription, &a.PrePrompts, &a.BotEmail,
		&a.LLMProvider, &a.LLMAPIKey, &a.LLMModel, &a.LLMMaxTokens, &a.LLMTemperature,
		&status, &a.AutoProcessTickets, &a.MaxConcurrentTickets, &a.GitWorkspaceDir,
		&createdAt, &updatedAt, &lastActive)
	if err != nil {
		return model.Agent{}, err
	}

	a.Status = model.AgentStatus(status)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastActive != nil {
		t, _ := time.Parse(time.RFC3339, *lastActive)
		a.LastActiveAt = &t
	}
	return a, nil
}

func scanTicket(row scannable) (model.Ticket, error) {
	var t model.Ticket
	var status, priority, createdAt string
	var completedAt *string

	err := row.Scan(&t.ID, &t.ZohoTicketID, &t.TicketNumber, &t.Subject, &t.Description,
		&status, &priority, &t.RepositoryName, &t.BranchName, &t.PullRequestURL,
		&createdAt, &completedAt, &t.ProcessingTimeMs)
	if err != nil {
		return model.Ticket{}, err
	}

	t.Status = model.TicketStatus(status)
	t.Priority = model.Priority(priority)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt != nil {
		ct, _ := time.Parse(time.RFC3339, *completedAt)
		t.CompletedAt = &ct
	}
	return t, nil
}
