// Package database implements the durable stores: MySQL as the single
// source of truth for the referral graph and commission ledger, and an
// optional Mongo archive for API users and raw event deliveries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/internal/config"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/go-sql-driver/mysql"
)

type MySql struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLClient(conf *config.Config, log *slog.Logger) (*MySql, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		conf.Mysql.UserName, conf.Mysql.Password, conf.Mysql.HostName, conf.Mysql.Port, conf.Mysql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 10-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(10 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:  db,
		log: log.With(sl.Module("database.mysql")),
	}
	if err = sdb.createTables(); err != nil {
		return nil, err
	}
	return sdb, nil
}

func (s *MySql) Close() {
	_ = s.db.Close()
}

func (s *MySql) createTables() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id CHAR(36) PRIMARY KEY,
			referral_code VARCHAR(16) NOT NULL,
			sponsor_id CHAR(36) NULL,
			generation INT NOT NULL DEFAULT 0,
			username VARCHAR(64) NOT NULL DEFAULT '',
			email VARCHAR(128) NOT NULL DEFAULT '',
			wallet_address VARCHAR(128) NOT NULL DEFAULT '',
			rank_level INT NOT NULL DEFAULT 0,
			total_referrals INT NOT NULL DEFAULT 0,
			available DECIMAL(20,4) NOT NULL DEFAULT 0,
			pending DECIMAL(20,4) NOT NULL DEFAULT 0,
			lifetime_earned DECIMAL(20,4) NOT NULL DEFAULT 0,
			lifetime_withdrawn DECIMAL(20,4) NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL,
			UNIQUE KEY uq_members_referral_code (referral_code)
		)`,
		`CREATE TABLE IF NOT EXISTS referral_edges (
			member_id CHAR(36) NOT NULL,
			ancestor_id CHAR(36) NOT NULL,
			generation_distance INT NOT NULL,
			PRIMARY KEY (member_id, ancestor_id),
			UNIQUE KEY uq_edges_member_distance (member_id, generation_distance),
			KEY ix_edges_ancestor (ancestor_id, generation_distance)
		)`,
		`CREATE TABLE IF NOT EXISTS commission_records (
			id CHAR(36) PRIMARY KEY,
			recipient_id CHAR(36) NOT NULL,
			source_member_id CHAR(36) NOT NULL,
			event_id VARCHAR(128) NOT NULL,
			commission_type VARCHAR(16) NOT NULL,
			generation_distance INT NOT NULL,
			amount DECIMAL(20,4) NOT NULL,
			rate_applied DECIMAL(8,4) NOT NULL,
			currency CHAR(3) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			settled_at DATETIME NULL,
			UNIQUE KEY uq_commission_idem (recipient_id, event_id, generation_distance),
			KEY ix_commission_recipient_created (recipient_id, created_at),
			KEY ix_commission_event (event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS commission_rollups (
			member_id CHAR(36) NOT NULL,
			month_key CHAR(7) NOT NULL,
			completed_total DECIMAL(20,4) NOT NULL DEFAULT 0,
			pending_total DECIMAL(20,4) NOT NULL DEFAULT 0,
			PRIMARY KEY (member_id, month_key)
		)`,
		`CREATE TABLE IF NOT EXISTS referral_links (
			id CHAR(36) PRIMARY KEY,
			owner_id CHAR(36) NOT NULL,
			campaign_label VARCHAR(100) NOT NULL DEFAULT '',
			link_code VARCHAR(16) NOT NULL,
			click_count BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			UNIQUE KEY uq_links_code (link_code),
			KEY ix_links_owner (owner_id)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// duplicateOn reports whether err is a MySQL duplicate-key error on the
// given index or constraint name.
func duplicateOn(err error, index string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return false
	}
	return strings.Contains(me.Message, index)
}

const memberColumns = `id, referral_code, sponsor_id, generation, username, email, wallet_address,
	rank_level, total_referrals, available, pending, lifetime_earned, lifetime_withdrawn, status, created_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*entity.Member, error) {
	var m entity.Member
	var sponsorId sql.NullString
	err := row.Scan(
		&m.Id,
		&m.ReferralCode,
		&sponsorId,
		&m.Generation,
		&m.Username,
		&m.Email,
		&m.WalletAddress,
		&m.RankLevel,
		&m.TotalReferrals,
		&m.Available,
		&m.Pending,
		&m.LifetimeEarned,
		&m.LifetimeWithdrawn,
		&m.Status,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sponsorId.Valid {
		m.SponsorId = sponsorId.String
	}
	return &m, nil
}

func (s *MySql) MemberById(ctx context.Context, id string) (*entity.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select member: %w", err)
	}
	return m, nil
}

func (s *MySql) MemberByReferralCode(ctx context.Context, code string) (*entity.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE referral_code = ?`, code)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select member by code: %w", err)
	}
	return m, nil
}

// CreateMember inserts the member row and its ancestor edges in one
// transaction and bumps each ancestor's referral counter. Enrollment
// commits before the member can ever act as a distribution source.
func (s *MySql) CreateMember(ctx context.Context, m *entity.Member, edges []entity.ReferralEdge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sponsorId interface{}
	if m.SponsorId != "" {
		sponsorId = m.SponsorId
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (id, referral_code, sponsor_id, generation, username, email, wallet_address, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Id, m.ReferralCode, sponsorId, m.Generation, m.Username, m.Email, m.WalletAddress, m.Status, m.CreatedAt)
	if duplicateOn(err, "uq_members_referral_code") {
		return entity.ErrCodeTaken
	}
	if duplicateOn(err, "PRIMARY") {
		return entity.ErrDuplicateMember
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	for _, e := range edges {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO referral_edges (member_id, ancestor_id, generation_distance) VALUES (?, ?, ?)`,
			e.MemberId, e.AncestorId, e.GenerationDistance)
		if err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE members SET total_referrals = total_referrals + 1 WHERE id = ?`, e.AncestorId)
		if err != nil {
			return fmt.Errorf("bump referral count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *MySql) AncestorsOf(ctx context.Context, memberId string) ([]entity.AncestorRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed(memberColumns, "m.")+`, e.generation_distance
		 FROM referral_edges e
		 JOIN members m ON m.id = e.ancestor_id
		 WHERE e.member_id = ?
		 ORDER BY e.generation_distance ASC`, memberId)
	if err != nil {
		return nil, fmt.Errorf("select ancestors: %w", err)
	}
	defer rows.Close()

	var refs []entity.AncestorRef
	for rows.Next() {
		var m entity.Member
		var sponsorId sql.NullString
		var distance int
		if err = rows.Scan(
			&m.Id, &m.ReferralCode, &sponsorId, &m.Generation, &m.Username, &m.Email, &m.WalletAddress,
			&m.RankLevel, &m.TotalReferrals, &m.Available, &m.Pending, &m.LifetimeEarned,
			&m.LifetimeWithdrawn, &m.Status, &m.CreatedAt, &distance,
		); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		if sponsorId.Valid {
			m.SponsorId = sponsorId.String
		}
		refs = append(refs, entity.AncestorRef{Member: m, Distance: distance})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *MySql) DescendantsOf(ctx context.Context, memberId string, generation int) ([]entity.Member, error) {
	query := `SELECT ` + prefixed(memberColumns, "m.") + `
		 FROM referral_edges e
		 JOIN members m ON m.id = e.member_id
		 WHERE e.ancestor_id = ?`
	args := []interface{}{memberId}
	if generation > 0 {
		query += ` AND e.generation_distance = ?`
		args = append(args, generation)
	}
	query += ` ORDER BY e.generation_distance ASC, m.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select descendants: %w", err)
	}
	defer rows.Close()

	var members []entity.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan descendant: %w", err)
		}
		members = append(members, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
