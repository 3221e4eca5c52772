package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conquestsam/MLM/entity"
)

const linkColumns = `id, owner_id, campaign_label, link_code, click_count, created_at`

func scanLink(row interface{ Scan(...interface{}) error }) (*entity.ReferralLink, error) {
	var l entity.ReferralLink
	err := row.Scan(&l.Id, &l.OwnerId, &l.CampaignLabel, &l.LinkCode, &l.ClickCount, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *MySql) CreateLink(ctx context.Context, link *entity.ReferralLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referral_links (id, owner_id, campaign_label, link_code, click_count, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		link.Id, link.OwnerId, link.CampaignLabel, link.LinkCode, link.CreatedAt)
	if duplicateOn(err, "uq_links_code") {
		return entity.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

func (s *MySql) LinkByCode(ctx context.Context, code string) (*entity.ReferralLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM referral_links WHERE link_code = ?`, code)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select link: %w", err)
	}
	return l, nil
}

func (s *MySql) IncrementClick(ctx context.Context, code string) (*entity.ReferralLink, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE referral_links SET click_count = click_count + 1 WHERE link_code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("bump click count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("bump click count: %w", err)
	}
	if affected == 0 {
		return nil, entity.ErrUnknownLink
	}
	return s.LinkByCode(ctx, code)
}
