// Package links manages shareable campaign links and their QR codes.
package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/codes"
	"github.com/conquestsam/MLM/lib/sl"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

type Store interface {
	// CreateLink returns entity.ErrCodeTaken on a link-code collision.
	CreateLink(ctx context.Context, link *entity.ReferralLink) error
	LinkByCode(ctx context.Context, code string) (*entity.ReferralLink, error)
	// IncrementClick bumps the click counter and returns the updated row.
	IncrementClick(ctx context.Context, code string) (*entity.ReferralLink, error)
}

type Members interface {
	MemberById(ctx context.Context, memberId string) (*entity.Member, error)
}

const (
	maxCodeAttempts = 5
	qrSize          = 256
)

type Service struct {
	store      Store
	members    Members
	codeLength int
	shareBase  string
	log        *slog.Logger
}

func New(store Store, members Members, log *slog.Logger, codeLength int, shareBase string) *Service {
	if store == nil {
		panic("links store is nil")
	}
	return &Service{
		store:      store,
		members:    members,
		codeLength: codeLength,
		shareBase:  shareBase,
		log:        log.With(sl.Module("links")),
	}
}

func (s *Service) Create(ctx context.Context, req *entity.CreateLinkRequest) (*entity.ReferralLink, error) {
	if _, err := s.members.MemberById(ctx, req.OwnerId); err != nil {
		return nil, err
	}

	link := &entity.ReferralLink{
		Id:            uuid.NewString(),
		OwnerId:       req.OwnerId,
		CampaignLabel: req.CampaignLabel,
		CreatedAt:     time.Now().UTC(),
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := codes.New(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate link code: %w", err)
		}
		link.LinkCode = code

		err = s.store.CreateLink(ctx, link)
		if errors.Is(err, entity.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.log.With(
			sl.Member(link.OwnerId),
			slog.String("link_code", link.LinkCode),
			slog.String("campaign", link.CampaignLabel),
		).Info("referral link created")
		return link, nil
	}
	return nil, entity.ErrCodeGenerationExhausted
}

func (s *Service) Click(ctx context.Context, code string) (*entity.ReferralLink, error) {
	link, err := s.store.IncrementClick(ctx, code)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// QR renders the link's share URL as a PNG.
func (s *Service) QR(ctx context.Context, code string) ([]byte, error) {
	link, err := s.store.LinkByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup link: %w", err)
	}
	if link == nil {
		return nil, entity.ErrUnknownLink
	}
	url := fmt.Sprintf("%s/%s", s.shareBase, link.LinkCode)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
