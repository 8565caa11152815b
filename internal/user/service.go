// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/autowds/server/internal/auth"
	"github.com/autowds/server/internal/config"
	"github.com/autowds/server/internal/core"
	"github.com/autowds/server/internal/credit"
	"github.com/autowds/server/internal/mail"
)

var (
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCode       = errors.New("invalid validation code")
	ErrInviteCodeInvalid = errors.New("invite code not recognized")
)

// CreditLedger is the slice of the credit service the registration flow
// needs; transaction-composable so bonuses commit with the new user row.
type CreditLedger interface {
	AddCreditsIn(
		ctx context.Context,
		q core.DBTX,
		userID, amount int64,
		operation string,
		description *string,
		relatedUserID *int64,
	) (*credit.Log, error)
}

type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email, code string) error
}

type Service struct {
	repo   Repository
	ledger CreditLedger
	codes  CodeStore
	mailer mail.Sender
	tx     core.TxRunner
	cfg    config.CreditConfig
}

func NewService(
	repo Repository,
	ledger CreditLedger,
	codes CodeStore,
	mailer mail.Sender,
	tx core.TxRunner,
	cfg config.CreditConfig,
) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		codes:  codes,
		mailer: mailer,
		tx:     tx,
		cfg:    cfg,
	}
}

func (s *Service) SendValidationCode(ctx context.Context, email string) error {
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("issue validation code: %w", err)
	}

	if err := s.mailer.SendValidationCode(ctx, email, code); err != nil {
		return fmt.Errorf("send validation code: %w", err)
	}

	return nil
}

// Register creates the account, assigns its invite code, and applies the
// register bonus plus the inviter's referral bonus in one transaction. Any
// failure rolls the whole thing back; the consumed validation code is the
// only side effect that survives.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*AccountUser, error) {
	if err := s.codes.Consume(ctx, req.Email, req.Code); err != nil {
		if errors.Is(err, mail.ErrCodeMismatch) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("consume validation code: %w", err)
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	var inviter *AccountUser
	if req.InviteCode != nil && *req.InviteCode != "" {
		inviter, err = s.repo.GetByInviteCode(ctx, *req.InviteCode)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, ErrInviteCodeInvalid
			}
			return nil, err
		}
	}

	passwdHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &AccountUser{
		Email:      req.Email,
		Name:       req.Name,
		PasswdHash: passwdHash,
		Edition:    EditionFree,
		// placeholder until the id is known; the real code derives from it
		InviteCode: "PENDING-" + uuid.NewString(),
	}
	if inviter != nil {
		u.InvitedBy = &inviter.ID
	}

	err = s.tx.InTx(ctx, func(q core.DBTX) error {
		if txErr := s.repo.CreateIn(ctx, q, u); txErr != nil {
			return txErr
		}

		u.InviteCode = credit.GenerateInviteCode(u.ID)
		if txErr := s.repo.UpdateInviteCodeIn(ctx, q, u.ID, u.InviteCode); txErr != nil {
			return txErr
		}

		registerDesc := "register bonus"
		log, txErr := s.ledger.AddCreditsIn(
			ctx, q, u.ID, s.cfg.RegisterBonus,
			credit.OpRegister, &registerDesc, nil,
		)
		if txErr != nil {
			return txErr
		}
		u.Credits = log.Balance

		if inviter != nil {
			inviteDesc := "invite bonus"
			_, txErr = s.ledger.AddCreditsIn(
				ctx, q, inviter.ID, s.cfg.InviteBonus,
				credit.OpInvite, &inviteDesc, &u.ID,
			)
			if txErr != nil {
				return txErr
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return u, nil
}

// AdminCreate provisions an account directly: no validation code and no
// signup bonuses, but the invite code is assigned the same two-phase way so
// the account can still refer others.
func (s *Service) AdminCreate(
	ctx context.Context,
	req AdminCreateUserRequest,
) (*AccountUser, error) {
	passwdHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	edition := req.Edition
	if edition == "" {
		edition = EditionFree
	}

	u := &AccountUser{
		Email:      req.Email,
		Name:       req.Name,
		PasswdHash: passwdHash,
		Edition:    edition,
		InviteCode: "PENDING-" + uuid.NewString(),
	}

	err = s.tx.InTx(ctx, func(q core.DBTX) error {
		if txErr := s.repo.CreateIn(ctx, q, u); txErr != nil {
			return txErr
		}

		u.InviteCode = credit.GenerateInviteCode(u.ID)
		return s.repo.UpdateInviteCodeIn(ctx, q, u.ID, u.InviteCode)
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return u, nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	req ResetPasswordRequest,
) error {
	if err := s.codes.Consume(ctx, req.Email, req.Code); err != nil {
		if errors.Is(err, mail.ErrCodeMismatch) {
			return ErrInvalidCode
		}
		return fmt.Errorf("consume validation code: %w", err)
	}

	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	passwdHash, err := core.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, u.ID, passwdHash)
}

func (s *Service) Get(ctx context.Context, id int64) (*AccountUser, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Rename(ctx context.Context, id int64, name string) error {
	return s.repo.UpdateName(ctx, id, name)
}

func (s *Service) List(
	ctx context.Context,
	params ListUsersParams,
) ([]AccountUser, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) AdminUpdate(
	ctx context.Context,
	id int64,
	req AdminUpdateUserRequest,
) error {
	if req.Locked == nil && req.Edition == nil {
		return fmt.Errorf("admin update: nothing to change: %w",
			core.ErrInvalidInput)
	}
	return s.repo.AdminUpdate(ctx, id, req.Locked, req.Edition)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// UpgradeEdition is called from payment confirmation. Monotonic, see the
// repository comment.
func (s *Service) UpgradeEdition(
	ctx context.Context,
	id int64,
	edition string,
) (bool, error) {
	if !ValidEdition(edition) {
		return false, fmt.Errorf("upgrade edition: bad edition %q: %w",
			edition, core.ErrInvalidInput)
	}
	return s.repo.UpgradeEdition(ctx, id, edition)
}

// GetByEmail adapts the account row to the auth package's view of a user.
func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswdHash,
		Edition:      u.Edition,
		Admin:        u.Admin,
		Locked:       u.Locked,
		Credits:      u.Credits,
	}, nil
}

func (s *Service) TouchLastLogin(ctx context.Context, userID int64) error {
	return s.repo.TouchLastLogin(ctx, userID)
}
