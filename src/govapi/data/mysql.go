package data

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ncatdao/govapi/src/govapi/config"
	"github.com/ncatdao/govapi/src/govapi/service"
	"github.com/ncatdao/govapi/src/govapi/types"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&types.Account{}, &types.Proposal{}, &types.Vote{}, &types.Fund{})
}

// Store implements service.Store on gorm. The zero value is unusable; build
// one with NewStore. Inside InTx the receiver wraps the transaction handle,
// so nested calls see transactional state and row locks.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return Store{db: db}
}

var _ service.Store = Store{}

func (s Store) InTx(ctx context.Context, fn func(tx service.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Store{db: tx})
	})
}

func (s Store) EnsureAccount(ctx context.Context, addr string) (types.Account, error) {
	acct := types.Account{Address: addr}
	err := s.db.WithContext(ctx).Where(types.Account{Address: addr}).FirstOrCreate(&acct).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a creation race; the row exists now.
		err = s.db.WithContext(ctx).First(&acct, "address = ?", addr).Error
	}
	if err != nil {
		return types.Account{}, storeErr(err)
	}
	return acct, nil
}

func (s Store) Account(ctx context.Context, addr string) (types.Account, error) {
	var acct types.Account
	if err := s.db.WithContext(ctx).First(&acct, "address = ?", addr).Error; err != nil {
		return types.Account{}, storeErr(err)
	}
	return acct, nil
}

func (s Store) ProposalByID(ctx context.Context, id uint64, lock bool) (types.Proposal, error) {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p types.Proposal
	if err := q.First(&p, "id = ?", id).Error; err != nil {
		return types.Proposal{}, storeErr(err)
	}
	return p, nil
}

func (s Store) CreateProposal(ctx context.Context, p *types.Proposal) error {
	err := s.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: title already taken", types.ErrValidation)
	}
	return storeErr(err)
}

func (s Store) SaveProposalFields(ctx context.Context, p *types.Proposal, fields ...string) error {
	res := s.db.WithContext(ctx).Model(p).Select(fields).Updates(p)
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s Store) ProposalsByPage(ctx context.Context, page int) ([]types.Proposal, error) {
	var out []types.Proposal
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(config.PageSize).
		Offset(page * config.PageSize).
		Find(&out).Error
	return out, storeErr(err)
}

func (s Store) NonTerminalProposals(ctx context.Context, lock bool) ([]types.Proposal, error) {
	q := s.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out []types.Proposal
	err := q.Where("state IN ?", types.NonTerminalStates).Order("id").Find(&out).Error
	return out, storeErr(err)
}

func (s Store) CreateVote(ctx context.Context, v *types.Vote) error {
	err := s.db.WithContext(ctx).Create(v).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.ErrDuplicateVote
	}
	return storeErr(err)
}

func (s Store) CreateFund(ctx context.Context, f *types.Fund) error {
	return storeErr(s.db.WithContext(ctx).Create(f).Error)
}

// storeErr maps gorm errors onto the service taxonomy: missing rows are
// permanent, everything else at this layer is assumed transient.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return err
	default:
		return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}
}
