package fakeuserrepo

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/elearn-web/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() users.AccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIds: make(map[string]string),
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *FakeAccountRepo) Upsert(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if account.User.ID == "" {
		account.User.ID = uuid.New().String()
	}
	ur.accounts[account.User.ID] = account
	ur.emailIds[normaliseEmail(account.User.Email)] = account.User.ID
	return nil
}

func (ur *FakeAccountRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	userID, ok := ur.emailIds[normaliseEmail(email)]
	if !ok {
		return errors.New("not found")
	}
	delete(ur.emailIds, normaliseEmail(email))
	delete(ur.accounts, userID)
	return nil
}

func (ur *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[normaliseEmail(email)]
	if !ok {
		return nil, errors.New("not found")
	}
	return ur.accounts[id], nil
}

func (ur *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	account, ok := ur.accounts[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return account, nil
}

func (ur *FakeAccountRepo) SetVerified(email string, verified bool) error {
	account, err := ur.GetByEmail(email)
	if err != nil {
		return err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()
	account.Verified = verified
	return nil
}
