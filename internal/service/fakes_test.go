package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/model"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/repository"
)

// fakeAccountRepo mirrors the conditional-write semantics of the Postgres
// repository in memory so service behavior can be tested without a database.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account

	failIncrement bool
	failDecrement bool
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*model.Account{}}
}

func (f *fakeAccountRepo) seed(a *model.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.SubscriptionTier == "" {
		a.SubscriptionTier = "free"
	}
	f.accounts[a.ID] = a
}

func (f *fakeAccountRepo) get(id string) *model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id]
}

func (f *fakeAccountRepo) CreateAccount(ctx context.Context, id, email, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; ok {
		return nil
	}
	now := time.Now()
	f.accounts[id] = &model.Account{
		ID: id, Email: email, Name: name,
		SubscriptionTier: "free",
		LastStorageSync:  now,
		CreatedAt:        now, UpdatedAt: now,
	}
	return nil
}

func (f *fakeAccountRepo) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountRepo) GetAccountByStripeCustomerID(ctx context.Context, customerID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.StripeCustomerID != nil && *a.StripeCustomerID == customerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (f *fakeAccountRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (f *fakeAccountRepo) UpdateStripeCustomerID(ctx context.Context, accountID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.StripeCustomerID = &customerID
	return nil
}

func (f *fakeAccountRepo) counterPtr(a *model.Account, counter string) (*int64, error) {
	switch counter {
	case repository.CounterBoards:
		return &a.BoardCount, nil
	case repository.CounterCards:
		return &a.CardCount, nil
	}
	return nil, repository.ErrUnknownCounter
}

func (f *fakeAccountRepo) IncrementCounterWithLimit(ctx context.Context, accountID, counter string, delta, limit int64) (int64, error) {
	if f.failIncrement {
		return 0, errors.New("store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return 0, repository.ErrAccountNotFound
	}
	c, err := f.counterPtr(a, counter)
	if err != nil {
		return 0, err
	}
	if limit >= 0 && *c+delta > limit {
		return 0, repository.ErrLimitReached
	}
	*c += delta
	return *c, nil
}

func (f *fakeAccountRepo) DecrementCounter(ctx context.Context, accountID, counter string, delta int64) error {
	if f.failDecrement {
		return errors.New("store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	c, err := f.counterPtr(a, counter)
	if err != nil {
		return err
	}
	*c -= delta
	if *c < 0 {
		*c = 0
	}
	return nil
}

func (f *fakeAccountRepo) SetReconciledCounters(ctx context.Context, accountID string, boards, cards, confirmedBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	now := time.Now()
	a.BoardCount = boards
	a.CardCount = cards
	a.ConfirmedStorageBytes = confirmedBytes
	a.CountersLastReconciled = &now
	return nil
}

func (f *fakeAccountRepo) ListStaleReconciled(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, a := range f.accounts {
		if a.CountersLastReconciled == nil || a.CountersLastReconciled.Before(cutoff) {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeAccountRepo) AddPendingStorage(ctx context.Context, accountID string, bytes, limit int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if limit >= 0 && a.ConfirmedStorageBytes+a.PendingStorageBytes+bytes > limit {
		return repository.ErrLimitReached
	}
	a.PendingStorageBytes += bytes
	a.LastStorageSync = time.Now()
	return nil
}

func (f *fakeAccountRepo) SubtractPendingStorage(ctx context.Context, accountID string, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.PendingStorageBytes -= bytes
	if a.PendingStorageBytes < 0 {
		a.PendingStorageBytes = 0
	}
	a.LastStorageSync = time.Now()
	return nil
}

func (f *fakeAccountRepo) AddConfirmedStorage(ctx context.Context, accountID string, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.ConfirmedStorageBytes += bytes
	return nil
}

func (f *fakeAccountRepo) SubtractConfirmedStorage(ctx context.Context, accountID string, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.ConfirmedStorageBytes -= bytes
	if a.ConfirmedStorageBytes < 0 {
		a.ConfirmedStorageBytes = 0
	}
	return nil
}

func (f *fakeAccountRepo) SweepStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	for _, a := range f.accounts {
		if a.PendingStorageBytes > 0 && a.LastStorageSync.Before(cutoff) {
			a.PendingStorageBytes = 0
			swept++
		}
	}
	return swept, nil
}

func (f *fakeAccountRepo) ApplySubscription(ctx context.Context, accountID string, up repository.SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	a.SubscriptionTier = up.Tier
	a.SubscriptionStatus = &up.Status
	a.StripeSubscriptionID = &up.StripeSubscriptionID
	end := up.CurrentPeriodEnd
	a.CurrentPeriodEnd = &end
	a.CancelAtPeriodEnd = up.CancelAtPeriodEnd
	if up.ClearGracePeriod {
		a.GracePeriodEnd = nil
	}
	return nil
}

func (f *fakeAccountRepo) ClearSubscription(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	status := "canceled"
	a.SubscriptionTier = "free"
	a.SubscriptionStatus = &status
	a.StripeSubscriptionID = nil
	a.CurrentPeriodEnd = nil
	a.CancelAtPeriodEnd = false
	a.GracePeriodEnd = nil
	return nil
}

func (f *fakeAccountRepo) MarkPastDue(ctx context.Context, accountID string, graceEnd time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	status := "past_due"
	a.SubscriptionStatus = &status
	a.GracePeriodEnd = &graceEnd
	return nil
}

func (f *fakeAccountRepo) MarkActive(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return repository.ErrAccountNotFound
	}
	status := "active"
	a.SubscriptionStatus = &status
	a.GracePeriodEnd = nil
	return nil
}

type fakeBoardRepo struct {
	mu      sync.Mutex
	boards  map[string]*model.Board
	nextID  int
	failAdd bool
}

func newFakeBoardRepo() *fakeBoardRepo {
	return &fakeBoardRepo{boards: map[string]*model.Board{}}
}

func (f *fakeBoardRepo) CreateBoard(ctx context.Context, b *model.Board) (*model.Board, error) {
	if f.failAdd {
		return nil, errors.New("store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *b
	cp.ID = fmt.Sprintf("board-%d", f.nextID)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.boards[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeBoardRepo) GetBoardByID(ctx context.Context, boardID string) (*model.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok || b.DeletedAt != nil {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBoardRepo) SoftDeleteBoard(ctx context.Context, boardID, accountID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[boardID]
	if !ok || b.DeletedAt != nil || b.AccountID != accountID {
		return false, nil
	}
	now := time.Now()
	b.DeletedAt = &now
	return true, nil
}

func (f *fakeBoardRepo) CountBoards(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.boards {
		if b.AccountID == accountID && b.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeCardRepo struct {
	mu      sync.Mutex
	cards   map[string]*model.Card
	nextID  int
	failAdd bool
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: map[string]*model.Card{}}
}

func (f *fakeCardRepo) CreateCard(ctx context.Context, c *model.Card) (*model.Card, error) {
	if f.failAdd {
		return nil, errors.New("store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *c
	cp.ID = fmt.Sprintf("card-%d", f.nextID)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.cards[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCardRepo) GetCardByID(ctx context.Context, cardID string) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardID]
	if !ok || c.DeletedAt != nil {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCardRepo) SoftDeleteCard(ctx context.Context, cardID, accountID string) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[cardID]
	if !ok || c.DeletedAt != nil || c.AccountID != accountID {
		return nil, nil
	}
	now := time.Now()
	c.DeletedAt = &now
	cp := *c
	return &cp, nil
}

func (f *fakeCardRepo) CountCards(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.cards {
		if c.AccountID == accountID && c.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeCardRepo) SumStorageBytes(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, c := range f.cards {
		if c.AccountID == accountID && c.DeletedAt == nil {
			sum += c.Content.StorageBytes()
		}
	}
	return sum, nil
}

type fakeEventRepo struct {
	mu        sync.Mutex
	processed map[string]string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{processed: map[string]string{}}
}

func (f *fakeEventRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeEventRepo) Record(ctx context.Context, eventID, eventType string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.processed[eventID]; !ok {
		f.processed[eventID] = eventType
	}
	return nil
}

// fakeBlobStore tracks objects by key and their sizes.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]int64
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string]int64{}}
}

func (f *fakeBlobStore) put(key string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = size
}

func (f *fakeBlobStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://blob.test/" + key, nil
}

func (f *fakeBlobStore) ObjectSize(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.objects[key]
	if !ok {
		return 0, ErrObjectMissing
	}
	return size, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, payload)
	return fmt.Sprintf("msg-%d", len(f.messages)), nil
}
