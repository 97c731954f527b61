// Package testutil holds in-memory stand-ins for the Postgres repositories.
// They honour the same user_id predicates and sentinel errors so service
// and bot tests exercise the real ownership rules.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"caku/internal/models"
	"caku/internal/repository"
	"caku/internal/security"
	"caku/internal/storage"
)

type FakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.AccessToken
	now    func() time.Time

	CreateErr error
}

func NewFakeTokenStore(now func() time.Time) *FakeTokenStore {
	if now == nil {
		now = time.Now
	}
	return &FakeTokenStore{tokens: make(map[string]models.AccessToken), now: now}
}

func (f *FakeTokenStore) Create(_ context.Context, tok models.AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return f.CreateErr
	}
	if _, ok := f.tokens[tok.Token]; ok {
		return repository.ErrTokenDuplicate
	}
	tok.Active = false
	tok.OwnerID = nil
	tok.ActivatedAt = nil
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = f.now()
	}
	f.tokens[tok.Token] = tok
	return nil
}

func (f *FakeTokenStore) Activate(_ context.Context, token string, ownerID string) (models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[token]
	if !ok {
		return models.AccessToken{}, repository.ErrTokenNotFound
	}
	if tok.ActivatedAt != nil {
		return models.AccessToken{}, repository.ErrTokenRedeemed
	}
	at := f.now()
	owner := ownerID
	tok.Active = true
	tok.OwnerID = &owner
	tok.ActivatedAt = &at
	f.tokens[token] = tok
	return tok, nil
}

func (f *FakeTokenStore) FindActiveByOwner(_ context.Context, ownerID string) (models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		best  models.AccessToken
		found bool
	)
	for _, tok := range f.tokens {
		if !tok.Active || tok.OwnerID == nil || *tok.OwnerID != ownerID {
			continue
		}
		if !found || tok.ActivatedAt.After(*best.ActivatedAt) {
			best, found = tok, true
		}
	}
	if !found {
		return models.AccessToken{}, repository.ErrTokenNotFound
	}
	return best, nil
}

func (f *FakeTokenStore) Deactivate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.tokens[token]; ok {
		tok.Active = false
		f.tokens[token] = tok
	}
	return nil
}

func (f *FakeTokenStore) DeactivateOwner(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for code, tok := range f.tokens {
		if tok.Active && tok.OwnerID != nil && *tok.OwnerID == ownerID {
			tok.Active = false
			f.tokens[code] = tok
			n++
		}
	}
	return n, nil
}

func (f *FakeTokenStore) List(_ context.Context) ([]models.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AccessToken, 0, len(f.tokens))
	for _, tok := range f.tokens {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns a copy of the stored token.
func (f *FakeTokenStore) Get(code string) (models.AccessToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[code]
	return tok, ok
}

// Only returns the single stored token code, or "" when there is not
// exactly one.
func (f *FakeTokenStore) Only() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) != 1 {
		return ""
	}
	for code := range f.tokens {
		return code
	}
	return ""
}

type FakeTransactionStore struct {
	mu     sync.RWMutex
	rows   []models.Transaction
	nextID int64
	now    func() time.Time

	QueryErr error
}

func NewFakeTransactionStore(now func() time.Time) *FakeTransactionStore {
	if now == nil {
		now = time.Now
	}
	return &FakeTransactionStore{now: now}
}

func (f *FakeTransactionStore) Insert(_ context.Context, tx models.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tx.ID = f.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = f.now()
	}
	f.rows = append(f.rows, tx)
	return tx.ID, nil
}

func (f *FakeTransactionStore) Update(_ context.Context, tx models.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == tx.ID && r.UserID == tx.UserID {
			f.rows[i].Amount = tx.Amount
			f.rows[i].Description = tx.Description
			f.rows[i].Category = tx.Category
			return 1, nil
		}
	}
	return 0, nil
}

func (f *FakeTransactionStore) Delete(_ context.Context, id int64, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *FakeTransactionStore) DeleteAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var n int64
	for _, r := range f.rows {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *FakeTransactionStore) Query(_ context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	rows := f.matching(userID, filter)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *FakeTransactionStore) Balance(_ context.Context, userID string, filter models.TransactionFilter) (int64, error) {
	var total int64
	for _, r := range f.matching(userID, filter) {
		total += r.Amount
	}
	return total, nil
}

func (f *FakeTransactionStore) CategoryTotals(_ context.Context, userID string, filter models.TransactionFilter) ([]models.CategoryTotal, error) {
	index := make(map[string]int)
	var out []models.CategoryTotal
	for _, r := range f.matching(userID, filter) {
		key := ""
		if r.Category != nil {
			key = *r.Category
		}
		i, ok := index[key]
		if !ok {
			ct := models.CategoryTotal{}
			if r.Category != nil {
				c := *r.Category
				ct.Category = &c
			}
			out = append(out, ct)
			i = len(out) - 1
			index[key] = i
		}
		out[i].Total += r.Amount
		if r.Amount < 0 {
			out[i].TotalNegative += r.Amount
		}
	}
	return out, nil
}

// Rows returns every stored row regardless of owner.
func (f *FakeTransactionStore) Rows() []models.Transaction {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.Transaction(nil), f.rows...)
}

func (f *FakeTransactionStore) matching(userID string, filter models.TransactionFilter) []models.Transaction {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Transaction
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		if filter.Category != "" && (r.Category == nil || !strings.EqualFold(*r.Category, filter.Category)) {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(r.Description), strings.ToLower(filter.Keyword)) {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !r.CreatedAt.Before(*filter.Until) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type FakeSettingsStore struct {
	mu       sync.RWMutex
	settings map[string]models.Settings

	ListErr error
}

func NewFakeSettingsStore() *FakeSettingsStore {
	return &FakeSettingsStore{settings: make(map[string]models.Settings)}
}

func (f *FakeSettingsStore) Get(_ context.Context, userID string) (models.Settings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.settings[userID]
	if !ok {
		return models.Settings{}, repository.ErrSettingsNotFound
	}
	return s, nil
}

func (f *FakeSettingsStore) UpsertReminder(_ context.Context, userID string, reminderTime *string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings[userID]
	s.UserID = userID
	if reminderTime != nil {
		t := *reminderTime
		s.ReminderTime = &t
	} else {
		s.ReminderTime = nil
	}
	msg := message
	s.ReminderMsg = &msg
	f.settings[userID] = s
	return nil
}

func (f *FakeSettingsStore) UpsertTarget(_ context.Context, userID string, target int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings[userID]
	s.UserID = userID
	s.Target = &target
	f.settings[userID] = s
	return nil
}

func (f *FakeSettingsStore) ListWithReminder(_ context.Context) ([]models.ReminderSetting, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.ReminderSetting
	for _, s := range f.settings {
		if s.ReminderTime == nil {
			continue
		}
		rs := models.ReminderSetting{UserID: s.UserID, ReminderTime: *s.ReminderTime}
		if s.ReminderMsg != nil {
			rs.ReminderMsg = *s.ReminderMsg
		}
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type FakeVaultStore struct {
	mu     sync.RWMutex
	creds  map[string]models.VaultCredential
	videos []models.VaultVideo
}

func NewFakeVaultStore() *FakeVaultStore {
	return &FakeVaultStore{creds: make(map[string]models.VaultCredential)}
}

func (f *FakeVaultStore) InsertCredential(_ context.Context, userID string, pinCipher []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.creds[userID]; ok {
		return repository.ErrCredentialExists
	}
	f.creds[userID] = models.VaultCredential{
		UserID:    userID,
		PinCipher: append([]byte(nil), pinCipher...),
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *FakeVaultStore) GetCredential(_ context.Context, userID string) (models.VaultCredential, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cred, ok := f.creds[userID]
	if !ok {
		return models.VaultCredential{}, repository.ErrCredentialNotFound
	}
	return cred, nil
}

func (f *FakeVaultStore) InsertVideo(_ context.Context, video models.VaultVideo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, video)
	return nil
}

func (f *FakeVaultStore) ListVideos(_ context.Context, userID string) ([]models.VaultVideo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.VaultVideo
	for _, v := range f.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

type FakeWishlistStore struct {
	mu     sync.RWMutex
	items  []models.WishlistItem
	nextID int64
}

func NewFakeWishlistStore() *FakeWishlistStore {
	return &FakeWishlistStore{}
}

func (f *FakeWishlistStore) Add(_ context.Context, userID string, name string) (models.WishlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item := models.WishlistItem{ID: f.nextID, UserID: userID, Name: name}
	f.items = append(f.items, item)
	return item, nil
}

func (f *FakeWishlistStore) ListByUser(_ context.Context, userID string) ([]models.WishlistItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.WishlistItem
	for _, it := range f.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeWishlistStore) ListAll(_ context.Context) ([]models.WishlistItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.WishlistItem(nil), f.items...), nil
}

func (f *FakeWishlistStore) UpdatePrice(_ context.Context, id int64, price *int64, url *string, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Price = price
			f.items[i].URL = url
			at := checkedAt
			f.items[i].LastChecked = &at
		}
	}
	return nil
}

func (f *FakeWishlistStore) Delete(_ context.Context, id int64, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID == id && it.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// FakeObjectStore keeps objects in memory and hands out fake links.
type FakeObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	PutErr error
}

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{objects: make(map[string][]byte)}
}

func (f *FakeObjectStore) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.PutErr != nil {
		return f.PutErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = buf.Bytes()
	return nil
}

func (f *FakeObjectStore) PresignedGet(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

func (f *FakeObjectStore) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

func (f *FakeObjectStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []storage.ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// MP4Header is the smallest payload the sniffer accepts as a video.
func MP4Header() []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0}, make([]byte, 48)...)
}

// PinCipher uses small Argon2 parameters so tests stay fast.
func PinCipher() *security.PinCipher {
	return security.NewPinCipherWithParams("test-secret", security.Argon2Params{
		Time:    1,
		Memory:  1024,
		Threads: 1,
		KeyLen:  32,
	})
}
