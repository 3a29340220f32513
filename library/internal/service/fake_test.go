package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Astemirdum/library-loan-service/library/internal/errs"
	"github.com/Astemirdum/library-loan-service/library/internal/model"
	"github.com/Astemirdum/library-loan-service/library/internal/notify"
	"github.com/Astemirdum/library-loan-service/library/internal/repository"
)

// memStore is an in-memory LoanRepository. Transactions are serialized by
// mu and rolled back by restoring a snapshot.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]model.User
	books  map[int64]model.Book
	loans  map[int64]model.Loan
	nextID int64

	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]model.User),
		books: make(map[int64]model.Book),
		loans: make(map[int64]model.Loan),
	}
}

func (s *memStore) addUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return u
}

func (s *memStore) addBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = b
	return b
}

func (s *memStore) addLoan(l model.Loan) model.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	s.loans[l.ID] = s.hydrate(l)
	return s.loans[l.ID]
}

func (s *memStore) book(id int64) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id]
}

func (s *memStore) loan(id int64) model.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans[id]
}

func (s *memStore) hydrate(l model.Loan) model.Loan {
	b := s.books[l.BookID]
	u := s.users[l.UserID]
	l.Book = model.LoanBook{ID: b.ID, Title: b.Title, ISBN: b.ISBN}
	l.User = model.LoanUser{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
	return l
}

func (s *memStore) sorted(keep func(model.Loan) bool) []model.Loan {
	out := make([]model.Loan, 0)
	for _, l := range s.loans {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) GetLoan(_ context.Context, id int64) (model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (s *memStore) ListLoans(_ context.Context, f model.LoanFilter, now time.Time) (model.ListLoans, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.sorted(func(l model.Loan) bool {
		return (f.UserID == 0 || l.UserID == f.UserID) && (f.Status == "" || model.Derive(l, now) == f.Status)
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return model.ListLoans{Paging: model.Paging{TotalElements: len(items)}, Items: items}, nil
}

func (s *memStore) OpenLoans(_ context.Context, userID int64) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(l model.Loan) bool { return l.UserID == userID && l.ReturnedAt == nil }), nil
}

func (s *memStore) CountOpenLoans(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countOpen(userID), nil
}

func (s *memStore) countOpen(userID int64) int {
	n := 0
	for _, l := range s.loans {
		if l.UserID == userID && l.ReturnedAt == nil {
			n++
		}
	}
	return n
}

func (s *memStore) OverdueLoans(_ context.Context, now time.Time) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(l model.Loan) bool { return l.ReturnedAt == nil && l.DueDate.Before(now) }), nil
}

func (s *memStore) DueBetween(_ context.Context, from, to time.Time) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(l model.Loan) bool {
		return l.ReturnedAt == nil && !l.DueDate.Before(from) && l.DueDate.Before(to)
	}), nil
}

func (s *memStore) GetUser(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx repository.LoanTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make(map[int64]model.Book, len(s.books))
	for k, v := range s.books {
		books[k] = v
	}
	loans := make(map[int64]model.Loan, len(s.loans))
	for k, v := range s.loans {
		loans[k] = v
	}
	nextID := s.nextID

	if err := fn(&memTx{s: s}); err != nil {
		s.books, s.loans, s.nextID = books, loans, nextID
		return err
	}
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) LockUser(_ context.Context, id int64) (model.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (t *memTx) CountOpenLoans(_ context.Context, userID int64) (int, error) {
	return t.s.countOpen(userID), nil
}

func (t *memTx) HasOpenLoan(_ context.Context, userID, bookID int64) (bool, error) {
	for _, l := range t.s.loans {
		if l.UserID == userID && l.BookID == bookID && l.ReturnedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetBook(_ context.Context, id int64) (model.Book, error) {
	b, ok := t.s.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return b, nil
}

func (t *memTx) TakeCopy(_ context.Context, bookID int64) (bool, error) {
	b := t.s.books[bookID]
	if b.AvailableCopies == 0 {
		return false, nil
	}
	b.DecrementAvailable()
	t.s.books[bookID] = b
	return true, nil
}

func (t *memTx) PutBackCopy(_ context.Context, bookID int64) error {
	b := t.s.books[bookID]
	b.IncrementAvailable()
	t.s.books[bookID] = b
	return nil
}

func (t *memTx) InsertLoan(_ context.Context, l model.Loan) (model.Loan, error) {
	if t.s.failInsert != nil {
		return model.Loan{}, t.s.failInsert
	}
	t.s.nextID++
	l.ID = t.s.nextID
	t.s.loans[l.ID] = t.s.hydrate(l)
	return l, nil
}

func (t *memTx) LockLoan(_ context.Context, id int64) (model.Loan, error) {
	l, ok := t.s.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (t *memTx) MarkReturned(_ context.Context, id int64, at time.Time) (bool, error) {
	l := t.s.loans[id]
	if l.ReturnedAt != nil {
		return false, nil
	}
	l.ReturnedAt = &at
	t.s.loans[id] = l
	return true, nil
}

func (t *memTx) SetDueDate(_ context.Context, id int64, due, now time.Time) (bool, error) {
	l := t.s.loans[id]
	if l.ReturnedAt != nil || l.DueDate.Before(now) {
		return false, nil
	}
	l.DueDate = due
	t.s.loans[id] = l
	return true, nil
}

// flakyNotifier fails the sends whose 1-based position is listed in failOn.
type flakyNotifier struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	sent   []notify.Message
}

func (n *flakyNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.failOn[n.calls] {
		return errs.ErrLoanOperationFailed
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *flakyNotifier) templates() []notify.Template {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Template, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Template)
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var (
	_ repository.LoanRepository = (*memStore)(nil)
	_ repository.LoanTx         = (*memTx)(nil)
)
