package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/contrast/pkg/entities"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite runs the same contract against every store
type RepositoryTestSuite struct {
	suite.Suite
	newRepo func() Repository
	repo    Repository
	ctx     context.Context
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositoryTestSuite{
		newRepo: func() Repository {
			return NewMemoryRepository(WithSafeCapacity(500))
		},
	})
}

func TestSQLiteRepository(t *testing.T) {
	s := &RepositoryTestSuite{}
	s.newRepo = func() Repository {
		repo, err := NewSQLiteRepository(context.Background(), filepath.Join(s.T().TempDir(), "ledger.db"), WithSafeCapacity(500))
		s.Require().NoError(err)
		return repo
	}
	suite.Run(t, s)
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.newRepo()
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.repo.Close()
}

func int64Ptr(v int64) *int64 {
	return &v
}

func (s *RepositoryTestSuite) TestGetUserMissing() {
	_, err := s.repo.GetUser(s.ctx, "ghost")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestCreateUserIsIdempotent() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))
	s.Require().NoError(s.repo.UpdateUser(s.ctx, "u1", &entities.AccountUpdate{Wallet: int64Ptr(75)}))
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "someone-else"))

	account, err := s.repo.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("alice", account.Username)
	s.Equal(int64(75), account.Wallet)
	s.Equal(int64(0), account.Safe)
	s.Equal(int64(500), account.SafeCapacity)
	s.False(account.CreatedAt.IsZero())
}

func (s *RepositoryTestSuite) TestUpdateUserPartial() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))

	name := "alice2"
	s.Require().NoError(s.repo.UpdateUser(s.ctx, "u1", &entities.AccountUpdate{
		Username:    &name,
		Wallet:      int64Ptr(10),
		TotalEarned: int64Ptr(10),
	}))
	s.Require().NoError(s.repo.UpdateUser(s.ctx, "u1", &entities.AccountUpdate{TotalSpent: int64Ptr(3)}))

	account, err := s.repo.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("alice2", account.Username)
	s.Equal(int64(10), account.Wallet)
	s.Equal(int64(10), account.TotalEarned)
	s.Equal(int64(3), account.TotalSpent)
}

func (s *RepositoryTestSuite) TestUpdateUserMissing() {
	err := s.repo.UpdateUser(s.ctx, "ghost", &entities.AccountUpdate{Wallet: int64Ptr(1)})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestLogTransactionValidation() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))

	err := s.repo.LogTransaction(s.ctx, &entities.TransactionLogEntry{UserID: "u1", Kind: "steal", Amount: 5})
	s.ErrorIs(err, ErrInvalidEntry)

	err = s.repo.LogTransaction(s.ctx, &entities.TransactionLogEntry{UserID: "u1", Kind: entities.TransactionKindAdd, Amount: 0})
	s.ErrorIs(err, ErrInvalidEntry)

	err = s.repo.LogTransaction(s.ctx, &entities.TransactionLogEntry{UserID: "ghost", Kind: entities.TransactionKindAdd, Amount: 5})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestGetTransactionsNewestFirst() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u2", "bob"))

	for i := int64(1); i <= 3; i++ {
		entry := &entities.TransactionLogEntry{
			UserID:       "u1",
			Kind:         entities.TransactionKindAdd,
			Amount:       i,
			Reason:       "test",
			BalanceAfter: i,
		}
		s.Require().NoError(s.repo.LogTransaction(s.ctx, entry))
		s.NotEmpty(entry.ID)
		s.False(entry.Timestamp.IsZero())
	}
	s.Require().NoError(s.repo.LogTransaction(s.ctx, &entities.TransactionLogEntry{
		UserID: "u2", Kind: entities.TransactionKindRemove, Amount: 9,
	}))

	entries, err := s.repo.GetTransactions(s.ctx, "u1", 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(3), entries[0].Amount)
	s.Equal(int64(2), entries[1].Amount)
	s.Equal(entities.TransactionKindAdd, entries[0].Kind)
	s.Equal("test", entries[0].Reason)

	all, err := s.repo.GetTransactions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Len(all, 3)

	none, err := s.repo.GetTransactions(s.ctx, "ghost", 10)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RepositoryTestSuite) TestListUsersCreationOrder() {
	for _, id := range []string{"charlie", "alice", "bob"} {
		s.Require().NoError(s.repo.CreateUser(s.ctx, id, id))
	}
	// Updating must not move an account in the order
	s.Require().NoError(s.repo.UpdateUser(s.ctx, "charlie", &entities.AccountUpdate{Wallet: int64Ptr(5)}))

	accounts, err := s.repo.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(accounts, 3)
	s.Equal("charlie", accounts[0].UserID)
	s.Equal("alice", accounts[1].UserID)
	s.Equal("bob", accounts[2].UserID)
}

func (s *RepositoryTestSuite) TestTransactionCommits() {
	err := s.repo.Transaction(s.ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateUser(ctx, "u1", "alice"); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, "u1", &entities.AccountUpdate{Wallet: int64Ptr(40)}); err != nil {
			return err
		}
		// Reads inside the transaction see staged writes
		account, err := tx.GetUser(ctx, "u1")
		if err != nil {
			return err
		}
		s.Equal(int64(40), account.Wallet)
		return tx.LogTransaction(ctx, &entities.TransactionLogEntry{
			UserID: "u1", Kind: entities.TransactionKindAdd, Amount: 40, BalanceAfter: 40,
		})
	})
	s.Require().NoError(err)

	account, err := s.repo.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(40), account.Wallet)

	entries, err := s.repo.GetTransactions(s.ctx, "u1", 10)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *RepositoryTestSuite) TestTransactionRollsBack() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))
	boom := errors.New("boom")

	err := s.repo.Transaction(s.ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.CreateUser(ctx, "u2", "bob"); err != nil {
			return err
		}
		if err := tx.UpdateUser(ctx, "u1", &entities.AccountUpdate{Wallet: int64Ptr(99)}); err != nil {
			return err
		}
		if err := tx.LogTransaction(ctx, &entities.TransactionLogEntry{
			UserID: "u1", Kind: entities.TransactionKindAdd, Amount: 99, BalanceAfter: 99,
		}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	account, err := s.repo.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(0), account.Wallet)

	_, err = s.repo.GetUser(s.ctx, "u2")
	s.ErrorIs(err, ErrUserNotFound)

	entries, err := s.repo.GetTransactions(s.ctx, "u1", 10)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *RepositoryTestSuite) TestTransactionCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	err := s.repo.Transaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateUser(ctx, "u1", "alice")
	})
	s.Error(err)

	_, err = s.repo.GetUser(s.ctx, "u1")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestConcurrentIncrementsSerialize() {
	s.Require().NoError(s.repo.CreateUser(s.ctx, "u1", "alice"))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.repo.Transaction(s.ctx, func(ctx context.Context, tx Tx) error {
				account, err := tx.GetUser(ctx, "u1")
				if err != nil {
					return err
				}
				wallet := account.Wallet + 1
				return tx.UpdateUser(ctx, "u1", &entities.AccountUpdate{Wallet: &wallet})
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	account, err := s.repo.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(int64(workers), account.Wallet)
}

func TestMemoryRepositoryClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	if err := repo.CreateUser(ctx, "u1", "alice"); err != nil {
		t.Fatal(err)
	}
	account, err := repo.GetUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !account.CreatedAt.Equal(fixed) {
		t.Fatalf("expected %v, got %v", fixed, account.CreatedAt)
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{
		"2024-03-01T12:00:00Z",
		"2024-03-01T12:00:00.123456789Z",
		"2024-03-01 12:00:00",
	} {
		if _, err := parseTimestamp(value); err != nil {
			t.Errorf("parseTimestamp(%q): %v", value, err)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}
