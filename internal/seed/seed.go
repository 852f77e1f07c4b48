// Package seed generates demo clients and accounts and exports them as CSV.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/DTigi/BankApplication/internal/account"
	"github.com/DTigi/BankApplication/internal/identity"
)

const (
	minAccounts = 1
	maxAccounts = 3
	minBalance  = 1000
	maxBalance  = 10000
)

var csvHeader = []string{"username", "password", "fullName", "AccountNumber", "initialBalance"}

// Record is one generated account together with its owner's credentials.
type Record struct {
	Username       string
	Password       string
	FullName       string
	AccountNumber  string
	InitialBalance decimal.Decimal
}

// Seeder creates fixture clients through the regular services.
type Seeder struct {
	ids      *identity.Service
	accounts *account.Service
	faker    *gofakeit.Faker
}

// New builds a seeder. A zero seed picks a random one.
func New(ids *identity.Service, accounts *account.Service, seed uint64) *Seeder {
	return &Seeder{ids: ids, accounts: accounts, faker: gofakeit.New(seed)}
}

// Run registers clients user1..userN with passwords pass1..passN, each owning
// one to three accounts with a whole opening balance. Usernames that already
// exist are skipped.
func (s *Seeder) Run(ctx context.Context, n int) ([]Record, error) {
	var records []Record
	for i := 1; i <= n; i++ {
		username := "user" + strconv.Itoa(i)
		password := "pass" + strconv.Itoa(i)
		fullName := s.faker.Name()

		client, err := s.ids.Register(ctx, identity.Registration{
			FullName: fullName,
			Phone:    s.faker.Numerify("+79#########"),
			Username: username,
			Password: password,
		})
		if errors.Is(err, identity.ErrUsernameTaken) {
			continue
		}
		if err != nil {
			return records, fmt.Errorf("seed client %s: %w", username, err)
		}

		count := s.faker.IntRange(minAccounts, maxAccounts)
		for j := 0; j < count; j++ {
			balance := decimal.NewFromInt(int64(s.faker.IntRange(minBalance, maxBalance)))
			acct, err := s.accounts.Create(ctx, account.CreateInput{OwnerID: client.ID, OpeningBalance: balance})
			if err != nil {
				return records, fmt.Errorf("seed account for %s: %w", username, err)
			}
			records = append(records, Record{
				Username:       username,
				Password:       password,
				FullName:       fullName,
				AccountNumber:  acct.Number,
				InitialBalance: balance,
			})
		}
	}
	return records, nil
}

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.Username, r.Password, r.FullName, r.AccountNumber, r.InitialBalance.StringFixed(2)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, replacing any existing file.
func WriteCSVFile(path string, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, records)
}
