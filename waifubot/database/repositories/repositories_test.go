package repositories_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/disgoorg/waifu-bot/waifubot/database/dbtest"
	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

func TestSerialRepository_Next(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewSerialRepository(db.BunDB())
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		s, err := repo.Next(ctx, nil, waifu.TierSS)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, s)
	}
	want := []string{"SS-000001", "SS-000002", "SS-000003"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}

	d, err := repo.Next(ctx, nil, waifu.TierD)
	if err != nil || d != "D-000001" {
		t.Errorf("Next(D) = %s, %v; tiers must count independently", d, err)
	}
	if _, err := repo.Next(ctx, nil, waifu.Tier("X")); !errors.Is(err, waifu.ErrInvalidArgument) {
		t.Errorf("Next(X) error = %v", err)
	}
}

func TestSerialRepository_NextConcurrent(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewSerialRepository(db.BunDB())

	const n = 64
	serials := make([]string, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			s, err := repo.Next(ctx, nil, waifu.TierSS)
			serials[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool, n)
	for _, s := range serials {
		if seen[s] {
			t.Fatalf("serial %s issued twice", s)
		}
		seen[s] = true
	}
	if cur, _ := repo.Current(context.Background(), waifu.TierSS); cur != n {
		t.Errorf("Current() = %d, want %d", cur, n)
	}
}

func TestSerialRepository_RollbackReturnsNumber(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewSerialRepository(db.BunDB())
	ctx := context.Background()

	tx, err := db.BunDB().BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Next(ctx, tx, waifu.TierA); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	s, err := repo.Next(ctx, nil, waifu.TierA)
	if err != nil || s != "A-000001" {
		t.Errorf("Next() after rollback = %s, %v", s, err)
	}
}

func TestSerialRepository_Raise(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewSerialRepository(db.BunDB())
	ctx := context.Background()

	if err := repo.Raise(ctx, nil, waifu.TierB, 41); err != nil {
		t.Fatal(err)
	}
	if err := repo.Raise(ctx, nil, waifu.TierB, 7); err != nil {
		t.Fatal(err)
	}
	s, err := repo.Next(ctx, nil, waifu.TierB)
	if err != nil || s != "B-000042" {
		t.Errorf("Next() after Raise = %s, %v", s, err)
	}
}

func newCard(serial, owner string, tier waifu.Tier) *models.Card {
	return &models.Card{Serial: serial, CatalogID: "rem", Tier: tier, OwnerID: owner}
}

func TestCardRepository_CreateAndGet(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewCardRepository(db.BunDB())
	ctx := context.Background()

	card := newCard("D-000001", "alice", waifu.TierD)
	card.Level = 9
	card.Locked = true
	if err := repo.Create(ctx, nil, card); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, nil, "d-000001")
	if err != nil {
		t.Fatal(err)
	}
	if got.Level != 1 || got.Locked || got.OwnerID != "alice" || got.Tier != waifu.TierD {
		t.Errorf("Get() = %+v, want fresh level-1 unlocked card", got)
	}

	if err := repo.Create(ctx, nil, newCard("D-000001", "bob", waifu.TierD)); !errors.Is(err, waifu.ErrDuplicateSerial) {
		t.Errorf("duplicate Create() error = %v", err)
	}
	if _, err := repo.Get(ctx, nil, "D-999999"); !errors.Is(err, waifu.ErrCardNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestCardRepository_LockRules(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewCardRepository(db.BunDB())
	ctx := context.Background()

	if err := repo.Create(ctx, nil, newCard("S-000001", "alice", waifu.TierS)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		op   func() (bool, error)
		want bool
	}{
		{"stranger cannot lock", func() (bool, error) { return repo.SetLocked(ctx, nil, "S-000001", "bob", true) }, false},
		{"owner locks", func() (bool, error) { return repo.SetLocked(ctx, nil, "S-000001", "alice", true) }, true},
		{"locked card cannot move", func() (bool, error) { return repo.Transfer(ctx, nil, "S-000001", "alice", "bob") }, false},
		{"locked card cannot be deleted", func() (bool, error) { return repo.Delete(ctx, nil, "S-000001", "alice") }, false},
		{"owner unlocks", func() (bool, error) { return repo.SetLocked(ctx, nil, "S-000001", "alice", false) }, true},
		{"wrong sender cannot move", func() (bool, error) { return repo.Transfer(ctx, nil, "S-000001", "bob", "carol") }, false},
		{"self transfer is refused", func() (bool, error) { return repo.Transfer(ctx, nil, "S-000001", "alice", "alice") }, false},
		{"owner transfers", func() (bool, error) { return repo.Transfer(ctx, nil, "S-000001", "alice", "bob") }, true},
		{"old owner cannot delete", func() (bool, error) { return repo.Delete(ctx, nil, "S-000001", "alice") }, false},
		{"new owner deletes", func() (bool, error) { return repo.Delete(ctx, nil, "S-000001", "bob") }, true},
		{"second delete is a no-op", func() (bool, error) { return repo.Delete(ctx, nil, "S-000001", "bob") }, false},
		{"missing card cannot be locked", func() (bool, error) { return repo.SetLocked(ctx, nil, "S-000001", "bob", true) }, false},
	}
	for _, tt := range tests {
		got, err := tt.op()
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCardRepository_TransferClearsLock(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewCardRepository(db.BunDB())
	ctx := context.Background()

	if err := repo.Create(ctx, nil, newCard("A-000001", "alice", waifu.TierA)); err != nil {
		t.Fatal(err)
	}
	if ok, err := repo.Transfer(ctx, nil, "A-000001", "alice", "bob"); !ok || err != nil {
		t.Fatalf("Transfer() = %v, %v", ok, err)
	}
	card, err := repo.Get(ctx, nil, "A-000001")
	if err != nil {
		t.Fatal(err)
	}
	if card.OwnerID != "bob" || card.Locked {
		t.Errorf("after transfer card = %+v", card)
	}
}

func TestCardRepository_Upgrade(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewCardRepository(db.BunDB())
	ctx := context.Background()

	if err := repo.Create(ctx, nil, newCard("D-000007", "alice", waifu.TierD)); err != nil {
		t.Fatal(err)
	}

	type step struct {
		Tier     waifu.Tier
		Level    int
		Promoted bool
	}
	var got []step
	for i := 0; i < 3; i++ {
		res, err := repo.Upgrade(ctx, nil, "D-000007", "alice")
		if err != nil {
			t.Fatal(err)
		}
		if res.Serial != "D-000007" {
			t.Errorf("serial changed to %s", res.Serial)
		}
		got = append(got, step{res.Tier, res.Level, res.Promoted})
	}
	want := []step{{waifu.TierD, 2, false}, {waifu.TierD, 3, false}, {waifu.TierC, 1, true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("upgrade steps = %+v, want %+v", got, want)
	}

	card, _ := repo.Get(ctx, nil, "D-000007")
	if card.Tier != waifu.TierC || card.Level != 1 {
		t.Errorf("stored card = %s%d, want C1", card.Tier, card.Level)
	}
	if _, err := repo.Upgrade(ctx, nil, "D-000007", "bob"); !errors.Is(err, waifu.ErrNotOwner) {
		t.Errorf("Upgrade() by stranger error = %v", err)
	}
}

func TestCardRepository_ListByOwner(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewCardRepository(db.BunDB())
	ctx := context.Background()

	for _, c := range []*models.Card{
		newCard("D-000001", "alice", waifu.TierD),
		newCard("SS-000001", "alice", waifu.TierSS),
		newCard("B-000001", "alice", waifu.TierB),
		newCard("B-000002", "bob", waifu.TierB),
	} {
		if err := repo.Create(ctx, nil, c); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.SetLocked(ctx, nil, "B-000001", "alice", true); err != nil {
		t.Fatal(err)
	}

	serials := func(cards []*models.Card) []string {
		out := make([]string, len(cards))
		for i, c := range cards {
			out[i] = c.Serial
		}
		return out
	}

	tests := []struct {
		name   string
		filter repositories.CardFilter
		want   []string
	}{
		{"all sorted rarest first", repositories.CardFilter{}, []string{"SS-000001", "B-000001", "D-000001"}},
		{"tier filter", repositories.CardFilter{Tier: waifu.TierB}, []string{"B-000001"}},
		{"locked only", repositories.CardFilter{LockedOnly: true}, []string{"B-000001"}},
		{"paged", repositories.CardFilter{Limit: 1, Offset: 1}, []string{"B-000001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := repo.ListByOwner(ctx, "alice", tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if got := serials(cards); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ListByOwner() = %v, want %v", got, tt.want)
			}
		})
	}

	if n, err := repo.CountByOwner(ctx, "alice"); err != nil || n != 3 {
		t.Errorf("CountByOwner() = %d, %v", n, err)
	}
}

func TestAccountRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewAccountRepository(db.BunDB())
	ctx := context.Background()

	bal, err := repo.GetBalance(ctx, "never-seen-user")
	if err != nil || !bal.IsZero() {
		t.Fatalf("GetBalance(unknown) = %s, %v", bal, err)
	}
	if m, err := repo.GetMgems(ctx, "never-seen-user"); err != nil || m != 0 {
		t.Fatalf("GetMgems(unknown) = %d, %v", m, err)
	}

	if _, err := repo.AdjustBalance(ctx, nil, "alice", decimal.NewFromInt(-1)); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Errorf("debit of unknown account error = %v", err)
	}

	bal, err = repo.AdjustBalance(ctx, nil, "alice", decimal.RequireFromString("5.25"))
	if err != nil || !bal.Equal(decimal.RequireFromString("5.25")) {
		t.Fatalf("credit = %s, %v", bal, err)
	}
	bal, err = repo.AdjustBalance(ctx, nil, "alice", decimal.NewFromInt(-3))
	if err != nil || !bal.Equal(decimal.RequireFromString("2.25")) {
		t.Fatalf("debit = %s, %v", bal, err)
	}
	if _, err := repo.AdjustBalance(ctx, nil, "alice", decimal.NewFromInt(-3)); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Errorf("overdraft error = %v", err)
	}
	if bal, _ := repo.GetBalance(ctx, "alice"); !bal.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("balance after refused overdraft = %s", bal)
	}

	m, err := repo.AdjustMgems(ctx, nil, "alice", 4)
	if err != nil || m != 4 {
		t.Fatalf("AdjustMgems(+4) = %d, %v", m, err)
	}
	if _, err := repo.AdjustMgems(ctx, nil, "alice", -5); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Errorf("Mgem overdraft error = %v", err)
	}
	account, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if account.Mgems != 4 || !account.Balance.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("Get() = %+v", account)
	}
}

func TestAccountRepository_DebitExactCents(t *testing.T) {
	tests := []struct {
		name    string
		credits []string
		debit   string
	}{
		{"tenths", []string{"0.7", "0.1"}, "0.8"},
		{"draw price", []string{"2.7", "0.3"}, "3"},
		{"sale values", []string{"1.8", "1.2"}, "3"},
		{"many small credits", []string{"0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1", "0.1"}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.New(t)
			repo := repositories.NewAccountRepository(db.BunDB())
			ctx := context.Background()

			for _, c := range tt.credits {
				if _, err := repo.AdjustBalance(ctx, nil, "alice", decimal.RequireFromString(c)); err != nil {
					t.Fatal(err)
				}
			}
			bal, err := repo.AdjustBalance(ctx, nil, "alice", decimal.RequireFromString(tt.debit).Neg())
			if err != nil {
				t.Fatalf("debit of the whole balance error = %v", err)
			}
			if !bal.IsZero() {
				t.Errorf("balance after debit = %s, want 0", bal)
			}
			if _, err := repo.AdjustBalance(ctx, nil, "alice", decimal.RequireFromString("-0.01")); !errors.Is(err, waifu.ErrInsufficientFunds) {
				t.Errorf("debit below zero error = %v", err)
			}
		})
	}
}

func TestAccountRepository_ConcurrentCredits(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewAccountRepository(db.BunDB())

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			_, err := repo.AdjustBalance(ctx, nil, "alice", decimal.RequireFromString("0.10"))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	bal, err := repo.GetBalance(context.Background(), "alice")
	if err != nil || !bal.Equal(decimal.NewFromInt(4)) {
		t.Errorf("balance after 40 credits of 0.10 = %s, %v", bal, err)
	}
}

func TestAccountRepository_Seed(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewAccountRepository(db.BunDB())
	ctx := context.Background()

	ok, err := repo.Seed(ctx, nil, &models.Account{UserID: "alice", Balance: decimal.NewFromInt(10), Mgems: 2})
	if err != nil || !ok {
		t.Fatalf("Seed() = %v, %v", ok, err)
	}
	ok, err = repo.Seed(ctx, nil, &models.Account{UserID: "alice", Balance: decimal.NewFromInt(99)})
	if err != nil || ok {
		t.Fatalf("second Seed() = %v, %v", ok, err)
	}
	if bal, _ := repo.GetBalance(ctx, "alice"); !bal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s, want 10", bal)
	}
}

func TestTradeRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := repositories.NewTradeRepository(db.BunDB())
	ctx := context.Background()
	now := time.Now().UTC()

	old := &models.Trade{ID: "t-old", OffererID: "alice", OffereeID: "bob", OffererCard: "D-000001", OffereeCard: "D-000002", CreatedAt: now.Add(-48 * time.Hour)}
	fresh := &models.Trade{ID: "t-new", OffererID: "carol", OffereeID: "alice", OffererCard: "D-000003", OffereeCard: "D-000004", CreatedAt: now}
	for _, tr := range []*models.Trade{old, fresh} {
		if err := repo.Create(ctx, nil, tr); err != nil {
			t.Fatal(err)
		}
	}

	for _, user := range []string{"alice", "bob", "carol"} {
		if ok, err := repo.HasPending(ctx, nil, user); err != nil || !ok {
			t.Errorf("HasPending(%s) = %v, %v", user, ok, err)
		}
	}
	if ok, _ := repo.HasPending(ctx, nil, "dave"); ok {
		t.Error("HasPending(dave) = true")
	}

	pending, err := repo.ListPending(ctx, "alice")
	if err != nil || len(pending) != 2 || pending[0].ID != "t-new" {
		t.Fatalf("ListPending(alice) = %v, %v", pending, err)
	}

	n, err := repo.CancelStale(ctx, now.Add(-24*time.Hour), now)
	if err != nil || n != 1 {
		t.Fatalf("CancelStale() = %d, %v", n, err)
	}
	got, err := repo.Get(ctx, nil, "t-old")
	if err != nil || got.Status != models.TradeCancelled || got.CompletedAt.IsZero() {
		t.Fatalf("stale trade = %+v, %v", got, err)
	}

	if ok, err := repo.Transition(ctx, nil, "t-old", models.TradeCompleted, now); err != nil || ok {
		t.Errorf("Transition() of terminal trade = %v, %v", ok, err)
	}
	if ok, err := repo.Transition(ctx, nil, "t-new", models.TradeDeclined, now); err != nil || !ok {
		t.Errorf("Transition(pending→declined) = %v, %v", ok, err)
	}
	if _, err := repo.Transition(ctx, nil, "t-new", models.TradePending, now); !errors.Is(err, waifu.ErrInvalidArgument) {
		t.Errorf("Transition(→pending) error = %v", err)
	}
	if _, err := repo.Get(ctx, nil, "missing"); !errors.Is(err, waifu.ErrTradeNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	history, err := repo.ListHistory(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	var statuses []string
	for _, tr := range history {
		statuses = append(statuses, string(tr.Status))
	}
	sort.Strings(statuses)
	if !reflect.DeepEqual(statuses, []string{"cancelled", "declined"}) {
		t.Errorf("history statuses = %v", statuses)
	}
}
