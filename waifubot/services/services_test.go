package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/database/dbtest"
	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

type fixedSource struct {
	f float64
	i int
}

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) IntN(n int) int   { return s.i % n }

type fixture struct {
	stores   *Stores
	catalog  *catalog.Catalog
	policy   waifu.Policy
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.New([]catalog.Entry{
		{ID: "rem", Name: "Rem", Tier: waifu.TierSS, Popularity: 1},
		{ID: "kurisu", Name: "Makise Kurisu", Tier: waifu.TierS, Popularity: 1},
		{ID: "mikasa", Name: "Mikasa", Tier: waifu.TierA, Popularity: 1},
		{ID: "asuna", Name: "Asuna", Tier: waifu.TierB, Popularity: 1},
		{ID: "megumin", Name: "Megumin", Tier: waifu.TierC, Popularity: 1},
		{ID: "darkness", Name: "Darkness", Tier: waifu.TierD, Popularity: 1},
		{ID: "aqua", Name: "Aqua", Tier: waifu.TierD, Popularity: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	db := dbtest.New(t)
	return &fixture{
		stores:   NewStores(db.BunDB()),
		catalog:  cat,
		policy:   waifu.DefaultPolicy(),
		sessions: session.NewManager(0),
	}
}

func (f *fixture) fund(t *testing.T, user string, balance string, mgems int64) {
	t.Helper()
	ctx := context.Background()
	if balance != "" {
		if _, err := f.stores.Accounts.AdjustBalance(ctx, nil, user, decimal.RequireFromString(balance)); err != nil {
			t.Fatal(err)
		}
	}
	if mgems > 0 {
		if _, err := f.stores.Accounts.AdjustMgems(ctx, nil, user, mgems); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fixture) card(t *testing.T, serial, owner, catalogID string, tier waifu.Tier) {
	t.Helper()
	err := f.stores.Cards.Create(context.Background(), nil, &models.Card{
		Serial: serial, CatalogID: catalogID, Tier: tier, OwnerID: owner,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) owner(t *testing.T, serial string) string {
	t.Helper()
	c, err := f.stores.Cards.Get(context.Background(), nil, serial)
	if err != nil {
		t.Fatal(err)
	}
	return c.OwnerID
}

func (f *fixture) balance(t *testing.T, user string) decimal.Decimal {
	t.Helper()
	b, err := f.stores.Accounts.GetBalance(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func (f *fixture) drawService(t *testing.T, src waifu.RandSource) *DrawService {
	t.Helper()
	s, err := NewDrawService(f.stores, f.catalog, f.policy, f.sessions, src)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDrawService_Draw(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "5", 0)
	draws := f.drawService(t, fixedSource{f: 0.5})
	ctx := context.Background()

	res, err := draws.Draw(ctx, "alice", waifu.TierAny)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Balance.Equal(decimal.NewFromInt(2)) || !f.balance(t, "alice").Equal(decimal.NewFromInt(2)) {
		t.Errorf("balance after draw = %s, want 2", res.Balance)
	}
	if res.Card.Serial != "D-000001" || res.Card.Tier != waifu.TierD || res.Entry.Tier != waifu.TierD {
		t.Errorf("drawn card = %+v", res.Card)
	}

	stored, err := f.stores.Cards.Get(ctx, nil, res.Card.Serial)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Level != 1 || stored.Locked || stored.OwnerID != "alice" {
		t.Errorf("stored card = %+v", stored)
	}

	if _, err := draws.Draw(ctx, "alice", waifu.TierAny); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Fatalf("second draw error = %v, want ErrInsufficientFunds", err)
	}
	if n, _ := f.stores.Cards.CountByOwner(ctx, "alice"); n != 1 {
		t.Errorf("card count = %d after refused draw", n)
	}
	if !f.balance(t, "alice").Equal(decimal.NewFromInt(2)) {
		t.Errorf("refused draw changed the balance")
	}
}

func TestDrawService_Minimum(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "1000", 0)
	ctx := context.Background()

	tests := []struct {
		minimum  waifu.Tier
		roll     float64
		wantTier waifu.Tier
		wantCost int64
	}{
		{waifu.TierA, 0.99, waifu.TierA, 100},
		{waifu.TierB, 0.99, waifu.TierB, 30},
		{waifu.TierC, 0, waifu.TierSS, 10},
	}
	for _, tt := range tests {
		res, err := f.drawService(t, fixedSource{f: tt.roll}).Draw(ctx, "alice", tt.minimum)
		if err != nil {
			t.Fatalf("Draw(%s) error = %v", tt.minimum, err)
		}
		if res.Card.Tier != tt.wantTier || !res.Cost.Equal(decimal.NewFromInt(tt.wantCost)) {
			t.Errorf("Draw(%s) = %s for %s, want %s for %d", tt.minimum, res.Card.Tier, res.Cost, tt.wantTier, tt.wantCost)
		}
	}

	if _, err := f.drawService(t, nil).Draw(ctx, "alice", waifu.TierS); !errors.Is(err, waifu.ErrInvalidArgument) {
		t.Errorf("Draw(S) error = %v", err)
	}
}

func TestDrawService_Guards(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "alice", "100", 0)
	ctx := context.Background()
	draws := f.drawService(t, fixedSource{f: 0.5})

	release, err := f.sessions.Acquire("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := draws.Draw(ctx, "alice", waifu.TierAny); !errors.Is(err, waifu.ErrBusy) {
		t.Errorf("Draw() during another request error = %v", err)
	}
	release()

	f.sessions = session.NewManager(time.Hour)
	draws = f.drawService(t, fixedSource{f: 0.5})
	if _, err := draws.Draw(ctx, "alice", waifu.TierAny); err != nil {
		t.Fatal(err)
	}
	_, err = draws.Draw(ctx, "alice", waifu.TierAny)
	var cd *session.CooldownError
	if !errors.As(err, &cd) {
		t.Errorf("Draw() on cooldown error = %v", err)
	}
	if f.sessions.IsActive("alice") {
		t.Error("lease leaked after draw")
	}
}

func TestDrawService_EmptyTierLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	cat, err := catalog.New([]catalog.Entry{{ID: "aqua", Name: "Aqua", Tier: waifu.TierD, Popularity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	f.catalog = cat
	f.fund(t, "alice", "5", 0)

	_, err = f.drawService(t, fixedSource{f: 0}).Draw(context.Background(), "alice", waifu.TierAny)
	if !errors.Is(err, waifu.ErrEmptyTier) {
		t.Fatalf("Draw() error = %v, want ErrEmptyTier", err)
	}
	if !f.balance(t, "alice").Equal(decimal.NewFromInt(5)) {
		t.Error("failed draw debited the user")
	}
	if cur, _ := f.stores.Serials.Current(context.Background(), waifu.TierSS); cur != 0 {
		t.Errorf("failed draw consumed serial %d", cur)
	}
}

func TestSaleService(t *testing.T) {
	f := newFixture(t)
	sales := NewSaleService(f.stores, f.catalog, f.policy, f.sessions)
	ctx := context.Background()
	f.card(t, "D-000001", "alice", "darkness", waifu.TierD)
	f.card(t, "D-000002", "alice", "aqua", waifu.TierD)
	f.card(t, "D-000003", "alice", "retired", waifu.TierD)

	_, quote, err := sales.Quote(ctx, "D-000001")
	if err != nil || !quote.Equal(decimal.RequireFromString("2.7")) {
		t.Fatalf("Quote() = %s, %v", quote, err)
	}

	res, err := sales.Sell(ctx, "alice", "D-000001")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Value.Equal(decimal.RequireFromString("2.7")) || !res.Balance.Equal(decimal.RequireFromString("2.7")) {
		t.Errorf("Sell() = %+v", res)
	}
	if _, err := sales.Sell(ctx, "alice", "D-000001"); !errors.Is(err, waifu.ErrCardNotFound) {
		t.Errorf("second Sell() error = %v", err)
	}
	if !f.balance(t, "alice").Equal(decimal.RequireFromString("2.7")) {
		t.Error("second sale credited twice")
	}

	if _, err := sales.Sell(ctx, "bob", "D-000002"); !errors.Is(err, waifu.ErrNotOwner) {
		t.Errorf("Sell() by stranger error = %v", err)
	}
	if _, err := f.stores.Cards.SetLocked(ctx, nil, "D-000002", "alice", true); err != nil {
		t.Fatal(err)
	}
	if _, err := sales.Sell(ctx, "alice", "D-000002"); !errors.Is(err, waifu.ErrCardLocked) {
		t.Errorf("Sell() of locked card error = %v", err)
	}

	res, err = sales.Sell(ctx, "alice", "D-000003")
	if err != nil || !res.Value.Equal(decimal.RequireFromString("1.8")) {
		t.Errorf("Sell() of uncatalogued card = %+v, %v", res, err)
	}
}

func TestUpgradeService(t *testing.T) {
	f := newFixture(t)
	upgrades := NewUpgradeService(f.stores, f.policy, f.sessions)
	ctx := context.Background()
	f.card(t, "D-000001", "alice", "darkness", waifu.TierD)
	f.fund(t, "alice", "", 3)

	quote, err := upgrades.Quote(ctx, "alice", "D-000001")
	if err != nil {
		t.Fatal(err)
	}
	want := &UpgradeQuote{Serial: "D-000001", Tier: waifu.TierD, Level: 1, NextTier: waifu.TierD, NextLevel: 2, Cost: 1}
	if !reflect.DeepEqual(quote, want) {
		t.Errorf("Quote() = %+v, want %+v", quote, want)
	}

	var last *waifu.UpgradeResult
	for i := 0; i < 3; i++ {
		if last, err = upgrades.Upgrade(ctx, "alice", "D-000001"); err != nil {
			t.Fatalf("upgrade %d: %v", i+1, err)
		}
	}
	if last.Tier != waifu.TierC || last.Level != 1 || !last.Promoted || last.Serial != "D-000001" {
		t.Errorf("after three upgrades = %+v, want C1 with the same serial", last)
	}
	if m, _ := f.stores.Accounts.GetMgems(ctx, "alice"); m != 0 {
		t.Errorf("Mgems left = %d, want 0", m)
	}

	if _, err := upgrades.Upgrade(ctx, "alice", "D-000001"); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Errorf("Upgrade() without Mgems error = %v", err)
	}
	if _, err := upgrades.Upgrade(ctx, "bob", "D-000001"); !errors.Is(err, waifu.ErrNotOwner) {
		t.Errorf("Upgrade() by stranger error = %v", err)
	}
}

func TestUpgradeService_SSCostGrows(t *testing.T) {
	f := newFixture(t)
	upgrades := NewUpgradeService(f.stores, f.policy, f.sessions)
	ctx := context.Background()
	f.card(t, "SS-000001", "alice", "rem", waifu.TierSS)
	f.fund(t, "alice", "", 1000)

	var costs []int64
	for i := 0; i < 4; i++ {
		res, err := upgrades.Upgrade(ctx, "alice", "SS-000001")
		if err != nil {
			t.Fatal(err)
		}
		costs = append(costs, res.Cost)
	}
	if !reflect.DeepEqual(costs, []int64{10, 17, 29, 49}) {
		t.Errorf("SS costs = %v", costs)
	}
}

func TestGiftService(t *testing.T) {
	f := newFixture(t)
	gifts := NewGiftService(f.stores, f.sessions)
	ctx := context.Background()
	f.fund(t, "alice", "10", 5)
	f.card(t, "C-000001", "alice", "megumin", waifu.TierC)

	bal, err := gifts.GiftCurrency(ctx, "alice", "bob", decimal.RequireFromString("4.50"))
	if err != nil || !bal.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("GiftCurrency() = %s, %v", bal, err)
	}
	if !f.balance(t, "bob").Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("bob balance = %s", f.balance(t, "bob"))
	}
	if _, err := gifts.GiftCurrency(ctx, "alice", "bob", decimal.NewFromInt(100)); !errors.Is(err, waifu.ErrInsufficientFunds) {
		t.Errorf("overdraft gift error = %v", err)
	}
	if !f.balance(t, "bob").Equal(decimal.RequireFromString("4.5")) {
		t.Error("refused gift still credited the receiver")
	}

	for _, tc := range []struct {
		name string
		err  error
	}{
		{"self", func() error { _, err := gifts.GiftCurrency(ctx, "alice", "alice", decimal.NewFromInt(1)); return err }()},
		{"zero", func() error { _, err := gifts.GiftCurrency(ctx, "alice", "bob", decimal.Zero); return err }()},
		{"negative mgems", func() error { _, err := gifts.GiftMgems(ctx, "alice", "bob", -1); return err }()},
		{"self card", func() error { _, err := gifts.GiftCard(ctx, "alice", "alice", "C-000001"); return err }()},
	} {
		if !errors.Is(tc.err, waifu.ErrInvalidArgument) {
			t.Errorf("%s: error = %v, want ErrInvalidArgument", tc.name, tc.err)
		}
	}

	if m, err := gifts.GiftMgems(ctx, "alice", "bob", 2); err != nil || m != 3 {
		t.Errorf("GiftMgems() = %d, %v", m, err)
	}

	if ok, err := gifts.GiftCard(ctx, "alice", "bob", "C-000001"); err != nil || !ok {
		t.Fatalf("GiftCard() = %v, %v", ok, err)
	}
	if f.owner(t, "C-000001") != "bob" {
		t.Error("gifted card did not move")
	}
	if ok, err := gifts.GiftCard(ctx, "alice", "bob", "C-000001"); err != nil || ok {
		t.Errorf("GiftCard() of a card no longer held = %v, %v", ok, err)
	}

	account, err := gifts.Grant(ctx, "carol", decimal.NewFromInt(50), 7)
	if err != nil || !account.Balance.Equal(decimal.NewFromInt(50)) || account.Mgems != 7 {
		t.Errorf("Grant() = %+v, %v", account, err)
	}
}

func TestCollectionService(t *testing.T) {
	f := newFixture(t)
	collection := NewCollectionService(f.stores, f.catalog)
	ctx := context.Background()
	f.card(t, "D-000001", "alice", "darkness", waifu.TierD)
	f.card(t, "SS-000001", "alice", "rem", waifu.TierSS)
	f.card(t, "B-000001", "alice", "gone", waifu.TierB)

	views, err := collection.List(ctx, "alice", repositories.CardFilter{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, v := range views {
		names = append(names, v.Name())
	}
	if !reflect.DeepEqual(names, []string{"Rem", "gone", "Darkness"}) {
		t.Errorf("List() names = %v", names)
	}

	if ok, err := collection.SetLocked(ctx, "bob", "D-000001", true); err != nil || ok {
		t.Errorf("SetLocked() by stranger = %v, %v", ok, err)
	}
	if ok, err := collection.SetLocked(ctx, "alice", "D-000001", true); err != nil || !ok {
		t.Errorf("SetLocked() by owner = %v, %v", ok, err)
	}
	v, err := collection.Get(ctx, "d-000001")
	if err != nil || !v.Card.Locked || v.Entry == nil || v.Entry.ID != "darkness" {
		t.Errorf("Get() = %+v, %v", v, err)
	}
	if w, err := collection.Wallet(ctx, "never-seen-user"); err != nil || !w.Balance.IsZero() || w.Mgems != 0 {
		t.Errorf("Wallet(unknown) = %+v, %v", w, err)
	}
}

func TestTradeNegotiator_DeclineKeepsOwners(t *testing.T) {
	f := newFixture(t)
	trades := NewTradeNegotiator(f.stores, f.sessions, f.policy)
	ctx := context.Background()
	f.card(t, "A-000001", "alice", "mikasa", waifu.TierA)
	f.card(t, "B-000001", "bob", "asuna", waifu.TierB)

	trade, err := trades.Propose(ctx, "alice", "bob", "a-000001", "B-000001")
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := trades.Decline(ctx, trade.ID); err != nil || !ok {
		t.Fatalf("Decline() = %v, %v", ok, err)
	}
	if f.owner(t, "A-000001") != "alice" || f.owner(t, "B-000001") != "bob" {
		t.Error("decline moved a card")
	}
	got, err := trades.Get(ctx, trade.ID)
	if err != nil || got.Status != models.TradeDeclined {
		t.Errorf("trade = %+v, %v", got, err)
	}

	for name, op := range map[string]func(context.Context, string) (bool, error){
		"accept":  trades.Accept,
		"decline": trades.Decline,
		"cancel":  trades.Cancel,
	} {
		if ok, err := op(ctx, trade.ID); err != nil || ok {
			t.Errorf("%s on declined trade = %v, %v", name, ok, err)
		}
	}
}

func TestTradeNegotiator_Accept(t *testing.T) {
	f := newFixture(t)
	trades := NewTradeNegotiator(f.stores, f.sessions, f.policy)
	ctx := context.Background()
	f.card(t, "A-000001", "alice", "mikasa", waifu.TierA)
	f.card(t, "B-000001", "bob", "asuna", waifu.TierB)

	trade, err := trades.Propose(ctx, "alice", "bob", "A-000001", "B-000001")
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := trades.Accept(ctx, trade.ID); err != nil || !ok {
		t.Fatalf("Accept() = %v, %v", ok, err)
	}
	if f.owner(t, "A-000001") != "bob" || f.owner(t, "B-000001") != "alice" {
		t.Error("accepted trade did not swap both cards")
	}
	if ok, err := trades.Accept(ctx, trade.ID); err != nil || ok {
		t.Errorf("second Accept() = %v, %v", ok, err)
	}
	got, _ := trades.Get(ctx, trade.ID)
	if got.Status != models.TradeCompleted || got.CompletedAt.IsZero() {
		t.Errorf("trade = %+v", got)
	}
}

func TestTradeNegotiator_AcceptAfterDrift(t *testing.T) {
	tests := []struct {
		name  string
		drift func(t *testing.T, f *fixture)
	}{
		{"offeree card sold", func(t *testing.T, f *fixture) {
			if ok, _ := f.stores.Cards.Delete(context.Background(), nil, "B-000001", "bob"); !ok {
				t.Fatal("delete failed")
			}
		}},
		{"offerer card given away", func(t *testing.T, f *fixture) {
			if ok, _ := f.stores.Cards.Transfer(context.Background(), nil, "A-000001", "alice", "carol"); !ok {
				t.Fatal("transfer failed")
			}
		}},
		{"offeree card locked", func(t *testing.T, f *fixture) {
			if ok, _ := f.stores.Cards.SetLocked(context.Background(), nil, "B-000001", "bob", true); !ok {
				t.Fatal("lock failed")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			trades := NewTradeNegotiator(f.stores, f.sessions, f.policy)
			ctx := context.Background()
			f.card(t, "A-000001", "alice", "mikasa", waifu.TierA)
			f.card(t, "B-000001", "bob", "asuna", waifu.TierB)

			trade, err := trades.Propose(ctx, "alice", "bob", "A-000001", "B-000001")
			if err != nil {
				t.Fatal(err)
			}
			before := map[string]string{}
			tt.drift(t, f)
			for _, s := range []string{"A-000001", "B-000001"} {
				if c, err := f.stores.Cards.Get(ctx, nil, s); err == nil {
					before[s] = c.OwnerID
				}
			}

			ok, err := trades.Accept(ctx, trade.ID)
			if err != nil || ok {
				t.Fatalf("Accept() = %v, %v; want false", ok, err)
			}
			for s, owner := range before {
				if got := f.owner(t, s); got != owner {
					t.Errorf("%s moved from %s to %s", s, owner, got)
				}
			}
			got, _ := trades.Get(ctx, trade.ID)
			if got.Status != models.TradeFailed {
				t.Errorf("status = %s, want failed", got.Status)
			}
		})
	}
}

func TestTradeNegotiator_ProposeRejections(t *testing.T) {
	f := newFixture(t)
	trades := NewTradeNegotiator(f.stores, f.sessions, f.policy)
	ctx := context.Background()
	f.card(t, "A-000001", "alice", "mikasa", waifu.TierA)
	f.card(t, "B-000001", "bob", "asuna", waifu.TierB)
	f.card(t, "C-000001", "carol", "megumin", waifu.TierC)
	f.card(t, "D-000001", "bob", "aqua", waifu.TierD)
	if _, err := f.stores.Cards.SetLocked(ctx, nil, "D-000001", "bob", true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name                string
		offerer, offeree    string
		offerCard, wantCard string
		wantErr             error
	}{
		{"self trade", "alice", "alice", "A-000001", "A-000001", waifu.ErrInvalidArgument},
		{"offerer does not own", "alice", "bob", "C-000001", "B-000001", waifu.ErrNotOwner},
		{"offeree does not own", "alice", "bob", "A-000001", "C-000001", waifu.ErrNotOwner},
		{"locked card", "alice", "bob", "A-000001", "D-000001", waifu.ErrCardLocked},
		{"unknown card", "alice", "bob", "A-000009", "B-000001", waifu.ErrCardNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trades.Propose(ctx, tt.offerer, tt.offeree, tt.offerCard, tt.wantCard)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Propose() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := trades.Propose(ctx, "alice", "bob", "A-000001", "B-000001"); err != nil {
		t.Fatal(err)
	}
	if _, err := trades.Propose(ctx, "alice", "carol", "A-000001", "C-000001"); !errors.Is(err, waifu.ErrDuplicateOffer) {
		t.Errorf("second offer by alice error = %v", err)
	}
	if _, err := trades.Propose(ctx, "carol", "bob", "C-000001", "B-000001"); !errors.Is(err, waifu.ErrDuplicateOffer) {
		t.Errorf("offer to a user with a pending trade error = %v", err)
	}
	pending, err := trades.Pending(ctx, "bob")
	if err != nil || len(pending) != 1 {
		t.Errorf("Pending(bob) = %v, %v", pending, err)
	}
}

func TestTradeNegotiator_CancelStale(t *testing.T) {
	f := newFixture(t)
	trades := NewTradeNegotiator(f.stores, f.sessions, f.policy)
	ctx := context.Background()
	f.card(t, "A-000001", "alice", "mikasa", waifu.TierA)
	f.card(t, "B-000001", "bob", "asuna", waifu.TierB)

	now := time.Now()
	trades.now = func() time.Time { return now }
	trade, err := trades.Propose(ctx, "alice", "bob", "A-000001", "B-000001")
	if err != nil {
		t.Fatal(err)
	}

	if n, err := trades.CancelStale(ctx); err != nil || n != 0 {
		t.Fatalf("CancelStale() on a fresh trade = %d, %v", n, err)
	}
	now = now.Add(f.policy.TradeExpiry + time.Minute)
	if n, err := trades.CancelStale(ctx); err != nil || n != 1 {
		t.Fatalf("CancelStale() = %d, %v", n, err)
	}
	got, _ := trades.Get(ctx, trade.ID)
	if got.Status != models.TradeCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if ok, _ := trades.Accept(ctx, trade.ID); ok {
		t.Error("accepted a cancelled trade")
	}
	history, err := trades.History(ctx, "alice", 5)
	if err != nil || len(history) != 1 {
		t.Errorf("History() = %v, %v", history, err)
	}
}
