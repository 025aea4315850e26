package payouts_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	payouts "github.com/goliatone/go-payouts"
	payoutscommand "github.com/goliatone/go-payouts/command"
	"github.com/goliatone/go-payouts/core"
	payoutmigrations "github.com/goliatone/go-payouts/migrations"
	"github.com/goliatone/go-payouts/providers/devkit"
	payoutsquery "github.com/goliatone/go-payouts/query"
	cachestore "github.com/goliatone/go-payouts/store/cache"
	sqlstore "github.com/goliatone/go-payouts/store/sql"
	"github.com/goliatone/go-payouts/webhooks"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type compositionPersistenceConfig struct {
	dsn string
}

func (c compositionPersistenceConfig) GetDebug() bool {
	return false
}

func (c compositionPersistenceConfig) GetDriver() string {
	return "sqlite3"
}

func (c compositionPersistenceConfig) GetServer() string {
	return c.dsn
}

func (c compositionPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c compositionPersistenceConfig) GetOtelIdentifier() string {
	return "go-payouts-composition"
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.PayoutEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event core.PayoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []core.PayoutEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.PayoutEventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

func TestComposition_SQLStoresFacadeAndWebhooks(t *testing.T) {
	ctx := context.Background()
	client := newCompositionClient(t)

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("repository factory: %v", err)
	}
	healthCache, err := cachestore.NewHealthCacheWithTTL(time.Minute)
	if err != nil {
		t.Fatalf("health cache: %v", err)
	}

	provider := devkit.NewFakeProvider("fake")
	registry := core.NewProviderRegistry()
	if err := payouts.RegisterProviders(registry, provider); err != nil {
		t.Fatalf("register providers: %v", err)
	}
	publisher := &recordingPublisher{}

	options := append(factory.ServiceOptions(),
		payouts.WithRegistry(registry),
		payouts.WithHealthCache(healthCache),
		payouts.WithEventPublisher(publisher),
	)
	cfg := payouts.DefaultConfig()
	cfg.Health.CacheTTL = time.Minute
	svc, err := payouts.NewService(cfg, options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := payouts.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	sender := executeCommand[payoutscommand.CreateCustomerMessage, core.Customer](t, facade.Commands().CreateCustomer,
		payoutscommand.CreateCustomerMessage{Request: devkit.BusinessCustomerRequest("ext-comp-sender")})
	beneficiary := executeCommand[payoutscommand.CreateCustomerMessage, core.Customer](t, facade.Commands().CreateCustomer,
		payoutscommand.CreateCustomerMessage{Request: devkit.IndividualCustomerRequest("ext-comp-beneficiary")})
	executeCommand[payoutscommand.AddBankAccountMessage, core.BankAccount](t, facade.Commands().AddBankAccount,
		payoutscommand.AddBankAccountMessage{
			CustomerID: beneficiary.ID,
			Request:    core.AddBankAccountRequest{Account: devkit.EURBankAccount()},
		})

	persisted, err := factory.CustomerStore().Get(ctx, beneficiary.ID)
	if err != nil {
		t.Fatalf("load beneficiary from sql: %v", err)
	}
	if len(persisted.BankAccounts) != 1 {
		t.Fatalf("expected bank account in sql store, got %+v", persisted.BankAccounts)
	}

	payout := executeCommand[payoutscommand.CreatePayoutMessage, core.Payout](t, facade.Commands().CreatePayout,
		payoutscommand.CreatePayoutMessage{Request: devkit.PayoutRequest(sender.ID, beneficiary.ID)})
	if payout.ProviderID != "fake" || payout.ProviderOrderID == "" {
		t.Fatalf("unexpected payout %+v", payout)
	}

	body, signature := provider.Webhook(devkit.FakeWebhookEvent{
		OrderID: payout.ProviderOrderID,
		Status:  string(core.PayoutStatusCompleted),
	})
	processor := webhooks.NewProcessor(svc, registry)
	result, err := processor.Process(ctx, webhooks.InboundRequest{
		ProviderID: "fake",
		Headers:    map[string]string{devkit.FakeSignatureHeader: signature},
		Body:       body,
	})
	if err != nil || !result.Matched {
		t.Fatalf("process webhook: result=%+v err=%v", result, err)
	}

	loaded, err := facade.Queries().GetPayout.Query(ctx, payoutsquery.GetPayoutMessage{PayoutID: payout.ID})
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if loaded.Status != core.PayoutStatusCompleted || loaded.Version < 2 {
		t.Fatalf("expected completed payout persisted with a new version, got %+v", loaded)
	}

	history, err := facade.Queries().GetPayoutHistory.Query(ctx, payoutsquery.GetPayoutHistoryMessage{
		Filter: core.PayoutHistoryFilter{SenderID: sender.ID, Status: core.PayoutStatusCompleted},
	})
	if err != nil {
		t.Fatalf("payout history: %v", err)
	}
	if history.Total != 1 || history.Items[0].ID != payout.ID {
		t.Fatalf("unexpected history %+v", history)
	}

	health, err := facade.Queries().CheckProviderHealth.Query(ctx, payoutsquery.CheckProviderHealthMessage{ProviderID: "fake"})
	if err != nil || !health.Healthy {
		t.Fatalf("provider health: %+v err=%v", health, err)
	}

	types := publisher.types()
	if len(types) < 2 || types[0] != core.PayoutEventCreated || types[len(types)-1] != core.PayoutEventStatusChanged {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

func executeCommand[M any, T any](t *testing.T, cmd gocmd.Commander[M], msg M) T {
	t.Helper()
	collector := gocmd.NewResult[T]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute %T: %v", msg, err)
	}
	out, ok := collector.Load()
	if !ok {
		t.Fatalf("execute %T: no result stored", msg)
	}
	return out
}

func newCompositionClient(t *testing.T) *persistence.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:payouts-composition-%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(compositionPersistenceConfig{dsn: dsn}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("persistence client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := payoutmigrations.Register(ctx, payoutmigrations.DialectSQLite, func(_ context.Context, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}); err != nil {
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}
