package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	kernel "postingkernel"
)

func main() {
	fmt.Println("Posting Kernel Demo")
	fmt.Println("===================")

	dbFile := "demo_kernel.db"
	os.Remove(dbFile)

	pack := &kernel.CompiledPolicyPack{
		LegalEntity: "demo-entity",
		RoleBindings: map[kernel.RoleBindingKey]string{
			{Role: "cash"}:    "acct-cash",
			{Role: "revenue"}: "acct-revenue",
		},
		ResolvedEngineParams: map[string]kernel.FrozenEngineParams{},
		EngineContracts:      map[string]string{},
	}

	clock := kernel.SystemClock{}
	actors := map[string]*kernel.Actor{
		"demo_user": {ID: "demo_user", Name: "Demo User"},
	}

	k, err := kernel.NewKernel(dbFile, pack, nil, actors, clock)
	if err != nil {
		log.Fatalf("failed to create kernel: %v", err)
	}
	defer k.Close()
	defer os.Remove(dbFile)

	fmt.Println("\nStep 1: Registering accounts")
	for _, acct := range []*kernel.Account{
		{ID: "acct-cash", Code: "1000", Name: "Cash", Type: kernel.Asset, Currency: "USD"},
		{ID: "acct-revenue", Code: "4000", Name: "Revenue", Type: kernel.Income, Currency: "USD"},
	} {
		if err := k.Storage.SaveAccount(acct); err != nil {
			log.Fatalf("failed to save account: %v", err)
		}
	}
	fmt.Println("accounts registered")

	fmt.Println("\nStep 2: Registering the sale policy")
	salePolicy := &kernel.AccountingPolicy{
		Name:         "consulting_sale",
		Version:      1,
		EventType:    "sale.recognized",
		EconomicType: "revenue_recognition",
		Scope:        "*",
		LedgerEffects: []kernel.LedgerEffect{
			{LedgerID: "GL", DebitRole: "cash", CreditRole: "revenue"},
		},
		IntentSource: kernel.IntentDerived,
	}
	if err := k.RegisterPolicy(salePolicy); err != nil {
		log.Fatalf("failed to register policy: %v", err)
	}
	fmt.Println("policy registered: consulting_sale v1")

	fmt.Println("\nStep 3: Posting a sale event")
	req := &kernel.PostEventRequest{
		EventID:       uuid.New().String(),
		EventType:     "sale.recognized",
		OccurredAt:    time.Now(),
		EffectiveDate: time.Now(),
		ActorID:       "demo_user",
		Producer:      "demo",
		Payload:       map[string]any{"description": "consulting services"},
		Amount:        kernel.NewMoney(250000, "USD"),
	}
	result := k.Coordinator.PostEvent(req)
	fmt.Printf("outcome status: %s\n", result.Outcome.Status)
	if result.Outcome.Status == kernel.StatusPosted {
		fmt.Printf("journal entries: %v\n", result.Outcome.JournalEntryIDs)
	}

	fmt.Println("\nStep 4: Replaying the same event (idempotent ingest)")
	replay := k.Coordinator.PostEvent(req)
	fmt.Printf("replay outcome status: %s (same entries: %v)\n", replay.Outcome.Status, replay.Outcome.JournalEntryIDs)

	fmt.Println("\nDemo complete.")
}
