package kernel

import (
	"fmt"

	"github.com/google/uuid"
)

// Kernel is the top-level wiring point: it owns storage and constructs
// every component from a loaded CompiledPolicyPack. Grounded on
// engine.go's AccountingEngine constructor pattern, generalized from the
// teacher's large fixed service list to the kernel's own component set.
type Kernel struct {
	Storage     *Storage
	Pack        *CompiledPolicyPack
	Clock       Clock
	Ingestor    *Ingestor
	Policies    *PolicyRegistry
	Periods     *PeriodService
	Dispatcher  *EngineDispatcher
	Roles       *RoleResolver
	Subledgers  *SubledgerRegistry
	Journal     *JournalWriter
	Outcomes    *OutcomeRecorder
	Retry       *RetryService
	Coordinator *InterpretationCoordinator
}

// NewKernel opens storage at dbPath, loads accounts, and assembles every
// component bound to pack. Policies must still be registered into
// k.Policies and engines into k.Dispatcher by the caller before the
// coordinator is used, mirroring the teacher's pattern of wiring storage
// and services in the constructor while leaving domain data to be loaded
// separately.
func NewKernel(dbPath string, pack *CompiledPolicyPack, periods []Period, actors map[string]*Actor, clock Clock) (*Kernel, error) {
	storage, err := NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kernel storage: %w", err)
	}

	accounts, err := storage.LoadAccounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	ingestor := NewIngestor(storage, clock)
	policies := NewPolicyRegistry()
	periodService := NewPeriodService(periods)
	dispatcher := NewEngineDispatcher(pack, clock)
	roles := NewRoleResolver(pack, accounts)
	subledgers := NewSubledgerRegistry(pack.SubledgerContracts)
	journal := NewJournalWriter(storage, roles, subledgers, clock)
	outcomes := NewOutcomeRecorder(storage, clock)
	retry := NewRetryService(outcomes)

	newID := func() string { return uuid.New().String() }

	coordinator := NewInterpretationCoordinator(
		ingestor, policies, periodService, dispatcher, roles, journal,
		outcomes, storage, clock, newID, actors, pack.Controls,
	)

	return &Kernel{
		Storage: storage, Pack: pack, Clock: clock,
		Ingestor: ingestor, Policies: policies, Periods: periodService,
		Dispatcher: dispatcher, Roles: roles, Subledgers: subledgers,
		Journal: journal, Outcomes: outcomes, Retry: retry,
		Coordinator: coordinator,
	}, nil
}

// RegisterPolicy loads a compiled pack policy into the kernel's runtime
// registry. Call once per pack policy at startup.
func (k *Kernel) RegisterPolicy(p *AccountingPolicy) error {
	return k.Policies.Register(p, p.Name, p.Version)
}

// RegisterEngine installs an invoker for the given engine name.
func (k *Kernel) RegisterEngine(engineName string, invoker EngineInvoker) error {
	return k.Dispatcher.Register(engineName, invoker)
}

// Close releases the kernel's storage handle.
func (k *Kernel) Close() error {
	return k.Storage.Close()
}
