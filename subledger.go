package kernel

// SubledgerRegistry holds configurable subledger control-account contracts
// (spec.md §4.13). Grounded on spec.md §4.13's concept -- a structural side
// check at write time -- distinct from reconciliation.go's bank-statement
// matching, which the kernel does not implement (see DESIGN.md).
type SubledgerRegistry struct {
	contracts map[string]SubledgerContract // control role -> contract
}

// NewSubledgerRegistry builds a registry from the pack's declared contracts.
func NewSubledgerRegistry(contracts []SubledgerContract) *SubledgerRegistry {
	reg := &SubledgerRegistry{contracts: make(map[string]SubledgerContract)}
	for _, c := range contracts {
		reg.contracts[c.ControlRole] = c
	}
	return reg
}

// EnforceOnPost checks every line in intent whose role is a configured
// control-account role against the contract's required side. A mismatch
// surfaces as SubledgerReconciliationError and must abort the write.
func (r *SubledgerRegistry) EnforceOnPost(intent *AccountingIntent) error {
	if len(r.contracts) == 0 {
		return nil
	}
	for _, li := range intent.LedgerIntents {
		for _, line := range li.Lines {
			contract, ok := r.contracts[line.Role]
			if !ok {
				continue
			}
			if line.Side != contract.RequiredSide {
				return &SubledgerReconciliationError{
					Subledger: contract.Subledger,
					AccountID: line.Role,
					Reason:    "line side " + string(line.Side) + " violates required side " + string(contract.RequiredSide),
				}
			}
		}
	}
	return nil
}
