package kernel

// RoleBindingKey identifies a role binding, optionally narrowed by event
// type and a dimension value, for dimension-aware bindings (spec.md §4.9).
type RoleBindingKey struct {
	Role      string
	EventType string // "" means "any event type"
	Dimension string // "" means "no dimension narrowing"
}

// RoleResolver maps a policy role to an account id using the pack's role
// bindings plus caller-supplied context. Grounded on spec.md §4.9. Never
// performs I/O.
type RoleResolver struct {
	pack     *CompiledPolicyPack
	accounts map[string]*Account // account id -> account
}

// NewRoleResolver constructs a resolver bound to pack and an account lookup.
func NewRoleResolver(pack *CompiledPolicyPack, accounts map[string]*Account) *RoleResolver {
	return &RoleResolver{pack: pack, accounts: accounts}
}

// Resolve returns the account id bound to role for the given context, or
// ("", false) if unresolved -- either no binding exists, or the bound
// account is closed.
func (r *RoleResolver) Resolve(role, eventType, dimension string) (string, bool) {
	candidates := []RoleBindingKey{
		{Role: role, EventType: eventType, Dimension: dimension},
		{Role: role, EventType: eventType},
		{Role: role, Dimension: dimension},
		{Role: role},
	}
	for _, key := range candidates {
		if accountID, ok := r.pack.RoleBindings[key]; ok {
			if acct, found := r.accounts[accountID]; found && !acct.IsOpen() {
				return "", false
			}
			return accountID, true
		}
	}
	return "", false
}

// ResolveAll resolves every line's role in an intent, returning the set of
// roles that could not be resolved (empty means full success).
func (r *RoleResolver) ResolveAll(intent *AccountingIntent, eventType string) (resolvedAccountIDs map[string]string, unresolved []string) {
	resolvedAccountIDs = make(map[string]string)
	seenUnresolved := make(map[string]bool)
	for _, li := range intent.LedgerIntents {
		for _, line := range li.Lines {
			dim := ""
			for _, v := range line.Dimensions {
				dim = v
				break
			}
			accountID, ok := r.Resolve(line.Role, eventType, dim)
			if !ok {
				if !seenUnresolved[line.Role] {
					unresolved = append(unresolved, line.Role)
					seenUnresolved[line.Role] = true
				}
				continue
			}
			resolvedAccountIDs[line.Role] = accountID
		}
	}
	return resolvedAccountIDs, unresolved
}
