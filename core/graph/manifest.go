package graph

// Manifest is a sparse address book: symbol or contract label to a map from
// chain name to address string. An empty address is a placeholder meaning
// "needs a value"; placeholders are inserted when a reference is first
// discovered and kept until a user fills them in.
type Manifest map[string]map[string]string

// Clone returns a deep copy of the manifest.
func (m Manifest) Clone() Manifest {
	if m == nil {
		return nil
	}
	copied := make(Manifest, len(m))
	for key, chains := range m {
		chainCopy := make(map[string]string, len(chains))
		for chain, address := range chains {
			chainCopy[chain] = address
		}
		copied[key] = chainCopy
	}
	return copied
}

// Ensure guarantees an entry exists for (key, chain), inserting an empty
// placeholder when missing. An already-filled address is never overwritten.
// A chain of "" records the key with no per-chain placeholder.
func (m Manifest) Ensure(key, chain string) {
	if key == "" {
		return
	}
	chains, exists := m[key]
	if !exists {
		chains = make(map[string]string)
		m[key] = chains
	}
	if chain == "" {
		return
	}
	if _, exists := chains[chain]; !exists {
		chains[chain] = ""
	}
}

// Merge copies entries from other into m, preserving any address already
// filled in m. Empty incoming addresses never clobber filled ones.
func (m Manifest) Merge(other Manifest) {
	for key, chains := range other {
		existing, exists := m[key]
		if !exists {
			existing = make(map[string]string, len(chains))
			m[key] = existing
		}
		for chain, address := range chains {
			if current, filled := existing[chain]; filled && current != "" && address == "" {
				continue
			}
			if existing[chain] == "" || address != "" {
				existing[chain] = address
			}
		}
	}
}

// AllEmpty reports whether every address under key is the empty placeholder.
func (m Manifest) AllEmpty(key string) bool {
	for _, address := range m[key] {
		if address != "" {
			return false
		}
	}
	return true
}
