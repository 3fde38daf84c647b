package rewards

// LockedWallets exposes the number of live wallet lock entries to tests.
func LockedWallets(l *Ledger) int {
	return l.locks.size()
}
