package nativelib

// forceReset returns b to the unloaded state.
func (b *Bootstrapper) forceReset() {
	b.mu.Lock()
	b.loaded = false
	b.mu.Unlock()
}
