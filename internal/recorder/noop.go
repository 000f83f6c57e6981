package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRound(_ *RoundEvent) error         { return nil }
func (n *NoopRecorder) RecordDuel(_ *DuelEvent) error           { return nil }
func (n *NoopRecorder) RecordCoinflip(_ *CoinflipEvent) error   { return nil }
func (n *NoopRecorder) RecordGrant(_ *GrantEvent) error         { return nil }
func (n *NoopRecorder) RecordTransfer(_ *TransferEvent) error   { return nil }
func (n *NoopRecorder) RecordEscrowReturn(_ *EscrowEvent) error { return nil }
func (n *NoopRecorder) Close() error                            { return nil }
