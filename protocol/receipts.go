package protocol

import "sync"

// ReceiptBox is the server's per-uid queue of stored receipts awaiting
// delivery to the barcode owner. process_tx appends; send_receipts
// acquires exclusive access and atomically drains.
type ReceiptBox struct {
	mu    sync.Mutex
	queue map[int][]StoredReceipt
}

// NewReceiptBox returns an empty receipt box.
func NewReceiptBox() *ReceiptBox {
	return &ReceiptBox{queue: make(map[int][]StoredReceipt)}
}

// Append adds a receipt to uid's queue.
func (b *ReceiptBox) Append(uid int, r StoredReceipt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue[uid] = append(b.queue[uid], r)
}

// Drain removes and returns every queued receipt for uid. A true
// drain-and-delete, never an indexed remove: callers must see each
// receipt exactly once.
func (b *ReceiptBox) Drain(uid int) []StoredReceipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.queue[uid]
	delete(b.queue, uid)
	return entries
}
