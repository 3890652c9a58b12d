package catalog

// Store defines the catalog operations used by the importer, API, and MCP
// layers. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with mocks.
type Store interface {
	RecordImport(rec ImportRecord) (int64, error)
	GetOrder(id int64) (*OrderRow, []CardRow, error)
	ListOrders(limit, offset int) ([]OrderRow, int, error)
	CardStatus(orderID int64, cardID string) (*CardRow, error)
	UpdateCard(orderID int64, cardID, status, fingerprint, failure string) error
	PutImage(fingerprint string, data []byte) error
	GetImage(fingerprint string) ([]byte, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
