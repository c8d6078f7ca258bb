package entities

// SyncOp is the kind of change carried by a peer message.
type SyncOp int

const (
	// SyncUpsert adds or updates a record.
	SyncUpsert SyncOp = iota
	// SyncRemove deletes a record.
	SyncRemove
)

// String returns the wire name of the operation.
func (o SyncOp) String() string {
	if o == SyncRemove {
		return "remove"
	}
	return "upsert"
}

// ParseSyncOp reverses SyncOp.String.
func ParseSyncOp(s string) SyncOp {
	if s == "remove" {
		return SyncRemove
	}
	return SyncUpsert
}

// SyncMessage is one of EntityChange, LinkChange or DifferenceGraphMessage.
type SyncMessage interface {
	syncMessage()
}

// EntityChange carries a single entity upsert or removal from a peer.
type EntityChange struct {
	Entity *Entity
	Op     SyncOp
}

// LinkChange carries a single link upsert or removal from a peer.
type LinkChange struct {
	Link *Link
	Op   SyncOp
}

// DifferenceGraphMessage carries a merge delta from a peer.
type DifferenceGraphMessage struct {
	Project string
	Delta   *DifferenceGraph
}

func (EntityChange) syncMessage()           {}
func (LinkChange) syncMessage()             {}
func (DifferenceGraphMessage) syncMessage() {}
