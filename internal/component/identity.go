package component

// NetworkIdentity is the server-assigned id shared by every replicated entity.
type NetworkIdentity struct {
	ID int32
}

// PlayerControlled marks the entity driven by local input. It predicts its
// own moves and never appears together with RemoteProxy.
type PlayerControlled struct{}

// RemoteProxy marks an entity driven only by server broadcasts.
type RemoteProxy struct{}

// PeerRef links a server-side entity to the connection that owns it.
// The peer itself lives in the net package.
type PeerRef struct {
	PeerID uint32
}

// Profile stores the display data replicated in PlayerJoinData.
// Pure data, zero methods.
type Profile struct {
	Name        string
	Description string
	Vocation    uint8
	Gender      uint8
}
