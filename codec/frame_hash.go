package codec

// FrameHash computes keccak(rlp(value)), the canonical "state hash" formula
// used by both the bilateral account frames and the entity BFT frames
// (spec.md §4.1 "frame_hash", §3 AccountFrame.stateHash). value must already
// be the canonical form excluding the hash/signature fields themselves.
func FrameHash(value interface{}) Bytes32 {
	return Keccak(MustEncodeRLP(value))
}
