package badger

import (
	"encoding/binary"

	"github.com/poiesic/docchat/core"
)

// Key prefixes for different data types.
// Every prefix ends with ':' so no prefix is a prefix of another.
const (
	documentRecordPrefix = "docrec:"
	documentChunkPrefix  = "docchunk:"
	documentOrderPrefix  = "docord:"
	documentOrderSeq     = "docseq"
	documentDimensionKey = "docdim"
	turnRecordPrefix     = "turn:"
	turnSeq              = "turnseq"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return appendUint64([]byte(documentRecordPrefix), uint64(id))
}

// makeDocumentChunksPrefix generates the prefix shared by all chunks of a
// document. Format: prefix:docID
func makeDocumentChunksPrefix(id core.ID) []byte {
	return appendUint64([]byte(documentChunkPrefix), uint64(id))
}

// makeDocumentChunkKey generates a key for one chunk of a document.
// Format: prefix:docID:index, so chunks iterate in document order.
func makeDocumentChunkKey(id core.ID, index int) []byte {
	return appendUint64(makeDocumentChunksPrefix(id), uint64(index))
}

// makeDocumentOrderKey generates a key for the insertion order index.
// Format: prefix:seq
func makeDocumentOrderKey(seq uint64) []byte {
	return appendUint64([]byte(documentOrderPrefix), seq)
}

// makeTurnKey generates a key for a conversation turn by sequence number.
// Format: prefix:seq
func makeTurnKey(seq core.ID) []byte {
	return appendUint64([]byte(turnRecordPrefix), uint64(seq))
}

// appendUint64 writes v in BigEndian order so lexicographic sort matches
// numeric order.
func appendUint64(prefix []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(prefix, v)
}
