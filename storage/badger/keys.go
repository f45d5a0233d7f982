package badger

import (
	"encoding/binary"

	"github.com/poiesic/rapport/core"
)

const (
	profileRecordPrefix = "profrec:"
	matchRecordPrefix   = "matchrec:"
)

// Profile keys embed the raw user id so iteration follows user id order.
func makeProfileKey(userID string) []byte {
	buf := make([]byte, 0, len(profileRecordPrefix)+len(userID))
	buf = append(buf, profileRecordPrefix...)
	return append(buf, userID...)
}

func userIDFromProfileKey(key []byte) string {
	return string(key[len(profileRecordPrefix):])
}

// makeMatchKey builds matchrec:<hash(source)><hash(source->target)>.
// All edges leaving one source share the first 8 bytes after the prefix.
func makeMatchKey(sourceUserID, targetUserID string) []byte {
	edge := core.MatchEdge{SourceUserID: sourceUserID, TargetUserID: targetUserID}
	buf := makePartialMatchKey(sourceUserID)
	// Write in BigEndian order so lexicographic sort works correctly
	return binary.BigEndian.AppendUint64(buf, uint64(edge.Key()))
}

func makePartialMatchKey(sourceUserID string) []byte {
	buf := make([]byte, 0, len(matchRecordPrefix)+16)
	buf = append(buf, matchRecordPrefix...)
	return binary.BigEndian.AppendUint64(buf, uint64(core.IDFromContent(sourceUserID)))
}
