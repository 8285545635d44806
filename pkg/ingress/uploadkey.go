package ingress

import (
	"strings"

	"github.com/cuemby/dd214pipeline/pkg/types"
)

// parsedUpload holds the identity recovered from an uploads/ object key.
type parsedUpload struct {
	ownerID    string
	documentID types.DocumentID
}

// parseUploadKey recovers owner_id and document_id from a key matching
// blob.UploadKey's layout: {owner_id}/{timestamp}_{document_id}.{ext}.
// Returns false if key does not match the expected shape.
func parseUploadKey(key string) (parsedUpload, bool) {
	slash := strings.IndexByte(key, '/')
	if slash < 0 {
		return parsedUpload{}, false
	}
	ownerID := key[:slash]
	rest := key[slash+1:]

	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return parsedUpload{}, false
	}
	rest = rest[:dot]

	underscore := strings.IndexByte(rest, '_')
	if underscore < 0 {
		return parsedUpload{}, false
	}
	documentID := rest[underscore+1:]
	if ownerID == "" || documentID == "" {
		return parsedUpload{}, false
	}

	return parsedUpload{ownerID: ownerID, documentID: types.DocumentID(documentID)}, true
}
