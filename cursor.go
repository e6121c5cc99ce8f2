package dynattr

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	// Register DynamoDB types with gob for cursor encoding
	gob.Register(map[string]types.AttributeValue{})
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberBOOL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
}

// MarshalCursor encodes a last evaluated key into an opaque, URL-safe token
// that can travel to clients and later resume iteration through
// UnmarshalCursor and Filter.StartFrom. An empty key yields an empty token.
func MarshalCursor(key Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(key); err != nil {
		return "", fmt.Errorf("dynattr: failed to encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// UnmarshalCursor decodes a token produced by MarshalCursor back into a start
// key. An empty token yields a nil key, which Filter.StartFrom treats as
// starting from the beginning.
func UnmarshalCursor(cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("dynattr: invalid cursor: %w", err)
	}
	var key Item
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&key); err != nil {
		return nil, fmt.Errorf("dynattr: invalid cursor: %w", err)
	}
	return key, nil
}
