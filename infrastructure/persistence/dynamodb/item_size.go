package dynamodb

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// MaxItemBytes is the DynamoDB item size limit
const MaxItemBytes = 400 * 1024

// itemSize estimates the stored size of an item using DynamoDB's sizing
// rules: attribute names count their UTF-8 bytes, lists and maps add 3
// bytes plus 1 per element.
func itemSize(item map[string]types.AttributeValue) int {
	size := 0
	for name, v := range item {
		size += len(name) + attrSize(v)
	}
	return size
}

func attrSize(v types.AttributeValue) int {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return len(t.Value)
	case *types.AttributeValueMemberN:
		return numberSize(t.Value)
	case *types.AttributeValueMemberB:
		return len(t.Value)
	case *types.AttributeValueMemberBOOL, *types.AttributeValueMemberNULL:
		return 1
	case *types.AttributeValueMemberL:
		size := 3
		for _, e := range t.Value {
			size += 1 + attrSize(e)
		}
		return size
	case *types.AttributeValueMemberM:
		size := 3
		for name, e := range t.Value {
			size += 1 + len(name) + attrSize(e)
		}
		return size
	case *types.AttributeValueMemberSS:
		size := 0
		for _, s := range t.Value {
			size += len(s)
		}
		return size
	case *types.AttributeValueMemberNS:
		size := 0
		for _, n := range t.Value {
			size += numberSize(n)
		}
		return size
	case *types.AttributeValueMemberBS:
		size := 0
		for _, b := range t.Value {
			size += len(b)
		}
		return size
	}
	return 0
}

// numberSize is one byte per two significant digits plus one
func numberSize(n string) int {
	digits := strings.TrimLeft(strings.Trim(n, "-+"), "0.")
	if i := strings.IndexAny(digits, "eE"); i >= 0 {
		digits = digits[:i]
	}
	digits = strings.Replace(digits, ".", "", 1)
	return (len(digits)+1)/2 + 1
}

// isItemTooLarge recognises the ValidationException DynamoDB returns for
// oversized items
func isItemTooLarge(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) || ae.ErrorCode() != "ValidationException" {
		return false
	}
	return strings.Contains(strings.ToLower(ae.ErrorMessage()), "item size")
}
