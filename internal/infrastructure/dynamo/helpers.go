package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB attribute names shared by the repos and Bootstrap.
const (
	attrUserID    = "user_id"
	attrEmail     = "email"
	attrOtpID     = "otp_id"
	attrCode      = "code"
	attrExpiry    = "expiry_time"
	attrExpiresAt = "expires_at"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value maps into a DynamoDB SET expression.
// Fields in set are always written; fields in setIfAbsent keep an existing value.
// Keys are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(set, setIfAbsent map[string]interface{}) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	var clauses []string
	i := 0
	add := func(fields map[string]interface{}, ifAbsent bool) error {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(fields[k])
			if err != nil {
				return fmt.Errorf("marshal field %s: %w", k, err)
			}
			ue.Names[nameKey] = k
			ue.Values[valueKey] = av
			if ifAbsent {
				clauses = append(clauses, fmt.Sprintf("%s = if_not_exists(%s, %s)", nameKey, nameKey, valueKey))
			} else {
				clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
			}
			i++
		}
		return nil
	}
	if err := add(set, false); err != nil {
		return updateExpr{}, err
	}
	if err := add(setIfAbsent, true); err != nil {
		return updateExpr{}, err
	}
	if i == 0 {
		return updateExpr{}, errors.New("no fields to update")
	}
	ue.Expr = "SET " + strings.Join(clauses, ", ")
	return ue, nil
}

// isConditionalFailure reports whether err is a failed condition check, either
// on a single write or on any item of a cancelled transaction.
func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
