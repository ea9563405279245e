package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-account-chat/internal/domain"
)

// tokenIndexBackoff spaces the extra token lookups made while
// verification_token-index catches up with a fresh signup or resend.
var tokenIndexBackoff = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond}

// AccountsAPI is the part of *dynamodb.Client the account repo calls.
type AccountsAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// AccountRepo provides typed DynamoDB operations for the accounts table and
// the email claim table that keeps addresses unique.
type AccountRepo struct {
	client       AccountsAPI
	tableName    string
	emailsTable  string
	indexBackoff []time.Duration
}

func NewAccountRepo(client AccountsAPI, tableName, emailsTable string) *AccountRepo {
	return &AccountRepo{
		client:       client,
		tableName:    tableName,
		emailsTable:  emailsTable,
		indexBackoff: tokenIndexBackoff,
	}
}

// Create stores a new account together with its email claim in one
// transaction. A taken address yields domain.ErrDuplicateEmail.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a.SyncStatus()
	a.Version = 1
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName: aws.String(r.emailsTable),
				Item: map[string]types.AttributeValue{
					fieldEmail:     strAttr(a.Email),
					fieldAccountID: strAttr(a.AccountID),
				},
				ConditionExpression: aws.String("attribute_not_exists(#e)"),
				ExpressionAttributeNames: map[string]string{
					"#e": fieldEmail,
				},
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{
					"#id": fieldAccountID,
				},
			}},
		},
	})
	if err != nil {
		if txConditionFailed(err, 0) {
			return fmt.Errorf("create account: %w", domain.ErrDuplicateEmail)
		}
		if txConditionFailed(err, 1) {
			return fmt.Errorf("create account: id collision: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldAccountID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByEmail resolves the address through the claim table, which allows a
// consistent read where a GSI would not.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(fieldEmail, domain.NormalizeEmail(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	idAttr, ok := out.Item[fieldAccountID].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, idAttr.Value)
}

// Save writes the whole account back, provided nobody else changed it since
// it was read. A lost race yields domain.ErrStaleAccount.
func (r *AccountRepo) Save(ctx context.Context, a *domain.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	prev := a.Version
	a.SyncStatus()
	a.Version = prev + 1
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		a.Version = prev
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("#ver = :ver AND #e = :e"),
		ExpressionAttributeNames: map[string]string{
			"#ver": fieldVersion,
			"#e":   fieldEmail,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ver": numAttr(prev),
			":e":   strAttr(a.Email),
		},
	})
	if err != nil {
		a.Version = prev
		if conditionFailed(err) {
			return fmt.Errorf("save account: %w", domain.ErrStaleAccount)
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// Redeem marks the account holding tokenHash as verified and clears the
// token, in one conditional update. The condition rejects expired, already
// consumed and unknown tokens alike, so concurrent redemptions of the same
// token succeed at most once.
func (r *AccountRepo) Redeem(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	accountID, err := r.accountForToken(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	in, err := redeemInput(r.tableName, accountID, tokenHash, now)
	if err != nil {
		return nil, err
	}
	up, err := r.client.UpdateItem(ctx, in)
	if err != nil {
		if conditionFailed(err) {
			return nil, fmt.Errorf("redeem token: %w", domain.ErrInvalidOrExpiredToken)
		}
		return nil, err
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(up.Attributes, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// accountForToken finds the account id behind tokenHash. The index is only
// eventually consistent, so a miss is retried a few times before the token
// counts as unknown.
func (r *AccountRepo) accountForToken(ctx context.Context, tokenHash string) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(indexVerificationToken),
			KeyConditionExpression: aws.String("#t = :t"),
			ExpressionAttributeNames: map[string]string{
				"#t": fieldVerificationToken,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": strAttr(tokenHash),
			},
			Limit: aws.Int32(1),
		})
		if err != nil {
			return "", err
		}
		if len(out.Items) > 0 {
			idAttr, ok := out.Items[0][fieldAccountID].(*types.AttributeValueMemberS)
			if !ok {
				return "", fmt.Errorf("redeem token: %w", domain.ErrInvalidOrExpiredToken)
			}
			return idAttr.Value, nil
		}
		if attempt >= len(r.indexBackoff) {
			return "", fmt.Errorf("redeem token: %w", domain.ErrInvalidOrExpiredToken)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.indexBackoff[attempt]):
		}
	}
}

// redeemInput builds the verifying update. It only applies while the stored
// token is tokenHash, has not expired at now and the account is unverified.
func redeemInput(table, accountID, tokenHash string, now time.Time) (*dynamodb.UpdateItemInput, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsVerified: true,
		fieldStatus:     domain.StatusVerified,
		fieldVerifiedAt: now.Unix(),
	}, fieldVerificationToken, fieldVerificationExpires)
	if err != nil {
		return nil, err
	}
	ue.Expr += " ADD #ver :one"
	ue.Names["#ver"] = fieldVersion
	ue.Names["#ct"] = fieldVerificationToken
	ue.Names["#cx"] = fieldVerificationExpires
	ue.Names["#cv"] = fieldIsVerified
	ue.Values[":one"] = numAttr(1)
	ue.Values[":ct"] = strAttr(tokenHash)
	ue.Values[":now"] = numAttr(now.Unix())
	ue.Values[":false"] = boolAttr(false)

	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldAccountID, accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#ct = :ct AND #cx > :now AND #cv = :false"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// Delete removes an account and releases its email address.
func (r *AccountRepo) Delete(ctx context.Context, accountID string) error {
	a, err := r.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if err := r.deleteTx(ctx, a.AccountID, a.Email, false); err != nil {
		if txConditionFailed(err, 0) {
			return fmt.Errorf("delete account: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// DeleteUnverifiedOlderThan removes every unverified account created before
// cutoff and returns how many were removed. Accounts verified between the
// query and the delete are left alone.
func (r *AccountRepo) DeleteUnverifiedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	p := dynamodb.NewQueryPaginator(r.client, staleQueryInput(r.tableName, cutoff))

	deleted := 0
	var errs []error
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			errs = append(errs, err)
			break
		}
		var stale []domain.Account
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &stale); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, a := range stale {
			err := r.deleteTx(ctx, a.AccountID, a.Email, true)
			switch {
			case err == nil:
				deleted++
			case txConditionFailed(err, 0):
				// verified or already gone
			default:
				errs = append(errs, fmt.Errorf("delete %s: %w", a.AccountID, err))
			}
		}
	}
	return deleted, errors.Join(errs...)
}

// staleQueryInput selects pending accounts created strictly before cutoff.
func staleQueryInput(table string, cutoff time.Time) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(indexStatusCreatedAt),
		KeyConditionExpression: aws.String("#s = :pending AND #c < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#c": fieldCreatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": strAttr(domain.StatusPending),
			":cutoff":  numAttr(cutoff.Unix()),
		},
	}
}

// ScanPage returns a page of accounts.
// cursor is a base64-encoded account_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *AccountRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		accountID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey(fieldAccountID, accountID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey[fieldAccountID].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return accounts, nextCursor, nil
}

func (r *AccountRepo) deleteTx(ctx context.Context, accountID, email string, onlyUnverified bool) error {
	cond := "attribute_exists(#id)"
	names := map[string]string{"#id": fieldAccountID}
	var values map[string]types.AttributeValue
	if onlyUnverified {
		cond += " AND #v = :false"
		names["#v"] = fieldIsVerified
		values = map[string]types.AttributeValue{":false": boolAttr(false)}
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey(fieldAccountID, accountID),
				ConditionExpression:       aws.String(cond),
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			}},
			{Delete: &types.Delete{
				TableName:           aws.String(r.emailsTable),
				Key:                 strKey(fieldEmail, email),
				ConditionExpression: aws.String("#id = :id"),
				ExpressionAttributeNames: map[string]string{
					"#id": fieldAccountID,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":id": strAttr(accountID),
				},
			}},
		},
	})
	return err
}

// Ping reports whether the accounts table is reachable.
func (r *AccountRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}
