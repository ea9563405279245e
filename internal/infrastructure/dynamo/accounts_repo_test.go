package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-account-chat/internal/domain"
	"github.com/go-account-chat/internal/infrastructure/dynamo/dynamotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccounts = "accounts"
	testEmails   = "account_emails"
)

var fixedNow = time.Unix(1772366400, 0).UTC()

func newTestRepo() (*AccountRepo, *dynamotest.Store) {
	store := dynamotest.New(map[string]string{
		testAccounts: fieldAccountID,
		testEmails:   fieldEmail,
	})
	repo := NewAccountRepo(store, testAccounts, testEmails)
	repo.indexBackoff = []time.Duration{time.Millisecond, time.Millisecond}
	return repo, store
}

func pending(id, email string, created time.Time, tokenHash string, expires time.Time) *domain.Account {
	return &domain.Account{
		AccountID:           id,
		Name:                "Ada",
		Email:               email,
		PasswordHash:        "hash",
		VerificationToken:   tokenHash,
		VerificationExpires: &expires,
		CreatedAt:           created,
	}
}

func accountItem(t *testing.T, a *domain.Account) dynamotest.Item {
	t.Helper()
	a.SyncStatus()
	item, err := attributevalue.MarshalMap(a)
	require.NoError(t, err)
	return item
}

// --- Redeem ---

func TestRedeemInput_Condition(t *testing.T) {
	in, err := redeemInput(testAccounts, "01HX", "tokenhash", fixedNow)
	require.NoError(t, err)

	verifiedAt := fixedNow.Add(-time.Hour)
	verified := &domain.Account{AccountID: "01HX", IsVerified: true, VerifiedAt: &verifiedAt}
	cases := []struct {
		name string
		a    *domain.Account
		want bool
	}{
		{"live token", pending("01HX", "a@example.com", fixedNow, "tokenhash", fixedNow.Add(time.Second)), true},
		{"expires this second", pending("01HX", "a@example.com", fixedNow, "tokenhash", fixedNow), false},
		{"expired", pending("01HX", "a@example.com", fixedNow, "tokenhash", fixedNow.Add(-time.Hour)), false},
		{"replaced token", pending("01HX", "a@example.com", fixedNow, "newerhash", fixedNow.Add(time.Hour)), false},
		{"already verified", verified, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := dynamotest.Match(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, accountItem(t, tc.a))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestRedeem_ExpiredTokenLeavesAccountPending(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pending("01HX", "ada@example.com", fixedNow, "tokenhash", fixedNow.Add(24*time.Hour))))

	_, err := repo.Redeem(ctx, "tokenhash", fixedNow.Add(24*time.Hour+time.Second))
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)

	a, err := repo.Get(ctx, "01HX")
	require.NoError(t, err)
	assert.False(t, a.IsVerified)
	assert.Equal(t, domain.StatusPending, a.Status)
	assert.Equal(t, "tokenhash", a.VerificationToken)
}

func TestRedeem_VerifiesOnce(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pending("01HX", "ada@example.com", fixedNow, "tokenhash", fixedNow.Add(24*time.Hour))))

	a, err := repo.Redeem(ctx, "tokenhash", fixedNow)
	require.NoError(t, err)
	assert.True(t, a.IsVerified)
	assert.Equal(t, domain.StatusVerified, a.Status)
	require.NotNil(t, a.VerifiedAt)
	assert.True(t, fixedNow.Equal(*a.VerifiedAt))
	assert.Empty(t, a.VerificationToken)
	assert.Nil(t, a.VerificationExpires)
	assert.Equal(t, int64(2), a.Version)

	_, err = repo.Redeem(ctx, "tokenhash", fixedNow)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
}

func TestRedeem_RetriesWhileIndexCatchesUp(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pending("01HX", "ada@example.com", fixedNow, "tokenhash", fixedNow.Add(time.Hour))))
	store.IndexLag = 1

	a, err := repo.Redeem(ctx, "tokenhash", fixedNow)
	require.NoError(t, err)
	assert.True(t, a.IsVerified)
	assert.Equal(t, 2, store.IndexQueries)
}

func TestRedeem_UnknownTokenGivesUp(t *testing.T) {
	repo, store := newTestRepo()

	_, err := repo.Redeem(context.Background(), "nobody", fixedNow)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredToken)
	assert.Equal(t, len(repo.indexBackoff)+1, store.IndexQueries)
}

func TestRedeem_CancelledWhileWaitingForIndex(t *testing.T) {
	repo, _ := newTestRepo()
	repo.indexBackoff = []time.Duration{time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Redeem(ctx, "nobody", fixedNow)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- DeleteUnverifiedOlderThan ---

func TestStaleQueryInput(t *testing.T) {
	cutoff := fixedNow.Add(-7 * 24 * time.Hour)
	in := staleQueryInput(testAccounts, cutoff)

	assert.Equal(t, indexStatusCreatedAt, aws.ToString(in.IndexName))
	assert.Equal(t, "#s = :pending AND #c < :cutoff", aws.ToString(in.KeyConditionExpression))
	assert.Equal(t, map[string]string{"#s": fieldStatus, "#c": fieldCreatedAt}, in.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberS{Value: domain.StatusPending}, in.ExpressionAttributeValues[":pending"])
	assert.Equal(t, numAttr(cutoff.Unix()), in.ExpressionAttributeValues[":cutoff"])
}

func TestDeleteUnverifiedOlderThan_SparesVerifiedAndYoung(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()
	eightDays := fixedNow.Add(-8 * 24 * time.Hour)
	verifiedAt := eightDays.Add(time.Hour)

	require.NoError(t, repo.Create(ctx, pending("stale", "stale@example.com", eightDays, "h1", eightDays.Add(24*time.Hour))))
	require.NoError(t, repo.Create(ctx, &domain.Account{
		AccountID:    "verified",
		Name:         "Bob",
		Email:        "bob@example.com",
		PasswordHash: "hash",
		IsVerified:   true,
		VerifiedAt:   &verifiedAt,
		CreatedAt:    eightDays,
	}))
	require.NoError(t, repo.Create(ctx, pending("young", "young@example.com", fixedNow.Add(-24*time.Hour), "h2", fixedNow)))

	cutoff := fixedNow.Add(-7 * 24 * time.Hour)
	n, err := repo.DeleteUnverifiedOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteUnverifiedOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = repo.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "stale@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.Get(ctx, "verified")
	assert.NoError(t, err)
	_, err = repo.Get(ctx, "young")
	assert.NoError(t, err)
	assert.Equal(t, 2, store.Len(testEmails))
}

func TestDeleteUnverifiedOlderThan_SkipsAccountVerifiedMidSweep(t *testing.T) {
	repo, store := newTestRepo()
	eightDays := fixedNow.Add(-8 * 24 * time.Hour)

	// The index row still says pending while the base item is verified.
	item := accountItem(t, pending("racer", "racer@example.com", eightDays, "h1", fixedNow))
	item[fieldIsVerified] = boolAttr(true)
	store.Seed(testAccounts, item)
	store.Seed(testEmails, dynamotest.Item{fieldEmail: strAttr("racer@example.com"), fieldAccountID: strAttr("racer")})

	n, err := repo.DeleteUnverifiedOlderThan(context.Background(), fixedNow.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := store.Lookup(testAccounts, "racer")
	assert.True(t, ok)
	_, ok = store.Lookup(testEmails, "racer@example.com")
	assert.True(t, ok)
}

// --- Create / Delete ---

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pending("a", "ada@example.com", fixedNow, "h1", fixedNow)))

	err := repo.Create(ctx, pending("b", "ada@example.com", fixedNow, "h2", fixedNow))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	_, err = repo.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_ReleasesEmail(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, pending("a", "ada@example.com", fixedNow, "h1", fixedNow)))

	require.NoError(t, repo.Delete(ctx, "a"))
	assert.NoError(t, repo.Create(ctx, pending("b", "ada@example.com", fixedNow, "h2", fixedNow)))
	assert.ErrorIs(t, repo.Delete(ctx, "a"), domain.ErrNotFound)
}
