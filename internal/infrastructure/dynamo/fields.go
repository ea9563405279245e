package dynamo

// DynamoDB attribute and index names shared by the repos and Bootstrap.
const (
	fieldAccountID           = "account_id"
	fieldEmail               = "email"
	fieldIsVerified          = "is_verified"
	fieldStatus              = "status"
	fieldVerifiedAt          = "verified_at"
	fieldVerificationToken   = "verification_token"
	fieldVerificationExpires = "verification_expires"
	fieldCreatedAt           = "created_at"
	fieldVersion             = "version"
	fieldSessionID           = "session_id"
	fieldExpiresAt           = "expires_at"

	indexVerificationToken = "verification_token-index"
	indexStatusCreatedAt   = "status-created_at-index"
	indexSessionsByAccount = "account_id-index"
)
