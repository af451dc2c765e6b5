package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldProfile   = "profile"
	fieldMood      = "mood"
	fieldWallet    = "wallet"
	fieldUpdatedAt = "updated_at"
)
