package dynamo

// DynamoDB attribute names used in key and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldRecordID      = "record_id"
	fieldStage         = "stage"
	fieldUserSession   = "user_session"
	fieldStateCounter  = "state_counter"
	fieldUpdatedAt     = "updated_at"
	fieldOwnerRecordID = "owner_record_id"
)
