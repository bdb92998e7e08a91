package domain

// UnknownUserName is the sentinel display name for IDs that resolve to no
// user. Name resolution never errors on a missing user.
const UnknownUserName = "user not found"

// NameBatchSize caps owner-ID batches per name-resolution round trip.
const NameBatchSize = 10

// User is the slice of the identity record this service reads.
type User struct {
	ID          string
	DisplayName string
}
