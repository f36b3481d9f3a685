package repository

import "github.com/google/uuid"

// uuidParam returns raw in canonical form when it is a valid UUID. Callers
// treat a malformed ID as matching nothing instead of sending it to Postgres,
// which would reject the cast.
func uuidParam(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// principalParam maps an optional principal to a query argument. Anything
// that is not a UUID becomes NULL.
func principalParam(principalID *string) any {
	if principalID == nil {
		return nil
	}
	id, ok := uuidParam(*principalID)
	if !ok {
		return nil
	}
	return id
}
