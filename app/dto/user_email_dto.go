package dto

import "encoding/json"

// UserEmailsRequest keeps ids raw so a missing or non-array value yields 400
type UserEmailsRequest struct {
	UserIDs json.RawMessage `json:"userIds"`
}

type UserEmailsResponse struct {
	EmailMap map[string]string `json:"emailMap"`
}
