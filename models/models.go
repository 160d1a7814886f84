// Package models contains the persistent records of the tracker and its static UTM catalog
package models

// All returns every persisted model in migration order
func All() []any {
	return []any{
		&UTMLink{},
		&ClickLog{},
	}
}
