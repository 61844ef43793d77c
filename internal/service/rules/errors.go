package rules

import "errors"

var (
	ErrRuleNotFound = errors.New("capacity rule not found")
	ErrRuleConflict = errors.New("capacity rule already exists")
)
