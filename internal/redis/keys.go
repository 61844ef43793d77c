package redisx

import "fmt"

const ns = "tablegate:v1"

func KeyStoreRules(storeID string) string {
	return fmt.Sprintf("%s:store:%s:rules", ns, storeID)
}

func KeyBucketCount(ruleID, bucket string) string {
	return fmt.Sprintf("%s:rule:%s:bucket:%s", ns, ruleID, bucket)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelRulesChanged() string {
	return ns + ":rules:changed"
}
