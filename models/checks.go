package models

// Check names. They are persisted as test_name and are part of the contract
// with anything reading the test_results table.
const (
	CheckSearchAndFindSponsored    = "SearchAndFindSponsored"
	CheckVerifyURLReachable        = "VerifyUrlReachable"
	CheckVerifyContentMentionsTerm = "VerifyContentMentionsTerm"
	CheckCountRelatedVideoLinks    = "CountRelatedVideoLinks"
	CheckVerifyVideoTitlesRelevant = "VerifyVideoTitlesRelevant"
)
