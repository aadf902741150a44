package cache

import "fmt"

// Key prefixes used by writers and by invalidation.
const (
	PrefixUsers       = "users:"
	PrefixTasks       = "tasks:"
	PrefixSearch      = "search:"
	PrefixSuggestions = "suggestions:"
	PrefixStats       = "stats:"
	PrefixBulk        = "bulk:"
	PrefixTemplates   = "templates:"
)

// UserKey caches a user record.
func UserKey(userID int64) string {
	return fmt.Sprintf("%suser_%d", PrefixUsers, userID)
}

// UserTasksKey caches a user's default task listing.
func UserTasksKey(userID int64) string {
	return fmt.Sprintf("%suser_%d_tasks", PrefixTasks, userID)
}

// UserStatsKey caches a user's task statistics.
func UserStatsKey(userID int64) string {
	return fmt.Sprintf("%suser_%d_summary", PrefixStats, userID)
}

// UserSearchKey caches one filtered listing; digest identifies the filter.
func UserSearchKey(userID int64, digest string) string {
	return fmt.Sprintf("%suser_%d_%s", PrefixSearch, userID, digest)
}

// OperationKey mirrors a bulk operation's status.
func OperationKey(operationID string) string {
	return fmt.Sprintf("%sbulk_op_%s", PrefixBulk, operationID)
}

// TemplateKey holds one task template.
func TemplateKey(templateID string) string {
	return fmt.Sprintf("%stemplate_%s", PrefixTemplates, templateID)
}

// UserTemplatesKey holds the ids of a user's templates.
func UserTemplatesKey(userID int64) string {
	return fmt.Sprintf("%suser_%d_templates", PrefixTemplates, userID)
}
