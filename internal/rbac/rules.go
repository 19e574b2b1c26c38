package rbac

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

const (
	PermCourseView     = "course:view"
	PermCourseAuthor   = "course:author"
	PermQuizAuthor     = "quiz:author"
	PermQuizTake       = "quiz:take"
	PermAttemptViewOwn = "attempt:view-own"
	PermAssetView      = "asset:view"
	PermAttemptViewAll = "attempt:view-all"
	PermEventsRead     = "events:read"
	PermUsersManage    = "users:manage"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermCourseView,
		PermQuizTake,
		PermAttemptViewOwn,
		PermAssetView,
	},
	RoleStaff: {
		"course:*",
		PermQuizAuthor,
		PermQuizTake,
		PermAttemptViewOwn,
		PermAttemptViewAll,
		PermAssetView,
	},
	RoleAdmin: {
		"*",
	},
}

// ValidRole reports whether role is one of the built-in roles.
func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
