package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyEmail         = "email"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"

	// LocalsKey holds the resolved UserContext
	LocalsKey = "USER_CONTEXT"
)
