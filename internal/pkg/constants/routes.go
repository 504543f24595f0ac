package constants

// Page routes that handlers redirect to.
const (
	RouteHome                = "/"
	RouteLogin               = "/login"
	RouteRegister            = "/register"
	RoutePricing             = "/pricing"
	RouteCreateColoring      = "/create/coloring"
	RouteAccountSubscription = "/account/subscription"
)

