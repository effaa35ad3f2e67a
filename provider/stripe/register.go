package stripe

import "github.com/mstgnz/cardgate/provider"

// Register Stripe provider with the gateway registry
func init() {
	provider.Register("stripe", NewProvider)
}
