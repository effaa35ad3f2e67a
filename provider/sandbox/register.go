package sandbox

import "github.com/mstgnz/cardgate/provider"

func init() {
	provider.Register("sandbox", NewProvider)
}
