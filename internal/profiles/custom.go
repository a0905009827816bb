package profiles

import "github.com/JonMunkholm/rowfetch/internal/core"

func init() {
	registerCustom()
}

// registerCustom adds the operator-defined layout. The URL column and the
// ordered naming columns are chosen at upload time; naming values may be
// empty, in which case the default file name is used.
func registerCustom() {
	core.RegisterProfile(core.Profile{
		Key:         "custom",
		Label:       "Custom columns",
		Description: "choose the URL column and the naming columns after upload",
		Custom:      true,
	})
}
