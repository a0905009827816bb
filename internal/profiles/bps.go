package profiles

import "github.com/JonMunkholm/rowfetch/internal/core"

func init() {
	registerBPS()
}

// registerBPS adds the statistics office release list layout: one download
// link per row, named by dataset title, person in charge, and release month.
func registerBPS() {
	core.RegisterProfile(core.Profile{
		Key:          "bps",
		Label:        "BPS release list",
		Description:  "link_download with Penamaan_Data, PIC and Bulan_rilis; all four columns required",
		URLColumn:    "link_download",
		NameColumns:  []string{"Penamaan_Data", "PIC", "Bulan_rilis"},
		RequireNames: true,
	})
}
